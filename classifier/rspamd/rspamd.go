// SPDX-License-Identifier: GPL-3.0-or-later
package rspamd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
)

const RspamdTimeout = 20 * time.Second

// gathered via trial&error and the source-code of various rspamd modules. These are caused by misconfiguration on the
// sender's side and not by the dns server being slow to respond for example.
var okFailSymbols = regexp.MustCompile(`^(R_DKIM_PERMFAIL|DMARC_POLICY_SOFTFAIL|R_SPF_SOFTFAIL|DMARC_DNSFAIL|R_SPF_FAIL)$`)

// spamActions are the verdicts that mean the message is spam. Greylisting and soft
// rejects only delay delivery.
var spamActions = map[string]bool{
	"reject":          true,
	"add header":      true,
	"rewrite subject": true,
}

type Rspamd struct {
	client   *http.Client
	host     string
	password string
}

func NewRspamd(host, password string) (*Rspamd, error) {
	rspamd := &Rspamd{
		client: &http.Client{
			Timeout: RspamdTimeout,
		},
		host:     strings.TrimSuffix(host, "/"),
		password: password,
	}
	err := rspamd.Ping(context.TODO())
	if err != nil {
		return nil, err
	}

	return rspamd, nil
}

func (rs *Rspamd) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rs.host+"/ping", nil)
	if err != nil {
		return fmt.Errorf("could not create ping request: %w", err)
	}

	resp, err := rs.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not ping rspamd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("could not ping rspamd: unexpected status %d, expected 200", resp.StatusCode)
	}

	return nil
}

type checkResponse struct {
	IsSkipped bool    `json:"is_skipped"`
	Score     float64 `json:"score"`
	Symbols   map[string]struct {
		Name  string
		Score float64
	} `json:"symbols"`
	Action string `json:"action"`
}

// Check asks the controller for a verdict.
func (rs *Rspamd) Check(rawMail []byte) *domain.SpamResult {
	req, err := http.NewRequest(http.MethodPost, rs.host+"/checkv2", bytes.NewReader(rawMail))
	if err != nil {
		return errResult(fmt.Errorf("could not create check request: %w", err))
	}

	resp, err := rs.doAuthenticated(req)
	if err != nil {
		return errResult(fmt.Errorf("could not perform check request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errResult(fmt.Errorf("unexpected status %d from rspamd, expected 200", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(fmt.Errorf("could not read rspamd response: %w", err))
	}

	checkResponse := &checkResponse{}
	err = json.Unmarshal(body, checkResponse)
	if err != nil {
		return errResult(fmt.Errorf("could not deserialize rspamd response: %w", err))
	}

	if checkResponse.IsSkipped {
		return errResult(fmt.Errorf("rspamd skipped the message"))
	}

	if len(checkResponse.Symbols) == 0 {
		return errResult(fmt.Errorf("could not find any symbols in rspamd response"))
	}

	for symbol := range checkResponse.Symbols {
		if strings.HasSuffix(symbol, "FAIL") && !okFailSymbols.MatchString(symbol) {
			return errResult(fmt.Errorf("unexpected FAIL symbol %s in rspamd response", symbol))
		}
	}

	return &domain.SpamResult{
		IsSpam: spamActions[checkResponse.Action],
		Score:  checkResponse.Score,
	}
}

func (rs *Rspamd) doAuthenticated(req *http.Request) (*http.Response, error) {
	req.Header.Set("Password", rs.password)
	resp, err := rs.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("could not send request to rspamd: %w", err)
	}

	return resp, nil
}

func errResult(err error) *domain.SpamResult {
	return &domain.SpamResult{Error: err}
}
