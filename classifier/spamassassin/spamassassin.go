// SPDX-License-Identifier: GPL-3.0-or-later
package spamassassin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"

	"github.com/teamwork/spamc"
)

const SpamAssassinTimeout = 20 * time.Second

// SpamAssassin only asks spamd for a verdict, rewritten messages are discarded.
type SpamAssassin struct {
	client *spamc.Client
}

func NewSpamassassin(host string) (*SpamAssassin, error) {
	sa := &SpamAssassin{
		client: spamc.New(host, &net.Dialer{
			Timeout: SpamAssassinTimeout,
		}),
	}
	err := sa.Ping(context.TODO())
	if err != nil {
		return nil, err
	}

	return sa, nil
}

func (sa *SpamAssassin) Ping(ctx context.Context) error {
	err := sa.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("could not ping SpamAssassin: %w", err)
	}
	return nil
}

func (sa *SpamAssassin) Check(rawMail []byte) *domain.SpamResult {
	ctx, cancel := context.WithTimeout(context.Background(), SpamAssassinTimeout)
	defer cancel()

	out, err := sa.client.Process(ctx, bytes.NewReader(rawMail), nil)
	if err != nil {
		return errResult(fmt.Errorf("could not check SpamAssassin: %w", err))
	}

	_, err = io.Copy(io.Discard, out.Message)
	if err != nil {
		return errResult(fmt.Errorf("could not read response body: %w", err))
	}

	err = out.Message.Close()
	if err != nil {
		return errResult(fmt.Errorf("could not close response: %w", err))
	}

	return &domain.SpamResult{
		IsSpam: out.IsSpam,
		Score:  out.Score,
	}
}

func errResult(err error) *domain.SpamResult {
	return &domain.SpamResult{Error: err}
}
