// SPDX-License-Identifier: GPL-3.0-or-later
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCollection = "emails"
	requestTimeout    = 15 * time.Second
)

type record struct {
	Id       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Store pushes message text to a vector store that embeds it on ingestion.
type Store struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	collection string

	l *logrus.Logger
}

func NewStore(endpoint, apiKey, collection string) *Store {
	if len(collection) == 0 {
		collection = DefaultCollection
	}

	return &Store{
		client:     &http.Client{Timeout: requestTimeout},
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		collection: collection,
		l:          log.Logger(log.LOG_SEARCH),
	}
}

func (s *Store) StoreMessage(ctx context.Context, message *domain.Message) error {
	r := record{
		Id:   message.Id,
		Text: message.Subject + "\n\n" + message.TextBody,
		Metadata: map[string]string{
			"accountId": fmt.Sprint(message.AccountId),
			"folder":    message.Folder,
			"from":      message.From,
			"date":      message.Date.UTC().Format(time.RFC3339),
		},
	}
	if message.Classification != nil {
		r.Metadata["label"] = message.Classification.Label
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}

	err = s.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(s.collection)+"/records/"+url.PathEscape(message.Id), body)
	if err != nil {
		return fmt.Errorf("could not store message %s: %w", message.Id, err)
	}

	s.l.WithFields(logrus.Fields{"id": message.Id, "collection": s.collection}).Trace("Stored message vector")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	err := s.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("could not ping semantic store: %w", err)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(s.apiKey) > 0 {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
