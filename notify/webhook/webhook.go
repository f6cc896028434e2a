// SPDX-License-Identifier: GPL-3.0-or-later
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
)

const requestTimeout = 10 * time.Second

type payload struct {
	Event      string    `json:"event"`
	Id         string    `json:"id"`
	AccountId  int64     `json:"accountId"`
	Folder     string    `json:"folder"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Date       time.Time `json:"date"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
}

// Sink posts a JSON document per event to a fixed URL.
type Sink struct {
	client *http.Client
	url    string
}

func NewSink(url string) *Sink {
	return &Sink{
		client: &http.Client{Timeout: requestTimeout},
		url:    url,
	}
}

func (s *Sink) Notify(ctx context.Context, eventType string, message *domain.Message) error {
	p := payload{
		Event:     eventType,
		Id:        message.Id,
		AccountId: message.AccountId,
		Folder:    message.Folder,
		Subject:   message.Subject,
		From:      message.From,
		To:        message.To,
		Date:      message.Date,
	}
	if message.Classification != nil {
		p.Label = message.Classification.Label
		p.Confidence = message.Classification.Confidence
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("could not encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not call webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from webhook", resp.StatusCode)
	}
	return nil
}
