// SPDX-License-Identifier: GPL-3.0-or-later
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"
)

const (
	DefaultIndex = "emails"

	// RequestTimeout bounds the wait for a response from the cluster.
	RequestTimeout = 10 * time.Second
)

const mapping = `{
  "mappings": {
    "properties": {
      "accountId":   {"type": "long"},
      "folder":      {"type": "keyword"},
      "subject":     {"type": "text"},
      "from":        {"type": "keyword"},
      "to":          {"type": "keyword"},
      "date":        {"type": "date"},
      "body":        {"type": "text"},
      "label":       {"type": "keyword"},
      "confidence":  {"type": "float"},
      "attachments": {"type": "keyword"}
    }
  }
}`

type document struct {
	AccountId   int64     `json:"accountId"`
	Folder      string    `json:"folder"`
	Subject     string    `json:"subject"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Date        time.Time `json:"date"`
	Body        string    `json:"body"`
	Label       string    `json:"label,omitempty"`
	Confidence  float64   `json:"confidence"`
	Attachments []string  `json:"attachments,omitempty"`
}

func newDocument(m *domain.Message) *document {
	d := &document{
		AccountId: m.AccountId,
		Folder:    m.Folder,
		Subject:   m.Subject,
		From:      m.From,
		To:        m.To,
		Date:      m.Date,
		Body:      m.TextBody,
	}
	if m.Classification != nil {
		d.Label = m.Classification.Label
		d.Confidence = m.Classification.Confidence
	}
	for _, a := range m.Attachments {
		d.Attachments = append(d.Attachments, a.Filename)
	}
	return d
}

type Index struct {
	client *elasticsearch.Client
	index  string

	l *logrus.Logger
}

func NewIndex(addresses []string, username, password, index string) (*Index, error) {
	return newIndex(addresses, username, password, index, RequestTimeout)
}

func newIndex(addresses []string, username, password, index string, timeout time.Duration) (*Index, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create elasticsearch client: %w", err)
	}
	if len(index) == 0 {
		index = DefaultIndex
	}

	return &Index{
		client: client,
		index:  index,
		l:      log.Logger(log.LOG_SEARCH),
	}, nil
}

// EnsureIndex creates the index with its mapping unless it exists.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not check index %s: %w", i.index, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("could not check index %s: %s", i.index, res.Status())
	}

	res, err = i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("could not create index %s: %w", i.index, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("could not create index %s: %s", i.index, res.Status())
	}

	i.l.WithField("index", i.index).Info("Created index")
	return nil
}

func (i *Index) IndexMessage(ctx context.Context, message *domain.Message) error {
	body, err := json.Marshal(newDocument(message))
	if err != nil {
		return fmt.Errorf("could not encode document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(message.Id),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("could not index message %s: %w", message.Id, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("could not index message %s: %s", message.Id, res.Status())
	}

	i.l.WithFields(logrus.Fields{"id": message.Id, "index": i.index}).Trace("Indexed message")
	return nil
}

// DeleteMessage treats a missing document as deleted.
func (i *Index) DeleteMessage(ctx context.Context, id string) error {
	res, err := i.client.Delete(i.index, id, i.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not delete message %s: %w", id, err)
	}
	defer drain(res)
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("could not delete message %s: %s", id, res.Status())
	}

	return nil
}

func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not ping elasticsearch: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("could not ping elasticsearch: %s", res.Status())
	}

	return nil
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
