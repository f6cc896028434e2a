// SPDX-License-Identifier: GPL-3.0-or-later
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 20 * time.Second
	maxBodyRunes   = 4000
)

var systemPrompt = `You sort incoming sales emails. Answer with a JSON object of the form
{"label": "<label>", "confidence": <number between 0 and 1>} and nothing else.
The label must be exactly one of: ` + strings.Join(categories, ", ") + `.`

// the default label is never suggested to the model
var categories = []string{
	domain.LabelInterested,
	domain.LabelMeetingBooked,
	domain.LabelNotInterested,
	domain.LabelSpam,
	domain.LabelOutOfOffice,
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier talks to any OpenAI compatible chat completion endpoint.
type Classifier struct {
	client       *http.Client
	endpoint     string
	model        string
	apiKey       string
	defaultLabel string

	l *logrus.Logger
}

func NewClassifier(endpoint, model, apiKey, defaultLabel string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(defaultLabel) == 0 {
		defaultLabel = domain.LabelUncategorized
	}

	return &Classifier{
		client:       &http.Client{Timeout: timeout},
		endpoint:     strings.TrimSuffix(endpoint, "/"),
		model:        model,
		apiKey:       apiKey,
		defaultLabel: defaultLabel,
		l:            log.Logger(log.LOG_CLASSIFIER),
	}
}

func (c *Classifier) Classify(ctx context.Context, subject, body, from string) (*domain.Classification, error) {
	content, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(subject, body, from)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	v := verdict{}
	err = json.Unmarshal([]byte(stripFence(content)), &v)
	if err != nil {
		return nil, fmt.Errorf("could not decode classification %q: %w", content, err)
	}

	label := matchLabel(v.Label)
	if len(label) == 0 {
		c.l.WithFields(logrus.Fields{"label": v.Label}).Warn("Model answered with unknown label, using default")
		return &domain.Classification{Label: c.defaultLabel}, nil
	}

	return &domain.Classification{Label: label, Confidence: clamp(v.Confidence)}, nil
}

// Ping lists the models of the endpoint.
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/models", nil)
	if err != nil {
		return fmt.Errorf("could not create ping request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("could not reach classifier: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Classifier) complete(ctx context.Context, chat chatRequest) (string, error) {
	payload, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("could not encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d from classifier: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	response := chatResponse{}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}

	c.l.WithFields(logrus.Fields{"duration": time.Since(start), "model": c.model}).Debug("Classified message")
	return response.Choices[0].Message.Content, nil
}

func (c *Classifier) authorize(req *http.Request) {
	if len(c.apiKey) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func userPrompt(subject, body, from string) string {
	runes := []rune(body)
	if len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes])
	}

	return "From: " + from + "\nSubject: " + subject + "\n\n" + body
}

func matchLabel(label string) string {
	label = strings.TrimSpace(label)
	for _, l := range categories {
		if strings.EqualFold(l, label) {
			return l
		}
	}
	return ""
}

func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	content = strings.TrimPrefix(content, "json")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
