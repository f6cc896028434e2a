// SPDX-License-Identifier: GPL-3.0-or-later
package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/slack-go/slack"
)

const (
	colorInterested = "#2eb886"
	colorOther      = "#439fe0"
	previewRunes    = 300
)

// Sink posts to a Slack incoming webhook.
type Sink struct {
	url string
}

func NewSink(url string) *Sink {
	return &Sink{url: url}
}

func (s *Sink) Notify(ctx context.Context, eventType string, message *domain.Message) error {
	err := slack.PostWebhookContext(ctx, s.url, webhookMessage(message))
	if err != nil {
		return fmt.Errorf("could not post to slack: %w", err)
	}
	return nil
}

func webhookMessage(message *domain.Message) *slack.WebhookMessage {
	label, color := domain.LabelUncategorized, colorOther
	if message.Classification != nil {
		label = message.Classification.Label
	}
	if label == domain.LabelInterested {
		color = colorInterested
	}

	date := "unknown"
	if !message.Date.IsZero() {
		date = message.Date.UTC().Format(time.RFC1123)
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("New %s email: %s", label, mail.ShortSubject(message.Subject)),
		Attachments: []slack.Attachment{
			{
				Color: color,
				Title: message.Subject,
				Text:  preview(message.TextBody),
				Fields: []slack.AttachmentField{
					{Title: "From", Value: message.From, Short: true},
					{Title: "Folder", Value: message.Folder, Short: true},
					{Title: "Date", Value: date, Short: true},
				},
			},
		},
	}
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewRunes {
		return body
	}
	return string(runes[:previewRunes]) + "…"
}
