// SPDX-License-Identifier: GPL-3.0-or-later
package notify

import (
	"context"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/sirupsen/logrus"
)

var DefaultLabels = []string{domain.LabelInterested}

// Filtered only passes on messages carrying one of the given labels.
type Filtered struct {
	domain.Notifier
	labels map[string]bool
}

func NewFiltered(notifier domain.Notifier, labels []string) *Filtered {
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	f := &Filtered{Notifier: notifier, labels: map[string]bool{}}
	for _, l := range labels {
		f.labels[l] = true
	}
	return f
}

func (f *Filtered) Notify(ctx context.Context, eventType string, message *domain.Message) error {
	if message.Classification == nil || !f.labels[message.Classification.Label] {
		return nil
	}
	return f.Notifier.Notify(ctx, eventType, message)
}

type Fanout struct {
	sinks []domain.Notifier
	l     *logrus.Logger
}

func NewFanout(sinks ...domain.Notifier) *Fanout {
	return &Fanout{
		sinks: sinks,
		l:     log.Logger(log.LOG_NOTIFY),
	}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Notify delivers to every sink in turn. Failed deliveries are logged and do
// not keep the other sinks from being notified.
func (f *Fanout) Notify(ctx context.Context, eventType string, message *domain.Message) error {
	for i, sink := range f.sinks {
		err := sink.Notify(ctx, eventType, message)
		if err != nil {
			f.l.WithFields(logrus.Fields{"sink": i, "id": message.Id, "event": eventType, "error": err}).Warn("Could not notify")
		}
	}
	return nil
}
