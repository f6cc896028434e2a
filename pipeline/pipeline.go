// SPDX-License-Identifier: GPL-3.0-or-later
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	DefaultClassifyTimeout = 20 * time.Second
	DefaultNotifyTimeout   = 10 * time.Second
	DefaultIndexTimeout    = 10 * time.Second

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

type Option func(p *Pipeline)

func WithSpamClassifier(spam domain.SpamClassifier) Option {
	return func(p *Pipeline) {
		p.spam = spam
	}
}

// WithClassifier sets the label classifier. A timeout of zero uses
// DefaultClassifyTimeout.
func WithClassifier(classifier domain.Classifier, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.classifier = classifier
		if timeout > 0 {
			p.classifyTimeout = timeout
		}
	}
}

func WithDefaultLabel(label string) Option {
	return func(p *Pipeline) {
		if len(label) > 0 {
			p.defaultLabel = label
		}
	}
}

func WithSearchIndex(index domain.SearchIndex) Option {
	return func(p *Pipeline) {
		p.index = index
	}
}

func WithSemanticStore(semantic domain.SemanticStore) Option {
	return func(p *Pipeline) {
		p.semantic = semantic
	}
}

func WithNotifier(notifier domain.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = notifier
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Pipeline stores every message and hands it to the optional downstream
// systems. Only the store is required.
type Pipeline struct {
	store      domain.Store
	spam       domain.SpamClassifier
	classifier domain.Classifier
	index      domain.SearchIndex
	semantic   domain.SemanticStore
	notifier   domain.Notifier

	defaultLabel    string
	classifyTimeout time.Duration
	notifyTimeout   time.Duration
	indexTimeout    time.Duration

	spamBreaker       *gobreaker.CircuitBreaker
	classifierBreaker *gobreaker.CircuitBreaker
	indexBreaker      *gobreaker.CircuitBreaker
	semanticBreaker   *gobreaker.CircuitBreaker

	l *logrus.Logger
}

func NewPipeline(store domain.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:           store,
		defaultLabel:    domain.LabelUncategorized,
		classifyTimeout: DefaultClassifyTimeout,
		notifyTimeout:   DefaultNotifyTimeout,
		indexTimeout:    DefaultIndexTimeout,
		l:               log.Logger(log.LOG_PIPELINE),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.spamBreaker = p.newBreaker("spam")
	p.classifierBreaker = p.newBreaker("classifier")
	p.indexBreaker = p.newBreaker("index")
	p.semanticBreaker = p.newBreaker("semantic")
	return p
}

func (p *Pipeline) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			p.l.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker changed state")
		},
	})
}

// Process classifies and stores a message, then indexes it and notifies the
// sinks. Only a failure to store the message is returned.
func (p *Pipeline) Process(ctx context.Context, message *domain.Message) error {
	start := time.Now()
	message.Classification = p.classify(ctx, message)

	err := p.store.UpsertMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("could not store message %s: %w", message.Id, err)
	}

	fields := logrus.Fields{"id": message.Id, "subject": mail.ShortSubject(message.Subject)}

	if p.index != nil {
		_, err = p.indexBreaker.Execute(func() (interface{}, error) {
			indexCtx, cancel := context.WithTimeout(ctx, p.indexTimeout)
			defer cancel()
			return nil, p.index.IndexMessage(indexCtx, message)
		})
		if err != nil {
			p.l.WithFields(fields).WithField("error", err).Warn("Could not index message")
		}
	}

	if p.semantic != nil {
		_, err = p.semanticBreaker.Execute(func() (interface{}, error) {
			semanticCtx, cancel := context.WithTimeout(ctx, p.indexTimeout)
			defer cancel()
			return nil, p.semantic.StoreMessage(semanticCtx, message)
		})
		if err != nil {
			p.l.WithFields(fields).WithField("error", err).Warn("Could not store message in semantic store")
		}
	}

	if p.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, p.notifyTimeout)
		err = p.notifier.Notify(notifyCtx, domain.EventNewMessage, message)
		cancel()
		if err != nil {
			p.l.WithFields(fields).WithField("error", err).Warn("Could not notify")
		}
	}

	p.l.WithFields(fields).WithFields(logrus.Fields{
		"label":      message.Classification.Label,
		"confidence": message.Classification.Confidence,
		"duration":   time.Since(start),
	}).Info("Processed message")
	return nil
}

// classify never fails, the default label stands in for every error.
func (p *Pipeline) classify(ctx context.Context, message *domain.Message) *domain.Classification {
	fields := logrus.Fields{"id": message.Id, "subject": mail.ShortSubject(message.Subject)}

	if p.spam != nil && len(message.RawMail) > 0 {
		result, err := p.spamBreaker.Execute(func() (interface{}, error) {
			r := p.spam.Check(message.RawMail)
			return r, r.Error
		})
		if err != nil {
			p.l.WithFields(fields).WithField("error", err).Warn("Could not check for spam")
		} else if r := result.(*domain.SpamResult); r.IsSpam {
			p.l.WithFields(fields).WithField("score", r.Score).Debug("Spam pre-check matched")
			return &domain.Classification{Label: domain.LabelSpam, Confidence: 1}
		}
	}

	if p.classifier == nil {
		return p.fallback()
	}

	classifyCtx, cancel := context.WithTimeout(ctx, p.classifyTimeout)
	defer cancel()

	result, err := p.classifierBreaker.Execute(func() (interface{}, error) {
		return p.classifier.Classify(classifyCtx, message.Subject, message.TextBody, message.From)
	})
	if err != nil {
		p.l.WithFields(fields).WithField("error", err).Warn("Could not classify message, using default label")
		return p.fallback()
	}

	classification, ok := result.(*domain.Classification)
	if !ok || classification == nil || !domain.IsKnownLabel(classification.Label) {
		return p.fallback()
	}
	return classification
}

func (p *Pipeline) fallback() *domain.Classification {
	return &domain.Classification{Label: p.defaultLabel}
}

// Delete removes a message from the store and the search index.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	err := p.store.DeleteMessage(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("could not delete message %s: %w", id, err)
	}
	storeErr := err

	if p.index != nil {
		_, err = p.indexBreaker.Execute(func() (interface{}, error) {
			indexCtx, cancel := context.WithTimeout(ctx, p.indexTimeout)
			defer cancel()
			return nil, p.index.DeleteMessage(indexCtx, id)
		})
		if err != nil {
			p.l.WithFields(logrus.Fields{"id": id, "error": err}).Warn("Could not remove message from index")
		}
	}

	return storeErr
}

func (p *Pipeline) SetFlags(ctx context.Context, id string, flags domain.MessageFlags) error {
	err := p.store.SetFlags(ctx, id, flags)
	if err != nil {
		return fmt.Errorf("could not set flags of %s: %w", id, err)
	}
	return nil
}

// Health pings the store and every configured collaborator that can be
// pinged.
func (p *Pipeline) Health(ctx context.Context) []ComponentHealth {
	components := []struct {
		name   string
		pinger interface{}
	}{
		{"store", p.store},
		{"classifier", p.classifier},
		{"spam", p.spam},
		{"index", p.index},
		{"semantic", p.semantic},
	}

	health := []ComponentHealth{}
	for _, c := range components {
		target, ok := c.pinger.(pinger)
		if !ok || target == nil {
			continue
		}

		h := ComponentHealth{Name: c.name, Healthy: true}
		if err := target.Ping(ctx); err != nil {
			h.Healthy = false
			h.Error = err.Error()
		}
		health = append(health, h)
	}
	return health
}
