// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/collaborators.go -package=mocks . Classifier,SearchIndex,SemanticStore,Notifier,Publisher,Pipeline

type Classifier interface {
	Classify(ctx context.Context, subject, body, from string) (*Classification, error)
}

type SearchIndex interface {
	IndexMessage(ctx context.Context, message *Message) error
	DeleteMessage(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type SemanticStore interface {
	StoreMessage(ctx context.Context, message *Message) error
	Ping(ctx context.Context) error
}

const (
	EventNewMessage = "message.new"
)

type Notifier interface {
	Notify(ctx context.Context, eventType string, message *Message) error
}

type Publisher interface {
	Publish(update LiveUpdate)
}

// Pipeline hands a message to every downstream system.
type Pipeline interface {
	// Process returns an error only if the message could not be stored.
	Process(ctx context.Context, message *Message) error
	Delete(ctx context.Context, id string) error
}
