// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/store.go -package=mocks . Store

var ErrNotFound = errors.New("not found")

type Store interface {
	Close() error
	Ping(ctx context.Context) error

	LoadActiveAccounts(ctx context.Context) ([]*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	FindAccountByName(ctx context.Context, name string) (*Account, error)
	InsertAccount(ctx context.Context, account *Account) (int64, error)

	UpsertMessage(ctx context.Context, message *Message) error
	MessageExists(ctx context.Context, id string) (bool, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context, filter *MessageFilter, page Page) (*MessagePage, error)
	SetFlags(ctx context.Context, id string, flags MessageFlags) error
	DeleteMessage(ctx context.Context, id string) error
}

// MessageFlags carries user actions, nil fields are left unchanged.
type MessageFlags struct {
	Read      *bool `json:"read"`
	Important *bool `json:"important"`
}
