// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidFilter = errors.New("invalid filter")

// MessageFilter narrows message listings. Zero values mean "no restriction", instances
// are built with NewMessageFilter so every set field has been validated.
type MessageFilter struct {
	AccountId int64
	Folder    string
	Category  string
	Since     time.Time
	Until     time.Time
}

type FilterOption func(f *MessageFilter) error

func ForAccount(id int64) FilterOption {
	return func(f *MessageFilter) error {
		if id <= 0 {
			return fmt.Errorf("%w: account id must be positive, got %d", ErrInvalidFilter, id)
		}
		f.AccountId = id
		return nil
	}
}

func InFolder(folder string) FilterOption {
	return func(f *MessageFilter) error {
		if len(strings.TrimSpace(folder)) == 0 {
			return fmt.Errorf("%w: folder must not be empty", ErrInvalidFilter)
		}
		f.Folder = folder
		return nil
	}
}

func WithCategory(label string) FilterOption {
	return func(f *MessageFilter) error {
		if !IsKnownLabel(label) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, label)
		}
		f.Category = label
		return nil
	}
}

// Between restricts the message date to [since, until]. Either bound may be zero.
func Between(since, until time.Time) FilterOption {
	return func(f *MessageFilter) error {
		if !since.IsZero() && !until.IsZero() && until.Before(since) {
			return fmt.Errorf("%w: date range ends before it starts", ErrInvalidFilter)
		}
		f.Since = since
		f.Until = until
		return nil
	}
}

func NewMessageFilter(opts ...FilterOption) (*MessageFilter, error) {
	f := &MessageFilter{}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPageNumber keeps Offset far from overflowing.
	MaxPageNumber = 1000000
)

type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type MessagePage struct {
	Messages   []*Message `json:"messages"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
	HasNext    bool       `json:"hasNext"`
	HasPrev    bool       `json:"hasPrev"`
}

func NewMessagePage(messages []*Message, page Page, total int) *MessagePage {
	totalPages := (total + page.Size - 1) / page.Size
	if totalPages == 0 {
		totalPages = 1
	}

	return &MessagePage{
		Messages:   messages,
		Page:       page.Number,
		PageSize:   page.Size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page.Number < totalPages,
		HasPrev:    page.Number > 1,
	}
}
