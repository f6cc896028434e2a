// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

//go:generate mockgen -destination=mocks/imap.go -package=mocks . ImapConnector
type RawImapMail struct {
	Uid          uint32
	Flags        []string
	InternalDate time.Time
	RawMail      []byte
}

type FolderStatus struct {
	Name        string
	UidValidity uint32
	UidNext     uint32
	Messages    uint32
}

type ImapConnector interface {
	Select(folder string) (*FolderStatus, error)
	SearchSince(since time.Time) ([]uint32, error)
	SearchAfterUid(uid uint32) ([]uint32, error)
	FetchMails(uids []uint32) ([]*RawImapMail, error)

	// Idle blocks until stop is closed or the server ends the IDLE command.
	Idle(stop <-chan struct{}) error
	Noop() error
	// Changes signals mailbox updates received from the server. Signals are coalesced.
	Changes() <-chan struct{}

	DeleteReady() (error, error)
	Delete(uids []uint32) error
	MoveReady() (error, error)
	Move(uids []uint32, folder string) error

	Close() error
	Terminate() error
}
