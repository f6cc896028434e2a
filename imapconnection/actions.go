// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"

	"github.com/emersion/go-imap"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
)

//go:generate mockgen -destination=actions_mocks_test.go -package=imapconnection -source actions.go

// All strategy interfaces live in this file, mockgen's source mode cannot resolve embedded
// interfaces spread over several files.

type remover interface {
	remove(uids []uint32) error
	removeReady() (error, error)
}

type relocator interface {
	relocate(uids []uint32, folder string) error
	relocateReady() (error, error)
}

type deletedFlagger interface {
	flagDeleted(uids []uint32) (*imap.SeqSet, error)
}

type uidExpungeClient interface {
	deletedFlagger
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type expungeClient interface {
	deletedFlagger
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) (uids []uint32, err error)
}

type moveClient interface {
	UidMove(seqset *imap.SeqSet, dest string) error
}

type copyClient interface {
	remover
	UidCopy(seqset *imap.SeqSet, dest string) error
}

// serverClient adds \Deleted flagging to the plain client.
type serverClient struct {
	*client.Client
}

func (s serverClient) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := s.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not set deleted flag: %w", err)
	}

	return seqset, nil
}

type uidPlusConnection struct {
	serverClient
	uidplus *uidplus.Client
}

func (u uidPlusConnection) UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error {
	return u.uidplus.UidExpunge(seqSet, ch)
}

type copyConnection struct {
	remover
	server serverClient
}

func (c copyConnection) UidCopy(seqset *imap.SeqSet, dest string) error {
	return c.server.UidCopy(seqset, dest)
}
