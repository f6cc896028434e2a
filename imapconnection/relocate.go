// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"

	"github.com/emersion/go-imap"
)

type nativeRelocator struct {
	conn moveClient
}

func (n *nativeRelocator) relocate(uids []uint32, folder string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := n.conn.UidMove(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not move mails: %w", err)
	}
	return nil
}

func (n *nativeRelocator) relocateReady() (error, error) {
	return nil, nil
}

type copyRelocator struct {
	conn copyClient
}

func (c *copyRelocator) relocate(uids []uint32, folder string) error {
	notReadyReason, err := c.relocateReady()
	if err != nil {
		return fmt.Errorf("could not check for delete readiness to move: %w", err)
	}
	if notReadyReason != nil {
		return fmt.Errorf("folder is not ready for delete, cannot move (copy&delete): %w", notReadyReason)
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err = c.conn.UidCopy(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not copy mails: %w", err)
	}

	err = c.conn.remove(uids)
	if err != nil {
		return fmt.Errorf("could not delete copied mails: %w", err)
	}

	return nil
}

func (c *copyRelocator) relocateReady() (error, error) {
	return c.conn.removeReady()
}
