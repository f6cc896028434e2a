// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap"
)

var ErrDeletedFlagPresent = errors.New("folder has previous items with delete flag set")

type uidExpungeRemover struct {
	conn uidExpungeClient
}

func (u *uidExpungeRemover) remove(uids []uint32) error {
	seqset, err := u.conn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag items as deleted: %w", err)
	}

	expunged, err := collectExpunged(func(out chan uint32) error {
		return u.conn.UidExpunge(seqset, out)
	})
	if err != nil {
		return err
	}

	return checkExpungeCount(len(uids), expunged)
}

// UID EXPUNGE only touches the given uids, it can always run.
func (u *uidExpungeRemover) removeReady() (error, error) {
	return nil, nil
}

type flagExpungeRemover struct {
	conn expungeClient
}

func (f *flagExpungeRemover) remove(uids []uint32) error {
	notReadyReason, err := f.removeReady()
	if err != nil {
		return fmt.Errorf("could not check for delete readiness: %w", err)
	}
	if notReadyReason != nil {
		return fmt.Errorf("folder is not ready for delete: %w", notReadyReason)
	}

	_, err = f.conn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not set deleted flag: %w", err)
	}

	expunged, err := collectExpunged(f.conn.Expunge)
	if err != nil {
		return err
	}

	return checkExpungeCount(len(uids), expunged)
}

// A plain EXPUNGE removes everything flagged \Deleted, so it only runs on folders without
// foreign \Deleted items.
func (f *flagExpungeRemover) removeReady() (error, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	ids, err := f.conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search for deleted in folder: %w", err)
	}

	if len(ids) > 0 {
		return ErrDeletedFlagPresent, nil
	}
	return nil, nil
}

func collectExpunged(expunge func(out chan uint32) error) (int, error) {
	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- expunge(out)
	}()

	count := 0
	for range out {
		count++
	}

	if err := <-done; err != nil {
		return 0, fmt.Errorf("could not expunge mails: %w", err)
	}
	return count, nil
}

func checkExpungeCount(expected, got int) error {
	if expected != got {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", expected, got)
	}
	return nil
}
