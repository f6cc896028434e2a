// SPDX-License-Identifier: GPL-3.0-or-later
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/sirupsen/logrus"
)

var ErrUidValidityChanged = errors.New("folder uidvalidity changed since the message was fetched")

// RemoveFromServer deletes a stored message from its mailbox and then from
// every local copy.
func (a *Aggregator) RemoveFromServer(ctx context.Context, id string) error {
	message, err := a.onServer(ctx, id, func(conn domain.ImapConnector, message *domain.Message) error {
		notReady, err := conn.DeleteReady()
		if err != nil {
			return fmt.Errorf("could not check for delete readiness: %w", err)
		}
		if notReady != nil {
			return fmt.Errorf("folder %s is not ready for deletion: %w", message.Folder, notReady)
		}

		return conn.Delete([]uint32{message.Uid})
	})
	if err != nil {
		return err
	}

	a.l.WithFields(logrus.Fields{"id": id, "folder": message.Folder, "subject": mail.ShortSubject(message.Subject)}).Info("Deleted message on server")
	return a.pipeline.Delete(ctx, id)
}

// MoveOnServer moves a stored message to another folder of the same account.
// The stored copy is dropped; a watched destination folder picks the message
// up again under its new uid.
func (a *Aggregator) MoveOnServer(ctx context.Context, id string, folder string) error {
	if len(folder) == 0 {
		return fmt.Errorf("destination folder cannot be empty")
	}

	message, err := a.onServer(ctx, id, func(conn domain.ImapConnector, message *domain.Message) error {
		if message.Folder == folder {
			return fmt.Errorf("message is already in %s", folder)
		}

		notReady, err := conn.MoveReady()
		if err != nil {
			return fmt.Errorf("could not check for move readiness: %w", err)
		}
		if notReady != nil {
			return fmt.Errorf("folder %s is not ready for moving: %w", message.Folder, notReady)
		}

		return conn.Move([]uint32{message.Uid}, folder)
	})
	if err != nil {
		return err
	}

	a.l.WithFields(logrus.Fields{"id": id, "source": message.Folder, "destination": folder}).Info("Moved message on server")
	// if the destination is watched the message comes back as new, and its
	// notifications fire a second time
	return a.pipeline.Delete(ctx, id)
}

func (a *Aggregator) onServer(ctx context.Context, id string, action func(conn domain.ImapConnector, message *domain.Message) error) (*domain.Message, error) {
	if a.configuration.Dial == nil {
		return nil, fmt.Errorf("no dialer configured for server actions")
	}

	message, err := a.store.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not load message %s: %w", id, err)
	}

	account, err := a.store.GetAccount(ctx, message.AccountId)
	if err != nil {
		return nil, fmt.Errorf("could not load account %d: %w", message.AccountId, err)
	}

	conn, err := a.configuration.Dial(account)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", account.Name, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.l.WithFields(logrus.Fields{"account": account.Name, "error": err}).Warn("Could not close action session")
		}
	}()

	status, err := conn.Select(message.Folder)
	if err != nil {
		return nil, fmt.Errorf("could not select folder %s: %w", message.Folder, err)
	}
	if status.UidValidity != message.UidValidity {
		return nil, ErrUidValidityChanged
	}

	err = action(conn, message)
	if err != nil {
		return nil, err
	}

	return message, nil
}
