// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/emersion/go-imap"
	compress "github.com/emersion/go-imap-compress"
	move "github.com/emersion/go-imap-move"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

type DialOptions struct {
	ConnectTimeout time.Duration
	AuthTimeout    time.Duration
}

type ImapConnection struct {
	connection *client.Client
	remover    remover
	relocator  relocator

	changes chan struct{}

	l *logrus.Entry
}

// Dial connects and authenticates. Connect and login are bounded by the given timeouts,
// afterwards the connection has no deadline so IDLE can block for long.
func Dial(account *domain.Account, opts DialOptions) (*ImapConnection, error) {
	l := log.Logger(log.LOG_IMAP).WithFields(logrus.Fields{
		"account": account.Name,
		"server":  account.Address(),
		"user":    log.MaskAddress(account.Username),
	})

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	var imapClient *client.Client
	var err error
	if account.TLS {
		imapClient, err = client.DialWithDialerTLS(dialer, account.Address(), &tls.Config{ServerName: account.Host})
	} else {
		imapClient, err = client.DialWithDialer(dialer, account.Address())
	}
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w", err)
	}

	updates := make(chan client.Update, 32)
	imapClient.Updates = updates

	imapClient.Timeout = opts.AuthTimeout
	err = imapClient.Login(account.Username, account.Password)
	if err != nil {
		_ = imapClient.Terminate()
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}
	imapClient.Timeout = 0

	conn := &ImapConnection{
		connection: imapClient,
		changes:    make(chan struct{}, 1),
		l:          l,
	}
	go conn.pumpUpdates(updates)

	l.Debug("Logged in to server")

	compressClient := compress.NewClient(imapClient)
	compressSupported, err := compressClient.SupportCompress(compress.Deflate)
	if err != nil {
		_ = imapClient.Terminate()
		return nil, fmt.Errorf("could not check for COMPRESS support: %w", err)
	}
	if compressSupported {
		if err := compressClient.Compress(compress.Deflate); err != nil {
			l.WithField("error", err).Warn("Could not enable COMPRESS=DEFLATE, continuing uncompressed")
		} else {
			l.Debug("COMPRESS=DEFLATE enabled")
		}
	}

	if err := conn.setupStrategies(imapClient); err != nil {
		_ = imapClient.Terminate()
		return nil, err
	}

	return conn, nil
}

func (ic *ImapConnection) setupStrategies(imapClient *client.Client) error {
	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		return fmt.Errorf("could not check for UIDPLUS support: %w", err)
	}

	mover := move.NewClient(imapClient)
	moveSupported, err := mover.SupportMove()
	if err != nil {
		return fmt.Errorf("could not check for MOVE support: %w", err)
	}

	server := serverClient{imapClient}
	if uidPlusSupported {
		ic.l.Debug("UIDPLUS supported on server, using UID EXPUNGE")
		ic.remover = &uidExpungeRemover{conn: uidPlusConnection{server, uidPlusClient}}
	} else {
		ic.l.Debug("UIDPLUS not supported on server, falling back to flag&expunge")
		ic.remover = &flagExpungeRemover{conn: server}
	}

	if moveSupported {
		ic.l.Debug("MOVE supported on server")
		ic.relocator = &nativeRelocator{conn: mover}
	} else {
		ic.l.Debug("MOVE not supported on server, falling back to copy&delete")
		ic.relocator = &copyRelocator{conn: copyConnection{ic.remover, server}}
	}

	return nil
}

// pumpUpdates drains the client's update channel so the reader never blocks and turns
// mailbox and message updates into coalesced change signals.
func (ic *ImapConnection) pumpUpdates(updates <-chan client.Update) {
	loggedOut := ic.connection.LoggedOut()
	for {
		select {
		case update := <-updates:
			switch update.(type) {
			case *client.MailboxUpdate, *client.MessageUpdate:
				select {
				case ic.changes <- struct{}{}:
				default:
				}
			}
		case <-loggedOut:
			return
		}
	}
}

func (ic *ImapConnection) Changes() <-chan struct{} {
	return ic.changes
}

func (ic *ImapConnection) Select(folder string) (*domain.FolderStatus, error) {
	m, err := ic.connection.Select(folder, false)
	if err != nil {
		return nil, fmt.Errorf("could not select folder: %w", err)
	}

	return &domain.FolderStatus{
		Name:        folder,
		UidValidity: m.UidValidity,
		UidNext:     m.UidNext,
		Messages:    m.Messages,
	}, nil
}

func (ic *ImapConnection) SearchSince(since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search folder: %w", err)
	}

	return uids, nil
}

func (ic *ImapConnection) SearchAfterUid(uid uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = &imap.SeqSet{}
	criteria.Uid.AddRange(uid+1, 0)
	uids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search folder: %w", err)
	}

	// "n:*" always matches the last message, even if its uid is below n
	return uidsAbove(uids, uid), nil
}

func uidsAbove(uids []uint32, uid uint32) []uint32 {
	result := []uint32{}
	for _, u := range uids {
		if u > uid {
			result = append(result, u)
		}
	}
	return result
}

func (ic *ImapConnection) FetchMails(uids []uint32) ([]*domain.RawImapMail, error) {
	if len(uids) == 0 {
		return []*domain.RawImapMail{}, nil
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}

	fetchItems := []imap.FetchItem{
		fullBodySection.FetchItem(),
		imap.FetchUid,
		imap.FetchFlags,
		imap.FetchInternalDate,
	}
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	mails := []*domain.RawImapMail{}
	var readErr error
	for msg := range messages {
		if readErr != nil {
			continue
		}
		r := msg.GetBody(fullBodySection)
		if r == nil {
			ic.l.WithField("uid", msg.Uid).Warn("Server returned no body, skipping")
			continue
		}
		rawBody, err := io.ReadAll(r)
		if err != nil {
			readErr = fmt.Errorf("could not read mail body: %w", err)
			continue
		}

		mails = append(
			mails,
			&domain.RawImapMail{
				Uid:          msg.Uid,
				Flags:        msg.Flags,
				InternalDate: msg.InternalDate,
				RawMail:      rawBody,
			},
		)
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	sort.Slice(mails, func(i, j int) bool { return mails[i].Uid < mails[j].Uid })
	return mails, nil
}

func (ic *ImapConnection) Idle(stop <-chan struct{}) error {
	err := ic.connection.Idle(stop, nil)
	if err != nil {
		return fmt.Errorf("could not idle: %w", err)
	}
	return nil
}

func (ic *ImapConnection) Noop() error {
	err := ic.connection.Noop()
	if err != nil {
		return fmt.Errorf("could not noop: %w", err)
	}
	return nil
}

func (ic *ImapConnection) Close() error {
	err := ic.connection.Logout()
	if err != nil {
		return fmt.Errorf("could not logout: %w", err)
	}
	return nil
}

// Terminate closes the transport without logging out, unblocking pending commands.
func (ic *ImapConnection) Terminate() error {
	err := ic.connection.Terminate()
	if err != nil {
		return fmt.Errorf("could not terminate connection: %w", err)
	}
	return nil
}

func (ic *ImapConnection) Delete(uids []uint32) error {
	return ic.remover.remove(uids)
}

func (ic *ImapConnection) DeleteReady() (error, error) {
	return ic.remover.removeReady()
}

func (ic *ImapConnection) Move(uids []uint32, folder string) error {
	return ic.relocator.relocate(uids, folder)
}

func (ic *ImapConnection) MoveReady() (error, error) {
	return ic.relocator.relocateReady()
}
