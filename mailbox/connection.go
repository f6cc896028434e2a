// SPDX-License-Identifier: GPL-3.0-or-later
package mailbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/sirupsen/logrus"
)

type EventKind int

const (
	StateChanged = EventKind(iota)
	Fetched
)

// Event is the only way a connection talks to its owner.
type Event struct {
	AccountId int64
	Kind      EventKind
	State     domain.ConnectionState
	Folder    string
	Messages  []*domain.Message
}

type Dialer func(account *domain.Account) (domain.ImapConnector, error)

type MessageFetcher interface {
	Fetch(conn domain.ImapConnector, account *domain.Account, folder *domain.FolderStatus, uids []uint32) ([]*domain.Message, error)
}

type Options struct {
	ReconnectDelay time.Duration
	KeepAlive      time.Duration
	LookbackDays   int
}

type Connection struct {
	account *domain.Account
	dial    Dialer
	fetcher MessageFetcher
	events  chan<- Event
	opts    Options
	now     func() time.Time

	state        atomic.Int32
	syncRequests chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	conn   domain.ImapConnector

	// owned by the run loop
	selected string
	folders  map[string]*domain.FolderStatus
	lastUids map[string]uint32

	l *logrus.Entry
}

func NewConnection(account *domain.Account, dial Dialer, fetcher MessageFetcher, events chan<- Event, opts Options) *Connection {
	return &Connection{
		account:      account,
		dial:         dial,
		fetcher:      fetcher,
		events:       events,
		opts:         opts,
		now:          time.Now,
		syncRequests: make(chan struct{}, 1),
		l: log.Logger(log.LOG_IMAP).WithFields(logrus.Fields{
			"account": account.Name,
			"user":    log.MaskAddress(account.Username),
		}),
	}
}

// Start launches the connection loop. Starting a running connection does nothing.
func (c *Connection) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Stop tears the transport down and waits for the loop to exit. It is safe to call on a
// stopped or never started connection.
func (c *Connection) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Terminate()
	}
	<-done
}

func (c *Connection) State() domain.ConnectionState {
	return domain.ConnectionState(c.state.Load())
}

// RequestSync asks the watch loop to check every folder for new mail. Requests are coalesced.
func (c *Connection) RequestSync() {
	select {
	case c.syncRequests <- struct{}{}:
	default:
	}
}

func (c *Connection) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.state.Store(int32(domain.Disconnected))

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.l.Debug("Connection stopped")
			return
		}

		c.l.WithFields(logrus.Fields{"error": err, "delay": c.opts.ReconnectDelay}).Warn("Mailbox session failed, reconnecting")
		c.setState(ctx, domain.ReconnectPending)

		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Connection) session(ctx context.Context) error {
	c.setState(ctx, domain.Connecting)

	conn, err := c.dialContext(ctx)
	if err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}
	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		_ = conn.Terminate()
	}()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.selected = ""
	c.folders = map[string]*domain.FolderStatus{}
	c.lastUids = map[string]uint32{}

	c.setState(ctx, domain.Ready)
	c.l.Info("Connected to mailbox")

	err = c.lookback(ctx, conn)
	if err != nil {
		return err
	}

	return c.watch(ctx, conn)
}

// dialContext abandons a dial in progress on cancellation, the late connection is terminated.
func (c *Connection) dialContext(ctx context.Context) (domain.ImapConnector, error) {
	type dialResult struct {
		conn domain.ImapConnector
		err  error
	}

	results := make(chan dialResult, 1)
	go func() {
		conn, err := c.dial(c.account)
		results <- dialResult{conn, err}
	}()

	select {
	case r := <-results:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-results; r.conn != nil {
				_ = r.conn.Terminate()
			}
		}()
		return nil, ctx.Err()
	}
}

func (c *Connection) lookback(ctx context.Context, conn domain.ImapConnector) error {
	since := c.now().AddDate(0, 0, -c.opts.LookbackDays)
	for _, folder := range c.account.WatchedFolders() {
		status, err := c.selectFolder(conn, folder)
		if err != nil {
			return err
		}

		uids, err := conn.SearchSince(since)
		if err != nil {
			return fmt.Errorf("could not search %s: %w", folder, err)
		}

		c.l.WithFields(logrus.Fields{"folder": folder, "count": len(uids), "since": since.Format("2006-01-02")}).Debug("Look-back search done")

		err = c.fetchAndEmit(ctx, conn, status, uids)
		if err != nil {
			return err
		}

		last := maxUid(uids)
		if status.UidNext > 0 && status.UidNext-1 > last {
			last = status.UidNext - 1
		}
		c.lastUids[folder] = last
	}

	return nil
}

type wakeReason int

const (
	wakeChanged = wakeReason(iota)
	wakeSyncRequested
	wakeKeepAlive
	wakeIdleEnded
)

func (c *Connection) watch(ctx context.Context, conn domain.ImapConnector) error {
	folders := c.account.WatchedFolders()
	primary := folders[0]

	for {
		if _, err := c.selectFolder(conn, primary); err != nil {
			return err
		}
		c.setState(ctx, domain.Watching)

		reason, err := c.idle(ctx, conn)
		if err != nil {
			return err
		}

		switch reason {
		case wakeChanged:
			err = c.burst(ctx, conn, primary)
		case wakeSyncRequested:
			// the primary folder stays selected while idling, select it again so a
			// changed UIDVALIDITY shows up
			c.selected = ""
			for _, folder := range folders {
				if err = c.burst(ctx, conn, folder); err != nil {
					break
				}
			}
		case wakeKeepAlive:
			err = conn.Noop()
			for _, folder := range folders[1:] {
				if err != nil {
					break
				}
				err = c.burst(ctx, conn, folder)
			}
		}
		if err != nil {
			return err
		}
	}
}

// idle waits in IDLE until something needs attention. IDLE is always finished before it
// returns, so the caller owns the connection again.
func (c *Connection) idle(ctx context.Context, conn domain.ImapConnector) (wakeReason, error) {
	stop := make(chan struct{})
	idleDone := make(chan error, 1)
	go func() {
		idleDone <- conn.Idle(stop)
	}()

	keepAlive := time.NewTimer(c.opts.KeepAlive)
	defer keepAlive.Stop()

	var reason wakeReason
	select {
	case <-ctx.Done():
		close(stop)
		<-idleDone
		return 0, ctx.Err()
	case err := <-idleDone:
		if err != nil {
			return 0, err
		}
		return wakeIdleEnded, nil
	case <-conn.Changes():
		reason = wakeChanged
	case <-c.syncRequests:
		reason = wakeSyncRequested
	case <-keepAlive.C:
		reason = wakeKeepAlive
	}

	close(stop)
	if err := <-idleDone; err != nil {
		return 0, err
	}
	return reason, nil
}

func (c *Connection) burst(ctx context.Context, conn domain.ImapConnector, folder string) error {
	status, err := c.selectFolder(conn, folder)
	if err != nil {
		return err
	}
	c.setState(ctx, domain.Fetching)

	last := c.lastUids[folder]
	uids, err := conn.SearchAfterUid(last)
	if err != nil {
		return fmt.Errorf("could not search %s: %w", folder, err)
	}
	if len(uids) == 0 {
		return nil
	}

	c.l.WithFields(logrus.Fields{"folder": folder, "count": len(uids)}).Debug("New mails")
	err = c.fetchAndEmit(ctx, conn, status, uids)
	if err != nil {
		return err
	}

	if m := maxUid(uids); m > last {
		c.lastUids[folder] = m
	}
	return nil
}

func (c *Connection) selectFolder(conn domain.ImapConnector, folder string) (*domain.FolderStatus, error) {
	if status, ok := c.folders[folder]; ok && c.selected == folder {
		return status, nil
	}

	status, err := conn.Select(folder)
	if err != nil {
		return nil, fmt.Errorf("could not select %s: %w", folder, err)
	}

	if previous, ok := c.folders[folder]; ok && previous.UidValidity != status.UidValidity {
		c.l.WithFields(logrus.Fields{"folder": folder, "old": previous.UidValidity, "new": status.UidValidity}).Warn("UIDVALIDITY changed, rescanning folder")
		c.lastUids[folder] = 0
	}

	c.folders[folder] = status
	c.selected = folder
	return status, nil
}

func (c *Connection) fetchAndEmit(ctx context.Context, conn domain.ImapConnector, status *domain.FolderStatus, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	messages, err := c.fetcher.Fetch(conn, c.account, status, uids)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	return c.emit(ctx, Event{Kind: Fetched, Folder: status.Name, Messages: messages})
}

func (c *Connection) setState(ctx context.Context, state domain.ConnectionState) {
	if domain.ConnectionState(c.state.Swap(int32(state))) == state {
		return
	}
	_ = c.emit(ctx, Event{Kind: StateChanged, State: state})
}

func (c *Connection) emit(ctx context.Context, event Event) error {
	event.AccountId = c.account.Id
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) setConn(conn domain.ImapConnector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func maxUid(uids []uint32) uint32 {
	var m uint32
	for _, u := range uids {
		if u > m {
			m = u
		}
	}
	return m
}
