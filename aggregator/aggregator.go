// SPDX-License-Identifier: GPL-3.0-or-later
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"
	"github.com/CrawX/go-imap-onebox/mail"
	"github.com/CrawX/go-imap-onebox/mailbox"

	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRunning = errors.New("sync is already running")
	ErrNotRunning     = errors.New("sync is not running")
)

// Watcher keeps one account in sync. mailbox.Connection is the production
// implementation.
type Watcher interface {
	Start(ctx context.Context)
	Stop()
	RequestSync()
}

type WatcherFactory func(account *domain.Account, events chan<- mailbox.Event) Watcher

// NewWatcherFactory builds mailbox connections sharing one dialer and fetcher.
func NewWatcherFactory(dial mailbox.Dialer, fetcher mailbox.MessageFetcher, opts mailbox.Options) WatcherFactory {
	return func(account *domain.Account, events chan<- mailbox.Event) Watcher {
		return mailbox.NewConnection(account, dial, fetcher, events, opts)
	}
}

type command func(ctx context.Context, s *loopState)

// loopState is only touched by the run goroutine.
type loopState struct {
	events   chan mailbox.Event
	accounts map[int64]*domain.Account
	watchers map[int64]Watcher
	states   map[int64]domain.ConnectionState

	// fetched batches waiting for the forwarder, oldest first
	pending [][]*domain.Message
}

type Aggregator struct {
	store      domain.Store
	pipeline   domain.Pipeline
	publisher  domain.Publisher
	newWatcher WatcherFactory

	configuration *configuration

	lifecycle sync.Mutex
	running   bool
	cancel    context.CancelFunc
	loopDone  chan struct{}
	commands  chan command

	l *logrus.Logger
}

func NewAggregator(store domain.Store, pipeline domain.Pipeline, publisher domain.Publisher, newWatcher WatcherFactory, configFunc ...ConfigFunc) (*Aggregator, error) {
	config := defaultConfiguration()
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Aggregator{
		store:         store,
		pipeline:      pipeline,
		publisher:     publisher,
		newWatcher:    newWatcher,
		configuration: config,
		l:             log.Logger(log.LOG_AGGREGATOR),
	}, nil
}

// StartSync loads every active account and starts watching it. The context
// only bounds loading the accounts; the sync itself runs until StopSync.
func (a *Aggregator) StartSync(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.running {
		return ErrAlreadyRunning
	}

	accounts, err := a.store.LoadActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("could not load active accounts: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	state := &loopState{
		events:   make(chan mailbox.Event, a.configuration.EventBuffer),
		accounts: map[int64]*domain.Account{},
		watchers: map[int64]Watcher{},
		states:   map[int64]domain.ConnectionState{},
	}
	for _, account := range accounts {
		a.register(loopCtx, state, account)
	}

	a.running = true
	a.cancel = cancel
	a.loopDone = make(chan struct{})
	a.commands = make(chan command)
	go a.run(loopCtx, state, a.commands, a.loopDone)

	a.l.WithFields(logrus.Fields{"accounts": len(state.accounts), "watching": len(state.watchers)}).Info("Started sync")
	return nil
}

// StopSync stops every connection and waits for them. Nothing is handed to
// the pipeline once it returns.
func (a *Aggregator) StopSync() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if !a.running {
		return
	}

	a.cancel()
	<-a.loopDone
	a.running = false
	a.l.Info("Stopped sync")
}

// AddAccount persists a new account and, if sync is running and the account
// is active, starts watching it right away.
func (a *Aggregator) AddAccount(ctx context.Context, account *domain.Account) (int64, error) {
	if err := account.Validate(); err != nil {
		return 0, err
	}

	id, err := a.store.InsertAccount(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("could not save account %s: %w", account.Name, err)
	}

	registered := *account
	registered.Id = id
	account.Id = id

	err = a.do(func(ctx context.Context, s *loopState) {
		a.register(ctx, s, &registered)
	})
	if err != nil && !errors.Is(err, ErrNotRunning) {
		return id, err
	}

	return id, nil
}

// States reports the connection state of every known account. It is empty
// while sync is stopped.
func (a *Aggregator) States() map[int64]domain.ConnectionState {
	states := map[int64]domain.ConnectionState{}
	_ = a.do(func(_ context.Context, s *loopState) {
		for id := range s.accounts {
			states[id] = s.states[id]
		}
	})

	return states
}

func (a *Aggregator) do(cmd command) error {
	a.lifecycle.Lock()
	if !a.running {
		a.lifecycle.Unlock()
		return ErrNotRunning
	}
	commands, loopDone := a.commands, a.loopDone
	a.lifecycle.Unlock()

	finished := make(chan struct{})
	wrapped := func(ctx context.Context, s *loopState) {
		defer close(finished)
		cmd(ctx, s)
	}

	select {
	case commands <- wrapped:
		<-finished
		return nil
	case <-loopDone:
		return ErrNotRunning
	}
}

func (a *Aggregator) register(ctx context.Context, s *loopState, account *domain.Account) {
	s.accounts[account.Id] = account
	s.states[account.Id] = domain.Disconnected
	if !account.Active {
		a.l.WithFields(logrus.Fields{"account": account.Name}).Debug("Account is inactive, not watching")
		return
	}

	w := a.newWatcher(account, s.events)
	s.watchers[account.Id] = w
	w.Start(ctx)
}

func (a *Aggregator) run(ctx context.Context, s *loopState, commands <-chan command, done chan struct{}) {
	defer close(done)

	batches := make(chan []*domain.Message)
	forwarderDone := make(chan struct{})
	go a.forward(ctx, batches, forwarderDone)

	ticker := time.NewTicker(a.configuration.PollInterval)
	defer ticker.Stop()

	for {
		// nil unless a batch is waiting, so the send case only fires when there is work
		var forward chan<- []*domain.Message
		var next []*domain.Message
		if len(s.pending) > 0 {
			forward = batches
			next = s.pending[0]
		}

		select {
		case <-ctx.Done():
			for id, w := range s.watchers {
				w.Stop()
				s.states[id] = domain.Disconnected
			}
			if len(s.pending) > 0 {
				a.l.WithFields(logrus.Fields{"batches": len(s.pending)}).Debug("Dropping batches not yet forwarded")
			}
			close(batches)
			<-forwarderDone
			return
		case forward <- next:
			s.pending[0] = nil
			s.pending = s.pending[1:]
		case cmd := <-commands:
			cmd(ctx, s)
		case e := <-s.events:
			a.handleEvent(s, e)
		case <-ticker.C:
			a.l.WithFields(logrus.Fields{"watching": len(s.watchers)}).Debug("Requesting fallback sync")
			for _, w := range s.watchers {
				w.RequestSync()
			}
		}
	}
}

// forward hands batches to the pipeline one after another. It runs beside the
// loop so a slow collaborator never holds up commands or state events.
func (a *Aggregator) forward(ctx context.Context, batches <-chan []*domain.Message, done chan struct{}) {
	defer close(done)

	for batch := range batches {
		a.onMessagesFetched(ctx, batch)
	}
}

func (a *Aggregator) handleEvent(s *loopState, e mailbox.Event) {
	if _, ok := s.watchers[e.AccountId]; !ok {
		return
	}

	switch e.Kind {
	case mailbox.StateChanged:
		s.states[e.AccountId] = e.State
		a.l.WithFields(logrus.Fields{"account": s.accounts[e.AccountId].Name, "state": e.State}).Debug("Connection state changed")
	case mailbox.Fetched:
		if len(e.Messages) > 0 {
			s.pending = append(s.pending, e.Messages)
		}
	}
}

// onMessagesFetched forwards unseen messages one at a time, in the order the
// connection delivered them.
func (a *Aggregator) onMessagesFetched(ctx context.Context, messages []*domain.Message) {
	forwarded := 0
	for _, m := range messages {
		if ctx.Err() != nil {
			return
		}

		exists, err := a.store.MessageExists(ctx, m.Id)
		if err != nil {
			a.l.WithFields(logrus.Fields{"id": m.Id, "error": err}).Warn("Could not check for known message, processing anyway")
		} else if exists {
			a.l.WithFields(logrus.Fields{"id": m.Id}).Trace("Skipping known message")
			continue
		}

		err = a.pipeline.Process(ctx, m)
		if err != nil {
			a.l.WithFields(logrus.Fields{"id": m.Id, "subject": mail.ShortSubject(m.Subject), "error": err}).Error("Could not process message")
			continue
		}

		if a.publisher != nil {
			a.publisher.Publish(domain.NewLiveUpdate(m))
		}
		forwarded++
	}

	a.l.WithFields(logrus.Fields{"fetched": len(messages), "forwarded": forwarded}).Debug("Processed fetched messages")
}
