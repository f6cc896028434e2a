// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CrawX/go-imap-onebox/aggregator"
	"github.com/CrawX/go-imap-onebox/api"
	"github.com/CrawX/go-imap-onebox/classifier"
	"github.com/CrawX/go-imap-onebox/classifier/llm"
	"github.com/CrawX/go-imap-onebox/classifier/rspamd"
	"github.com/CrawX/go-imap-onebox/classifier/spamassassin"
	"github.com/CrawX/go-imap-onebox/config"
	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/fetcher"
	"github.com/CrawX/go-imap-onebox/imapconnection"
	"github.com/CrawX/go-imap-onebox/live"
	"github.com/CrawX/go-imap-onebox/log"
	"github.com/CrawX/go-imap-onebox/mailbox"
	"github.com/CrawX/go-imap-onebox/notify"
	"github.com/CrawX/go-imap-onebox/notify/slack"
	"github.com/CrawX/go-imap-onebox/notify/webhook"
	"github.com/CrawX/go-imap-onebox/persistence"
	"github.com/CrawX/go-imap-onebox/pipeline"
	"github.com/CrawX/go-imap-onebox/search"
	"github.com/CrawX/go-imap-onebox/semantic"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "config.toml", "path to the configuration file")
	flag.Parse()

	log.InitLogging("debug")
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.ReadConfig(*configFile)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	p, err := persistence.NewPersistence(conf.Database.Driver, conf.Database.Datasource)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to database")
	}
	defer p.Close()

	ctx := context.Background()
	seedAccounts(ctx, logger, p, conf.Account)

	opts, err := pipelineOptions(ctx, logger, conf)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not set up pipeline")
	}
	pl := pipeline.NewPipeline(p, opts...)
	hub := live.NewHub()

	dial := func(account *domain.Account) (domain.ImapConnector, error) {
		conn, err := imapconnection.Dial(account, imapconnection.DialOptions{
			ConnectTimeout: conf.Sync.ConnectTimeout,
			AuthTimeout:    conf.Sync.AuthTimeout,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	watchers := aggregator.NewWatcherFactory(dial, fetcher.NewFetcher(conf.Sync.MaxBatch), mailbox.Options{
		ReconnectDelay: conf.Sync.ReconnectDelay,
		KeepAlive:      conf.Sync.KeepAlive,
		LookbackDays:   conf.Sync.LookbackDays,
	})

	agg, err := aggregator.NewAggregator(p, pl, hub, watchers,
		aggregator.PollInterval(conf.Sync.PollInterval),
		aggregator.ActionDialer(dial),
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not create aggregator")
	}

	err = agg.StartSync(ctx)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start sync")
	}

	server := api.NewServer(p, agg, pl, hub, conf.Server.RequestsPerMin)
	go func() {
		if err := server.Listen(conf.Server.Listen); err != nil {
			logger.WithField("error", err).Fatal("Server stopped")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Warn("Could not shut down server cleanly")
	}
	agg.StopSync()
}

// seedAccounts stores configured accounts that are not in the database yet.
func seedAccounts(ctx context.Context, logger *logrus.Logger, store domain.Store, accounts []config.AccountConfig) {
	for _, a := range accounts {
		l := logger.WithField("account", a.Name)

		_, err := store.FindAccountByName(ctx, a.Name)
		if err == nil {
			l.Debug("Account already stored")
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			l.WithField("error", err).Fatal("Could not look up account")
		}

		account := &domain.Account{
			Name:     a.Name,
			Host:     a.Host,
			Port:     a.Port,
			TLS:      a.TLS,
			Username: a.Username,
			Password: a.Password,
			Folders:  a.Folders,
			Active:   a.Active,
		}
		if err := account.Validate(); err != nil {
			l.WithField("error", err).Fatal("Invalid account")
		}

		id, err := store.InsertAccount(ctx, account)
		if err != nil {
			l.WithField("error", err).Fatal("Could not store account")
		}
		l.WithFields(logrus.Fields{"id": id, "user": log.MaskAddress(a.Username)}).Info("Stored configured account")
	}
}

func pipelineOptions(ctx context.Context, logger *logrus.Logger, conf *config.Config) ([]pipeline.Option, error) {
	opts := []pipeline.Option{pipeline.WithDefaultLabel(conf.Classifier.DefaultLabel)}

	c := conf.Classifier
	if len(strings.TrimSpace(c.Endpoint)) > 0 {
		opts = append(opts, pipeline.WithClassifier(llm.NewClassifier(c.Endpoint, c.Model, c.ApiKey, c.DefaultLabel, c.Timeout), c.Timeout))
		logger.WithFields(logrus.Fields{"endpoint": c.Endpoint, "model": c.Model}).Info("Classifying with language model")
	} else {
		logger.Warn("No classifier endpoint configured, all messages get the default label")
	}

	switch {
	case len(strings.TrimSpace(c.SpamassassinHost)) > 0:
		sa, err := spamassassin.NewSpamassassin(c.SpamassassinHost)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSpamClassifier(&classifier.RetryingSpamClassifier{SpamClassifier: sa}))
	case len(strings.TrimSpace(c.RspamdController)) > 0:
		rs, err := rspamd.NewRspamd(c.RspamdController, c.RspamdPassword)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSpamClassifier(&classifier.RetryingSpamClassifier{SpamClassifier: rs}))
	}

	if len(conf.Elasticsearch.Addresses) > 0 {
		es := conf.Elasticsearch
		index, err := search.NewIndex(es.Addresses, es.Username, es.Password, es.Index)
		if err != nil {
			return nil, err
		}
		if err := index.EnsureIndex(ctx); err != nil {
			logger.WithField("error", err).Warn("Could not ensure search index, indexing will be retried per message")
		}
		opts = append(opts, pipeline.WithSearchIndex(index))
	}

	if len(strings.TrimSpace(conf.SemanticStore.Endpoint)) > 0 {
		s := conf.SemanticStore
		opts = append(opts, pipeline.WithSemanticStore(semantic.NewStore(s.Endpoint, s.ApiKey, s.Collection)))
	}

	sinks := []domain.Notifier{}
	if len(strings.TrimSpace(conf.Slack.Url)) > 0 {
		sinks = append(sinks, notify.NewFiltered(slack.NewSink(conf.Slack.Url), conf.Slack.Labels))
	}
	if len(strings.TrimSpace(conf.Webhook.Url)) > 0 {
		sinks = append(sinks, notify.NewFiltered(webhook.NewSink(conf.Webhook.Url), conf.Webhook.Labels))
	}
	if len(sinks) > 0 {
		opts = append(opts, pipeline.WithNotifier(notify.NewFanout(sinks...)))
	}

	return opts, nil
}
