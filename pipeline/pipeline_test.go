// SPDX-License-Identifier: GPL-3.0-or-later
package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/domain/mocks"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type collaborators struct {
	store      *mocks.MockStore
	spam       *mocks.MockSpamClassifier
	classifier *mocks.MockClassifier
	index      *mocks.MockSearchIndex
	semantic   *mocks.MockSemanticStore
	notifier   *mocks.MockNotifier
}

func nullLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func setup(t *testing.T) (*gomock.Controller, *Pipeline, *collaborators) {
	log.InitLogging("error")
	ctrl := gomock.NewController(t)
	c := &collaborators{
		store:      mocks.NewMockStore(ctrl),
		spam:       mocks.NewMockSpamClassifier(ctrl),
		classifier: mocks.NewMockClassifier(ctrl),
		index:      mocks.NewMockSearchIndex(ctrl),
		semantic:   mocks.NewMockSemanticStore(ctrl),
		notifier:   mocks.NewMockNotifier(ctrl),
	}

	p := NewPipeline(
		c.store,
		WithSpamClassifier(c.spam),
		WithClassifier(c.classifier, time.Second),
		WithSearchIndex(c.index),
		WithSemanticStore(c.semantic),
		WithNotifier(c.notifier),
	)
	p.l = nullLogger()
	return ctrl, p, c
}

func testMessage() *domain.Message {
	return &domain.Message{
		Id:       "m1",
		Subject:  "Pricing",
		From:     "bob@example.com",
		TextBody: "What does it cost?",
		RawMail:  []byte("raw"),
	}
}

func TestProcess(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()
	expected := &domain.Classification{Label: domain.LabelInterested, Confidence: 0.9}

	gomock.InOrder(
		c.spam.EXPECT().Check([]byte("raw")).Return(&domain.SpamResult{IsSpam: false, Score: 1}),
		c.classifier.EXPECT().Classify(gomock.Any(), "Pricing", "What does it cost?", "bob@example.com").Return(expected, nil),
		c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil),
		c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(nil),
		c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(nil),
		c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil),
	)

	assert.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, expected, m.Classification)
}

func TestProcess_ClassifierFailureStoresDefaultLabel(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).DoAndReturn(func(_ context.Context, stored *domain.Message) error {
		assert.Equal(t, &domain.Classification{Label: domain.LabelUncategorized}, stored.Classification)
		return nil
	})
	c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(nil)
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(nil)
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil)

	assert.NoError(t, p.Process(context.Background(), m))
}

func TestProcess_UnknownLabelStoresDefaultLabel(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	p.defaultLabel = "Later"
	m := testMessage()

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Classification{Label: "Urgent"}, nil)
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)
	c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(nil)
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(nil)
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil)

	assert.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, "Later", m.Classification.Label)
}

func TestProcess_SpamSkipsClassifier(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()

	c.spam.EXPECT().Check([]byte("raw")).Return(&domain.SpamResult{IsSpam: true, Score: 12})
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)
	c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(nil)
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(nil)
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil)

	assert.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, &domain.Classification{Label: domain.LabelSpam, Confidence: 1}, m.Classification)
}

func TestProcess_SpamCheckErrorFallsThrough(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{Error: errors.New("spamd down")})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Classification{Label: domain.LabelNotInterested, Confidence: 0.6}, nil)
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)
	c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(nil)
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(nil)
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil)

	assert.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, domain.LabelNotInterested, m.Classification.Label)
}

func TestProcess_StoreFailureIsReturned(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Classification{Label: domain.LabelInterested}, nil)
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(errors.New("disk full"))

	err := p.Process(context.Background(), m)
	assert.EqualError(t, err, "could not store message m1: disk full")
}

func TestProcess_DownstreamFailuresAreTolerated(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	m := testMessage()

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Classification{Label: domain.LabelInterested}, nil)
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)
	c.index.EXPECT().IndexMessage(gomock.Any(), m).Return(errors.New("index down"))
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).Return(errors.New("vector store down"))
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(errors.New("slack down"))

	assert.NoError(t, p.Process(context.Background(), m))
}

func TestProcess_HungDownstreamIsCutOff(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	p.indexTimeout = 50 * time.Millisecond
	m := testMessage()

	waitForDeadline := func(ctx context.Context, _ *domain.Message) error {
		<-ctx.Done()
		return ctx.Err()
	}

	c.spam.EXPECT().Check(gomock.Any()).Return(&domain.SpamResult{})
	c.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Classification{Label: domain.LabelInterested}, nil)
	c.store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)
	c.index.EXPECT().IndexMessage(gomock.Any(), m).DoAndReturn(waitForDeadline)
	c.semantic.EXPECT().StoreMessage(gomock.Any(), m).DoAndReturn(waitForDeadline)
	c.notifier.EXPECT().Notify(gomock.Any(), domain.EventNewMessage, m).Return(nil)

	done := make(chan error, 1)
	go func() {
		done <- p.Process(context.Background(), m)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Process did not return while the index hung")
	}
}

func TestProcess_StoreOnly(t *testing.T) {
	log.InitLogging("error")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	p := NewPipeline(store, WithDefaultLabel(domain.LabelOutOfOffice))
	m := testMessage()
	store.EXPECT().UpsertMessage(gomock.Any(), m).Return(nil)

	assert.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, domain.LabelOutOfOffice, m.Classification.Label)
}

func TestClassifierBreakerOpens(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()
	p.spam = nil

	c.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unavailable")).
		Times(breakerFailures)

	for i := 0; i < breakerFailures+3; i++ {
		assert.Equal(t, domain.LabelUncategorized, p.classify(context.Background(), testMessage()).Label)
	}
}

func TestDelete(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()

	gomock.InOrder(
		c.store.EXPECT().DeleteMessage(gomock.Any(), "m1").Return(nil),
		c.index.EXPECT().DeleteMessage(gomock.Any(), "m1").Return(errors.New("index down")),
	)
	assert.NoError(t, p.Delete(context.Background(), "m1"))

	gomock.InOrder(
		c.store.EXPECT().DeleteMessage(gomock.Any(), "m2").Return(domain.ErrNotFound),
		c.index.EXPECT().DeleteMessage(gomock.Any(), "m2").Return(nil),
	)
	assert.ErrorIs(t, p.Delete(context.Background(), "m2"), domain.ErrNotFound)

	c.store.EXPECT().DeleteMessage(gomock.Any(), "m3").Return(errors.New("locked"))
	assert.EqualError(t, p.Delete(context.Background(), "m3"), "could not delete message m3: locked")
}

func TestSetFlags(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()

	read := true
	c.store.EXPECT().SetFlags(gomock.Any(), "m1", domain.MessageFlags{Read: &read}).Return(nil)
	assert.NoError(t, p.SetFlags(context.Background(), "m1", domain.MessageFlags{Read: &read}))

	c.store.EXPECT().SetFlags(gomock.Any(), "m2", gomock.Any()).Return(domain.ErrNotFound)
	assert.ErrorIs(t, p.SetFlags(context.Background(), "m2", domain.MessageFlags{}), domain.ErrNotFound)
}

func TestHealth(t *testing.T) {
	ctrl, p, c := setup(t)
	defer ctrl.Finish()

	c.store.EXPECT().Ping(gomock.Any()).Return(nil)
	c.index.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	c.semantic.EXPECT().Ping(gomock.Any()).Return(nil)

	assert.Equal(t, []ComponentHealth{
		{Name: "store", Healthy: true},
		{Name: "index", Healthy: false, Error: "connection refused"},
		{Name: "semantic", Healthy: true},
	}, p.Health(context.Background()))
}
