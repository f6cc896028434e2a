// SPDX-License-Identifier: GPL-3.0-or-later
package fetcher

import (
	"errors"
	"io"
	"os"
	"path"
	"testing"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/domain/mocks"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/emersion/go-imap"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var (
	testAccount = &domain.Account{Id: 7, Name: "work"}
	testFolder  = &domain.FolderStatus{Name: "INBOX", UidValidity: 42}
	fetchTime   = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
)

func nullLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func testFetcher(maxBatch int) *Fetcher {
	return &Fetcher{
		maxBatch: maxBatch,
		now:      func() time.Time { return fetchTime },
		l:        nullLogger(),
	}
}

func readTestMail(t *testing.T, name string) []byte {
	rawMail, err := os.ReadFile(path.Join("testdata", name))
	assert.NoError(t, err)
	return rawMail
}

func TestFetcher_FetchSkipsBrokenMail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := mocks.NewMockImapConnector(ctrl)
	conn.EXPECT().
		FetchMails(gomock.Eq([]uint32{1, 2, 3})).
		Return([]*domain.RawImapMail{
			{Uid: 1, RawMail: readTestMail(t, "first.msg"), Flags: []string{imap.SeenFlag}},
			{Uid: 2, RawMail: readTestMail(t, "broken.msg")},
			{Uid: 3, RawMail: readTestMail(t, "nodate.msg"), Flags: []string{imap.FlaggedFlag}},
		}, nil)

	messages, err := testFetcher(50).Fetch(conn, testAccount, testFolder, []uint32{3, 1, 2})
	assert.NoError(t, err)
	assert.Len(t, messages, 2)

	first := messages[0]
	assert.Equal(t, "first@example.com", first.Id)
	assert.Equal(t, uint32(1), first.Uid)
	assert.Equal(t, int64(7), first.AccountId)
	assert.Equal(t, "INBOX", first.Folder)
	assert.Equal(t, uint32(42), first.UidValidity)
	assert.Equal(t, "First", first.Subject)
	assert.True(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC).Equal(first.Date))
	assert.Equal(t, int64(len("one")), first.Size)
	assert.True(t, first.Read)
	assert.False(t, first.Important)
	assert.Nil(t, first.Classification)

	third := messages[1]
	assert.Equal(t, uint32(3), third.Uid)
	assert.Equal(t, FallbackId(7, "INBOX", 42, 3), third.Id)
	assert.Equal(t, fetchTime, third.Date)
	assert.Equal(t, int64(len("three, four")), third.Size)
	assert.False(t, third.Read)
	assert.True(t, third.Important)
}

func TestFetcher_FetchUsesInternalDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	internal := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)
	conn := mocks.NewMockImapConnector(ctrl)
	conn.EXPECT().
		FetchMails(gomock.Any()).
		Return([]*domain.RawImapMail{{Uid: 5, RawMail: readTestMail(t, "nodate.msg"), InternalDate: internal}}, nil)

	messages, err := testFetcher(50).Fetch(conn, testAccount, testFolder, []uint32{5})
	assert.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, internal, messages[0].Date)
}

func TestFetcher_FetchCapsToMostRecent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := mocks.NewMockImapConnector(ctrl)
	conn.EXPECT().
		FetchMails(gomock.Eq([]uint32{8, 9, 10})).
		Return([]*domain.RawImapMail{}, nil)

	messages, err := testFetcher(3).Fetch(conn, testAccount, testFolder, []uint32{10, 1, 2, 9, 8, 3})
	assert.NoError(t, err)
	assert.Empty(t, messages)
}

func TestFetcher_FetchNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := mocks.NewMockImapConnector(ctrl)

	messages, err := testFetcher(3).Fetch(conn, testAccount, testFolder, nil)
	assert.NoError(t, err)
	assert.Empty(t, messages)
}

func TestFetcher_FetchTransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := mocks.NewMockImapConnector(ctrl)
	conn.EXPECT().
		FetchMails(gomock.Any()).
		Return(nil, errors.New("connection closed"))

	messages, err := testFetcher(3).Fetch(conn, testAccount, testFolder, []uint32{1})
	assert.Nil(t, messages)
	assert.EqualError(t, err, "could not fetch mails: connection closed")
}

func TestFallbackId(t *testing.T) {
	id := FallbackId(1, "INBOX", 2, 3)
	assert.Equal(t, id, FallbackId(1, "INBOX", 2, 3))
	assert.NotEqual(t, id, FallbackId(1, "INBOX", 2, 4))
	assert.NotEqual(t, id, FallbackId(1, "Sent", 2, 3))
	assert.Len(t, id, 36)
}

func TestToMessage_IdFallbacks(t *testing.T) {
	raw := &domain.RawImapMail{Uid: 3}

	tests := []struct {
		name     string
		parsed   *mail.ParsedMail
		expected string
	}{
		{"message id", &mail.ParsedMail{MessageId: "a@example.com", IdHash: "abc"}, "a@example.com"},
		{"received trail", &mail.ParsedMail{IdHash: "abc"}, "abc"},
		{"server position", &mail.ParsedMail{}, FallbackId(7, "INBOX", 42, 3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, toMessage(testAccount, testFolder, raw, tc.parsed, fetchTime).Id)
		})
	}

	// a moved mail keeps its id when it carries a Received trail
	archive := &domain.FolderStatus{Name: "Archive", UidValidity: 9}
	parsed := &mail.ParsedMail{IdHash: "abc"}
	assert.Equal(t,
		toMessage(testAccount, testFolder, raw, parsed, fetchTime).Id,
		toMessage(testAccount, archive, &domain.RawImapMail{Uid: 80}, parsed, fetchTime).Id)
}
