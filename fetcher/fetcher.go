// SPDX-License-Identifier: GPL-3.0-or-later
package fetcher

import (
	"fmt"
	"sort"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/emersion/go-imap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultMaxBatch = 50

// messageNamespace seeds the UUIDv5 ids of mails without a Message-Id header.
var messageNamespace = uuid.MustParse("6f2b1f5e-8d3a-4c1e-9b7a-2f4d5e6a7b8c")

type Fetcher struct {
	maxBatch int
	now      func() time.Time
	l        *logrus.Logger
}

func NewFetcher(maxBatch int) *Fetcher {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Fetcher{
		maxBatch: maxBatch,
		now:      time.Now,
		l:        log.Logger(log.LOG_IMAP),
	}
}

// Fetch retrieves and parses the most recent uids of the selected folder. Mails that fail
// to parse are logged and skipped, only a failing transport fails the whole batch. The
// result is ordered by uid.
func (f *Fetcher) Fetch(conn domain.ImapConnector, account *domain.Account, folder *domain.FolderStatus, uids []uint32) ([]*domain.Message, error) {
	uids = f.cap(uids)
	if len(uids) == 0 {
		return []*domain.Message{}, nil
	}

	logger := f.l.WithFields(logrus.Fields{"account": account.Name, "folder": folder.Name})
	logger.WithField("count", len(uids)).Debug("Fetching mails")

	rawMails, err := conn.FetchMails(uids)
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}

	fetchedAt := f.now()
	messages := []*domain.Message{}
	for _, raw := range rawMails {
		parsed, err := mail.ParseMail(raw.RawMail)
		if err != nil {
			logger.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not parse mail, skipping")
			continue
		}

		messages = append(messages, toMessage(account, folder, raw, parsed, fetchedAt))
	}

	logger.WithFields(logrus.Fields{"requested": len(uids), "parsed": len(messages)}).Debug("Fetched mails")
	return messages, nil
}

func (f *Fetcher) cap(uids []uint32) []uint32 {
	sorted := append([]uint32{}, uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(sorted) > f.maxBatch {
		sorted = sorted[len(sorted)-f.maxBatch:]
	}
	return sorted
}

func toMessage(account *domain.Account, folder *domain.FolderStatus, raw *domain.RawImapMail, parsed *mail.ParsedMail, fetchedAt time.Time) *domain.Message {
	// the Received trail survives moves between folders, the server position does not
	id := parsed.MessageId
	if len(id) == 0 {
		id = parsed.IdHash
	}
	if len(id) == 0 {
		id = FallbackId(account.Id, folder.Name, folder.UidValidity, raw.Uid)
	}

	date := parsed.Date
	if date.IsZero() {
		date = raw.InternalDate
	}
	if date.IsZero() {
		date = fetchedAt
	}

	return &domain.Message{
		Id:          id,
		AccountId:   account.Id,
		Folder:      folder.Name,
		Uid:         raw.Uid,
		UidValidity: folder.UidValidity,
		Subject:     parsed.Subject,
		From:        parsed.From,
		To:          parsed.To,
		Cc:          parsed.Cc,
		Bcc:         parsed.Bcc,
		Date:        date,
		Size:        int64(len(parsed.TextBody)),
		Flags:       raw.Flags,
		TextBody:    parsed.TextBody,
		HtmlBody:    parsed.HtmlBody,
		Attachments: parsed.Attachments,
		Read:        hasFlag(raw.Flags, imap.SeenFlag),
		Important:   hasFlag(raw.Flags, imap.FlaggedFlag),
		RawMail:     raw.RawMail,
	}
}

// FallbackId derives a stable id from the mail's position on the server, so refetching the
// same mail yields the same id.
func FallbackId(accountId int64, folder string, uidValidity, uid uint32) string {
	name := fmt.Sprintf("%d/%s/%d/%d", accountId, folder, uidValidity, uid)
	return uuid.NewSHA1(messageNamespace, []byte(name)).String()
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
