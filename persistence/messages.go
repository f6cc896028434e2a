// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/mail"

	"github.com/sirupsen/logrus"
)

const messageColumns = `id, account_id, folder, uid, uidvalidity, subject, sender, recipients, cc, bcc, date_unix, size, flags, text_body, html_body, attachments, label, confidence, is_read, important`

type messageRow struct {
	Id          string
	AccountId   int64  `db:"account_id"`
	Folder      string
	Uid         uint32
	UidValidity uint32 `db:"uidvalidity"`
	Subject     string
	Sender      string
	Recipients  string
	Cc          string
	Bcc         string
	DateUnix    int64 `db:"date_unix"`
	Size        int64
	Flags       string
	TextBody    string `db:"text_body"`
	HtmlBody    string `db:"html_body"`
	Attachments string
	Label       sql.NullString
	Confidence  sql.NullFloat64
	IsRead      bool `db:"is_read"`
	Important   bool
}

func newMessageRow(m *domain.Message) (*messageRow, error) {
	row := &messageRow{
		Id:          m.Id,
		AccountId:   m.AccountId,
		Folder:      m.Folder,
		Uid:         m.Uid,
		UidValidity: m.UidValidity,
		Subject:     m.Subject,
		Sender:      m.From,
		Size:        m.Size,
		TextBody:    m.TextBody,
		HtmlBody:    m.HtmlBody,
		IsRead:      m.Read,
		Important:   m.Important,
	}
	if !m.Date.IsZero() {
		row.DateUnix = m.Date.Unix()
	}
	if m.Classification != nil {
		row.Label = sql.NullString{String: m.Classification.Label, Valid: true}
		row.Confidence = sql.NullFloat64{Float64: m.Classification.Confidence, Valid: true}
	}

	encoded := []struct {
		target *string
		value  interface{}
	}{
		{&row.Recipients, nonNilStrings(m.To)},
		{&row.Cc, nonNilStrings(m.Cc)},
		{&row.Bcc, nonNilStrings(m.Bcc)},
		{&row.Flags, nonNilStrings(m.Flags)},
		{&row.Attachments, nonNilAttachments(m.Attachments)},
	}
	for _, e := range encoded {
		b, err := json.Marshal(e.value)
		if err != nil {
			return nil, fmt.Errorf("could not encode message %s: %w", m.Id, err)
		}
		*e.target = string(b)
	}

	return row, nil
}

func (r *messageRow) toDomain() (*domain.Message, error) {
	m := &domain.Message{
		Id:          r.Id,
		AccountId:   r.AccountId,
		Folder:      r.Folder,
		Uid:         r.Uid,
		UidValidity: r.UidValidity,
		Subject:     r.Subject,
		From:        r.Sender,
		Size:        r.Size,
		TextBody:    r.TextBody,
		HtmlBody:    r.HtmlBody,
		Read:        r.IsRead,
		Important:   r.Important,
	}
	if r.DateUnix != 0 {
		m.Date = time.Unix(r.DateUnix, 0).UTC()
	}
	if r.Label.Valid {
		m.Classification = &domain.Classification{Label: r.Label.String, Confidence: r.Confidence.Float64}
	}

	decoded := []struct {
		value  string
		target interface{}
	}{
		{r.Recipients, &m.To},
		{r.Cc, &m.Cc},
		{r.Bcc, &m.Bcc},
		{r.Flags, &m.Flags},
		{r.Attachments, &m.Attachments},
	}
	for _, d := range decoded {
		if err := json.Unmarshal([]byte(d.value), d.target); err != nil {
			return nil, fmt.Errorf("could not decode message %s: %w", r.Id, err)
		}
	}

	return m, nil
}

func (p *Persistence) UpsertMessage(ctx context.Context, message *domain.Message) error {
	row, err := newMessageRow(message)
	if err != nil {
		return err
	}

	_, err = p.db.NamedExecContext(
		ctx,
		`INSERT INTO messages (`+messageColumns+`)
		VALUES (:id, :account_id, :folder, :uid, :uidvalidity, :subject, :sender, :recipients, :cc, :bcc, :date_unix, :size, :flags, :text_body, :html_body, :attachments, :label, :confidence, :is_read, :important)
		ON CONFLICT (id) DO UPDATE SET
			folder = excluded.folder,
			uid = excluded.uid,
			uidvalidity = excluded.uidvalidity,
			subject = excluded.subject,
			sender = excluded.sender,
			recipients = excluded.recipients,
			cc = excluded.cc,
			bcc = excluded.bcc,
			date_unix = excluded.date_unix,
			size = excluded.size,
			flags = excluded.flags,
			text_body = excluded.text_body,
			html_body = excluded.html_body,
			attachments = excluded.attachments,
			label = excluded.label,
			confidence = excluded.confidence,
			is_read = excluded.is_read,
			important = excluded.important`,
		row,
	)
	if err != nil {
		return fmt.Errorf("could not save message: %w", err)
	}

	p.l.WithFields(logrus.Fields{"id": message.Id, "folder": message.Folder, "subject": mail.ShortSubject(message.Subject)}).Debug("Persisted message")
	return nil
}

func (p *Persistence) MessageExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := p.db.GetContext(ctx, &count, p.db.Rebind(`SELECT COUNT(*) FROM messages WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("could not query db: %w", err)
	}

	return count > 0, nil
}

func (p *Persistence) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	row := messageRow{}
	err := p.db.GetContext(ctx, &row, p.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return row.toDomain()
}

// ListMessages returns the newest messages first.
func (p *Persistence) ListMessages(ctx context.Context, filter *domain.MessageFilter, page domain.Page) (*domain.MessagePage, error) {
	where, args := filterClause(filter)

	var total int
	err := p.db.GetContext(ctx, &total, p.db.Rebind(`SELECT COUNT(*) FROM messages`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("could not count messages: %w", err)
	}

	rows := []messageRow{}
	err = p.db.SelectContext(
		ctx,
		&rows,
		p.db.Rebind(`SELECT `+messageColumns+` FROM messages`+where+` ORDER BY date_unix DESC, id LIMIT ? OFFSET ?`),
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	messages := []*domain.Message{}
	for i := range rows {
		m, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return domain.NewMessagePage(messages, page, total), nil
}

func filterClause(filter *domain.MessageFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	conditions := []string{}
	args := []interface{}{}
	if filter.AccountId != 0 {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountId)
	}
	if len(filter.Folder) > 0 {
		conditions = append(conditions, "folder = ?")
		args = append(args, filter.Folder)
	}
	if len(filter.Category) > 0 {
		conditions = append(conditions, "label = ?")
		args = append(args, filter.Category)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "date_unix >= ?")
		args = append(args, filter.Since.Unix())
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "date_unix <= ?")
		args = append(args, filter.Until.Unix())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (p *Persistence) SetFlags(ctx context.Context, id string, flags domain.MessageFlags) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	current := struct {
		IsRead    bool `db:"is_read"`
		Important bool
	}{}
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT is_read, important FROM messages WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return txEnd(tx, domain.ErrNotFound)
	}
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not query db: %w", err))
	}

	if flags.Read != nil {
		current.IsRead = *flags.Read
	}
	if flags.Important != nil {
		current.Important = *flags.Important
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE messages SET is_read = ?, important = ? WHERE id = ?`), current.IsRead, current.Important, id)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not update flags: %w", err))
	}

	return txEnd(tx, nil)
}

func (p *Persistence) DeleteMessage(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, p.db.Rebind(`DELETE FROM messages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("could not delete message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get num of affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilAttachments(values []domain.Attachment) []domain.Attachment {
	if values == nil {
		return []domain.Attachment{}
	}
	return values
}
