// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CrawX/go-imap-onebox/domain"

	"github.com/sirupsen/logrus"
)

const accountColumns = `id, name, host, port, tls, username, password, folders, active`

type accountRow struct {
	Id       int64
	Name     string
	Host     string
	Port     int
	TLS      bool `db:"tls"`
	Username string
	Password string
	Folders  string
	Active   bool
}

func (r *accountRow) toDomain() (*domain.Account, error) {
	folders := []string{}
	if err := json.Unmarshal([]byte(r.Folders), &folders); err != nil {
		return nil, fmt.Errorf("could not decode folders of account %d: %w", r.Id, err)
	}

	return &domain.Account{
		Id:       r.Id,
		Name:     r.Name,
		Host:     r.Host,
		Port:     r.Port,
		TLS:      r.TLS,
		Username: r.Username,
		Password: r.Password,
		Folders:  folders,
		Active:   r.Active,
	}, nil
}

func (p *Persistence) LoadActiveAccounts(ctx context.Context) ([]*domain.Account, error) {
	return p.selectAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE active = ? ORDER BY id`, true)
}

func (p *Persistence) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return p.selectAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

func (p *Persistence) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return p.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (p *Persistence) FindAccountByName(ctx context.Context, name string) (*domain.Account, error) {
	return p.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name = ?`, name)
}

func (p *Persistence) InsertAccount(ctx context.Context, account *domain.Account) (int64, error) {
	folders, err := json.Marshal(account.WatchedFolders())
	if err != nil {
		return 0, fmt.Errorf("could not encode folders: %w", err)
	}

	var id int64
	err = p.db.QueryRowxContext(
		ctx,
		p.db.Rebind(`INSERT INTO accounts (name, host, port, tls, username, password, folders, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		account.Name, account.Host, account.Port, account.TLS, account.Username, account.Password, string(folders), account.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("could not save account: %w", err)
	}

	p.l.WithFields(logrus.Fields{"id": id, "name": account.Name, "active": account.Active}).Info("Persisted account")
	return id, nil
}

func (p *Persistence) selectAccounts(ctx context.Context, query string, args ...interface{}) ([]*domain.Account, error) {
	rows := []accountRow{}
	err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	accounts := []*domain.Account{}
	for i := range rows {
		account, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	p.l.WithField("count", len(accounts)).Debug("Found accounts")
	return accounts, nil
}

func (p *Persistence) getAccount(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	row := accountRow{}
	err := p.db.GetContext(ctx, &row, p.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return row.toDomain()
}
