// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"embed"
	"fmt"

	"github.com/CrawX/go-imap-onebox/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

const (
	DriverSqlite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed sql
var migrations embed.FS

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(driver, datasource string) (*Persistence, error) {
	var dialect, root string
	switch driver {
	case DriverSqlite:
		dialect, root = "sqlite3", "sql/sqlite"
	case DriverPostgres:
		dialect, root = "postgres", "sql/postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("driver", driver).Info("Connected")

	if driver == DriverSqlite {
		db.SetMaxOpenConns(1)

		_, err = db.Exec(`PRAGMA journal_mode=WAL`)
		if err != nil {
			return nil, fmt.Errorf("could not set journal mode: %w", err)
		}
		_, err = db.Exec(`PRAGMA synchronous=normal`)
		if err != nil {
			return nil, fmt.Errorf("could not set synchronous mode: %w", err)
		}
		_, err = db.Exec(`PRAGMA foreign_keys=on`)
		if err != nil {
			return nil, fmt.Errorf("could not enable foreign keys: %w", err)
		}
	}

	migrationSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       root,
	}

	appliedMigrations, err := migrate.Exec(db.DB, dialect, migrationSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

func (p *Persistence) Ping(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("could not ping db: %w", err)
	}
	return nil
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
