package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/strata/db/types"
)

// DB wraps sql.DB with additional context and transaction functionality.
type DB struct {
	*sql.DB
	ctx     context.Context
	timeNow func() time.Time
	path    string
}

var _ types.TxQuerier = (*DB)(nil)

// Open creates and configures a new SQLite database connection.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	var d *DB
	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		defer func() {
			if d != nil {
				// See https://github.com/mattn/go-sqlite3#faq
				d.SetMaxIdleConns(10)
				d.SetConnMaxLifetime(time.Duration(math.Inf(1)))
			}
		}()
	}

	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	d = &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}

	// Enable foreign key enforcement
	_, err = d.Exec(`PRAGMA foreign_keys = ON;`)
	if err != nil {
		return nil, fmt.Errorf("failed enabling foreign key enforcement: %w", err)
	}

	return d, nil
}

// NewContext returns a new child context of the main database context.
func (d *DB) NewContext() context.Context {
	// TODO: Return cancel func?
	ctx, _ := context.WithCancel(d.ctx) //nolint:govet // I'll handle this later...
	return ctx
}

// Path returns the database path or DSN.
func (d *DB) Path() string {
	return d.path
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

// InTransaction runs fn within a single database transaction, committing if it
// returns nil and rolling back otherwise.
func (d *DB) InTransaction(ctx context.Context, fn func(q types.Querier) error) (rerr error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed beginning transaction: %w", err)
	}

	defer func() {
		if rerr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				rerr = fmt.Errorf("%w; also failed rolling back transaction: %w", rerr, rbErr)
			}
		}
	}()

	if err = fn(&txQuerier{Tx: tx, db: d}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	return nil
}

// txQuerier adapts sql.Tx to the Querier interface, delegating context and
// time handling to the parent DB.
type txQuerier struct {
	*sql.Tx
	db *DB
}

var _ types.Querier = (*txQuerier)(nil)

func (t *txQuerier) NewContext() context.Context {
	return t.db.NewContext()
}

func (t *txQuerier) TimeNow() time.Time {
	return t.db.TimeNow()
}
