package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/go-sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"go.hackfix.me/strata/db/types"
)

// AppliedRecord is the persisted fact that a migration's up path has been run.
// The set of applied records at any time is the current state of the target
// database as understood by the tool; it is not verified against the actual
// schema contents.
type AppliedRecord struct {
	Sequence  string
	Name      string
	AppliedAt time.Time
	Hash      string
}

// Store tracks which migrations have been applied. All methods take the
// querier explicitly, so that record writes can run inside the same
// transaction as the migration's statements.
type Store interface {
	// EnsureInitialized creates the underlying tracking structure if absent.
	EnsureInitialized(ctx context.Context, d types.Querier) error
	// Applied returns all applied records, ordered by application time then
	// sequence, ascending.
	Applied(ctx context.Context, d types.Querier) ([]AppliedRecord, error)
	// Get returns the applied record for a sequence, or nil if there is none.
	Get(ctx context.Context, d types.Querier, sequence string) (*AppliedRecord, error)
	RecordApplied(ctx context.Context, d types.Querier, rec AppliedRecord) error
	RecordReverted(ctx context.Context, d types.Querier, sequence string) error
}

// SQLStore is the Store implementation over a reserved SQL tracking table.
type SQLStore struct {
	// Table is the name of the tracking table.
	Table string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over the named tracking table.
func NewSQLStore(table string) *SQLStore {
	return &SQLStore{Table: table}
}

// EnsureInitialized implements the Store interface.
func (s *SQLStore) EnsureInitialized(ctx context.Context, d types.Querier) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (
			sequence VARCHAR(255),
			name VARCHAR(255),
			applied_at DATETIME,
			hash VARCHAR(64),
			UNIQUE(sequence)
		)`, s.Table)
	if _, err := d.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed creating tracking table '%s': %w", s.Table, err)
	}

	return nil
}

// Applied implements the Store interface.
func (s *SQLStore) Applied(ctx context.Context, d types.Querier) (records []AppliedRecord, rerr error) {
	query := fmt.Sprintf(`SELECT sequence, name, applied_at, hash
		FROM "%s" ORDER BY applied_at ASC, sequence ASC`, s.Table)

	rows, err := d.QueryContext(ctx, query)
	if err != nil {
		return nil, s.err(err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing applied records rows: %w", err)
		}
	}()

	for rows.Next() {
		var rec AppliedRecord
		if err = rows.Scan(&rec.Sequence, &rec.Name, &rec.AppliedAt, &rec.Hash); err != nil {
			return nil, types.ScanError{ModelName: "applied record", Err: err}
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over applied records rows: %w", err)
	}

	return records, nil
}

// Get implements the Store interface.
func (s *SQLStore) Get(ctx context.Context, d types.Querier, sequence string) (*AppliedRecord, error) {
	query := fmt.Sprintf(`SELECT sequence, name, applied_at, hash
		FROM "%s" WHERE sequence = ?`, s.Table)

	var rec AppliedRecord
	err := d.QueryRowContext(ctx, query, sequence).
		Scan(&rec.Sequence, &rec.Name, &rec.AppliedAt, &rec.Hash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, s.err(err)
	}

	return &rec, nil
}

// RecordApplied implements the Store interface. Re-recording an already
// applied sequence updates its timestamp and hash.
func (s *SQLStore) RecordApplied(ctx context.Context, d types.Querier, rec AppliedRecord) error {
	stmt := fmt.Sprintf(`INSERT INTO "%s" (sequence, name, applied_at, hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sequence) DO UPDATE SET applied_at = excluded.applied_at, hash = excluded.hash`,
		s.Table)
	if _, err := d.ExecContext(ctx, stmt, rec.Sequence, rec.Name, rec.AppliedAt, rec.Hash); err != nil {
		return s.err(err)
	}

	return nil
}

// RecordReverted implements the Store interface.
func (s *SQLStore) RecordReverted(ctx context.Context, d types.Querier, sequence string) error {
	stmt := fmt.Sprintf(`DELETE FROM "%s" WHERE sequence = ?`, s.Table)
	if _, err := d.ExecContext(ctx, stmt, sequence); err != nil {
		return s.err(err)
	}

	return nil
}

// err converts a missing tracking table error into UninitializedStateError,
// and returns any other error as is.
func (s *SQLStore) err(err error) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_ERROR &&
		strings.Contains(sqlErr.Error(), fmt.Sprintf("no such table: %s", s.Table)) {
		return UninitializedStateError{Table: s.Table}
	}
	return err
}
