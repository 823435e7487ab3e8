// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., issue #42, task #15).
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	err := withTx(db, func(tx *sql.Tx) error {
		var err error
		sequence, err = nextSequence(tx, table)
		return err
	})
	return sequence, err
}

func nextSequence(q querier, table string) (int, error) {
	var sequence int
	err := q.QueryRow(fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}

// querier is satisfied by both [sql.DB] and [sql.Tx].
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// filter accumulates WHERE clauses for List queries.
type filter struct {
	clauses []string
	args    []any
}

func newFilter() *filter {
	return &filter{clauses: []string{"deleted_at IS NULL"}}
}

func (f *filter) where(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

// eqString adds column = value when criteria[key] is a non-empty string.
func (f *filter) eqString(criteria map[string]any, key, column string) {
	if v, ok := criteria[key].(string); ok && v != "" {
		f.where(column+" = ?", v)
	}
}

// eqBool adds column = value when criteria[key] is a bool.
func (f *filter) eqBool(criteria map[string]any, key, column string) {
	if v, ok := criteria[key].(bool); ok {
		f.where(column+" = ?", v)
	}
}

func (f *filter) sql() string {
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// prepare assigns ID and sequence to a new record and validates it.
func prepare(q querier, table string, m interface {
	models.Model
	SetID(string)
	SetSequence(int)
}) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := nextSequence(q, table)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	m.SetID(shared.GenerateID())
	m.SetSequence(sequence)
	return nil
}

// softDelete marks a row deleted, failing when it does not exist or is already deleted.
func softDelete(db *sql.DB, table, kind, id string) error {
	result, err := db.Exec(fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", table), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return expectRow(result, kind, id)
}

// expectRow turns a zero-row update into a not-found error.
func expectRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return nil
}

// wrapWrite maps unique constraint failures to [shared.ErrDuplicate].
func wrapWrite(err error, action, kind string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, kind)
	}
	return fmt.Errorf("failed to %s %s: %w", action, kind, err)
}

// wrapGet maps [sql.ErrNoRows] to [shared.ErrNotFound].
func wrapGet(err error, kind, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, key)
	}
	return fmt.Errorf("failed to query %s: %w", kind, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// record is the scan target for the shared lifecycle columns.
type record struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt sql.NullTime
}

func (r *record) apply(m interface {
	SetID(string)
	SetSequence(int)
	SetCreatedAt(time.Time)
	SetUpdatedAt(time.Time)
	SetDeletedAt(*time.Time)
}) {
	m.SetID(r.id)
	m.SetSequence(r.sequence)
	m.SetCreatedAt(r.createdAt)
	m.SetUpdatedAt(r.updatedAt)
	if r.deletedAt.Valid {
		t := r.deletedAt.Time
		m.SetDeletedAt(&t)
	}
}

// scanAll drains rows through scan, closing them when done.
func scanAll[T any](rows *sql.Rows, kind string, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
