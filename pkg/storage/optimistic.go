package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Field is a column assignment in a versioned update
type Field struct {
	Column string
	Value  any
}

// VersionedUpdate describes a compare-and-swap write against one row.
// Version is the value the caller read; the write only lands if it is
// still current.
type VersionedUpdate struct {
	Table   string
	ID      int64
	Version int
	Fields  []Field
}

// VersionedResult is what the database reports for a row after a
// successful versioned update
type VersionedResult struct {
	Version   int
	UpdatedAt time.Time
}

func (u VersionedUpdate) validate() error {
	if u.Table == "" {
		return errors.New("versioned update requires a table")
	}
	if len(u.Fields) == 0 {
		return errors.New("versioned update requires at least one field")
	}
	for _, f := range u.Fields {
		switch f.Column {
		case "":
			return errors.New("versioned update has an empty column name")
		case "id", "version":
			return fmt.Errorf("column %q is managed by the versioned update", f.Column)
		}
	}
	return nil
}

// query builds
//
//	UPDATE "t" SET "a" = $1, ..., updated_at = NOW(), version = version + 1
//	WHERE id = $n AND version = $n+1 RETURNING version, updated_at
func (u VersionedUpdate) query() (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(u.Fields)+2)

	b.WriteString("UPDATE ")
	b.WriteString(pq.QuoteIdentifier(u.Table))
	b.WriteString(" SET ")
	for i, f := range u.Fields {
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s = $%d, ", pq.QuoteIdentifier(f.Column), i+1)
	}
	b.WriteString("updated_at = NOW(), version = version + 1")

	args = append(args, u.ID, u.Version)
	fmt.Fprintf(&b, " WHERE id = $%d AND version = $%d RETURNING version, updated_at", len(args)-1, len(args))

	return b.String(), args
}

// UpdateVersioned applies u inside a single transaction and returns the new
// version and modification time. It returns ErrEditConflict when the row was modified or deleted
// since it was read, ErrReturningFailure when the write matched but RETURNING
// yielded nothing usable, and a *DatabaseError for anything else. The
// transaction is rolled back on every failure.
func UpdateVersioned(ctx context.Context, db TxBeginner, u VersionedUpdate) (result VersionedResult, err error) {
	if err := u.validate(); err != nil {
		return VersionedResult{}, err
	}

	op := "update " + u.Table
	query, args := u.query()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return VersionedResult{}, WrapDatabaseError(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return VersionedResult{}, WrapDatabaseError(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return VersionedResult{}, WrapDatabaseError(op, err)
		}
		return VersionedResult{}, ErrEditConflict
	}

	if err := rows.Scan(&result.Version, &result.UpdatedAt); err != nil {
		return VersionedResult{}, fmt.Errorf("%w: %v", ErrReturningFailure, err)
	}
	if result.Version != u.Version+1 {
		return VersionedResult{}, fmt.Errorf("%w: version %d after update from %d", ErrReturningFailure, result.Version, u.Version)
	}
	if rows.Next() {
		return VersionedResult{}, fmt.Errorf("%w: more than one row updated for id %d", ErrReturningFailure, u.ID)
	}
	if err := rows.Err(); err != nil {
		return VersionedResult{}, WrapDatabaseError(op, err)
	}
	if err := rows.Close(); err != nil {
		return VersionedResult{}, WrapDatabaseError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return VersionedResult{}, WrapDatabaseError(op, err)
	}
	return result, nil
}
