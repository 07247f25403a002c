// Package store defines the storage boundary consumed by the load
// orchestrator: generic row inserts returning generated identifiers,
// label lookups for the shared reference tables, and per-record
// transaction scoping.
package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// Store is the connection-level interface. Exactly one orchestrator uses a
// Store at a time; all writes go through a Tx scoped to one source record.
type Store interface {
	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error
	// Begin opens a transaction covering one source record.
	Begin(ctx context.Context) (Tx, error)
	// LookupLabels loads a reference table into a label -> id map.
	LookupLabels(ctx context.Context, table, idColumn, labelColumn string) (map[string]int64, error)
}

// Tx is the per-record transaction. Savepoints let a single child insert
// fail without aborting the record's remaining work.
type Tx interface {
	// InsertRow inserts one row and returns the generated identifier,
	// or 0 for tables without a registered id column.
	InsertRow(ctx context.Context, table string, columns map[string]interface{}) (int64, error)
	// GetOrCreateHOA resolves an HOA association by name, creating it if
	// absent. The lookup and conditional insert are a single atomic step.
	GetOrCreateHOA(ctx context.Context, name string, managementCompany string) (int64, error)
	// Savepoint / RollbackTo / Release scope one child insert.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	Commit() error
	Rollback() error
}

// IsUnavailable reports whether an error is a connection-level failure that
// must halt the batch, as opposed to a row-level constraint problem that is
// recoverable per record.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions; 57P01/57P02/57P03: shutdown states.
		code := string(pqErr.Code)
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "sql: database is closed")
}
