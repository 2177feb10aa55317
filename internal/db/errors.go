// Package db provides error types for database operations.
package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyExists indicates a record with the same key already exists,
	// e.g. a second lineage node for a chunk hitting the unique index.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	// Occurs when concurrent jobs touch lineage nodes under the same root.
	// Callers should typically retry via the merge path.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel error if it's a known query error type. Returns the original error
// if it's not a QueryError or doesn't match known patterns.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
	}

	return err
}
