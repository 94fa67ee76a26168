package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/embedder"
)

// ValidationError reports input the pipeline refuses before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// EmbeddingProviderError is raised by the embedder; it is never retried.
type EmbeddingProviderError = embedder.ProviderError

// StoreError wraps a persistence failure. Code is the SQLSTATE when the
// driver exposes one.
type StoreError struct {
	Op   string
	Code string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store %s (sqlstate %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failure of an external runtime (chat model,
// document converter).
type CollaboratorError struct {
	Service string
	Status  int
	Err     error
}

func (e *CollaboratorError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func newStoreError(op string, err error) *StoreError {
	se := &StoreError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		se.Code = pgErr.Code
	}
	return se
}

// FailureMessage is the human-readable status for a failed ingestion.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Error, please try again."
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
