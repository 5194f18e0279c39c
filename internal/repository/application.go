package repository

import (
	"context"
	"errors"

	"loanapi/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when an insert breaks a uniqueness or key constraint.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrIdempotencyConflict is returned when another application already holds the client idempotency key.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	// ErrTxAborted is returned by Commit when the transaction had already been
	// rolled back, for example because its context was cancelled.
	ErrTxAborted = errors.New("transaction aborted before commit")
	// ErrUnavailable is returned when the metadata store cannot be reached.
	ErrUnavailable = errors.New("metadata store unavailable")
)

// ApplicationRepository is the metadata store for loan applications and their
// document rows. Writes happen only through a Tx obtained from BeginTx.
type ApplicationRepository interface {
	// BeginTx checks a connection out of the pool and opens a transaction on it.
	// The caller owns the Tx and must Commit or Rollback it on every path.
	BeginTx(ctx context.Context) (Tx, error)

	// GetStatus returns the authoritative status of an application, or ErrNotFound.
	GetStatus(ctx context.Context, applicationID string) (model.ApplicationStatus, error)

	// ListDocuments returns the documents of an application ordered by upload time.
	// An unknown application yields an empty slice.
	ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error)

	// FindByIdempotencyKey returns a committed application and its documents
	// created with the given client key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Application, []model.Document, error)
}

// Tx is a single request-scoped metadata transaction. Inserts are visible to
// other readers only after Commit; Rollback after Commit is a no-op.
type Tx interface {
	InsertApplication(ctx context.Context, app *model.Application) (*model.Application, error)
	InsertDocument(ctx context.Context, doc *model.Document) error
	Commit() error
	Rollback() error
}
