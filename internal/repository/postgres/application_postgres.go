package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"loanapi/internal/model"
	"loanapi/internal/repository"
)

// ApplicationPostgres is a PostgreSQL implementation of repository.ApplicationRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ApplicationPostgres struct {
	db *sql.DB
}

// NewApplicationPostgres creates a new ApplicationPostgres repository.
func NewApplicationPostgres(db *sql.DB) *ApplicationPostgres {
	return &ApplicationPostgres{db: db}
}

var (
	_ repository.ApplicationRepository = (*ApplicationPostgres)(nil)
	_ repository.Tx                    = (*pgTx)(nil)
)

const applicationColumns = `id, customer_id, loan_amount, loan_purpose, income, status, created_at`

// idempotencyConstraint is the name Postgres gives the UNIQUE column constraint.
const idempotencyConstraint = "applications_idempotency_key_key"

const documentColumns = `id, application_id, document_type, file_name, file_size, content_type, storage_bucket, minio_object_key, uploaded_at`

// BeginTx opens a read-committed transaction on a pooled connection.
func (r *ApplicationPostgres) BeginTx(ctx context.Context) (repository.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, classify(err)
	}
	return &pgTx{tx: tx, ctx: ctx}, nil
}

// GetStatus reads the authoritative status column.
func (r *ApplicationPostgres) GetStatus(ctx context.Context, applicationID string) (model.ApplicationStatus, error) {
	const q = `SELECT status FROM applications WHERE id = $1`
	var status string
	if err := r.db.QueryRowContext(ctx, q, applicationID).Scan(&status); err != nil {
		return "", classify(err)
	}
	return model.ApplicationStatus(status), nil
}

// ListDocuments returns document summaries for one application.
func (r *ApplicationPostgres) ListDocuments(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	const q = `
		SELECT id, document_type, file_name, uploaded_at
		FROM documents
		WHERE application_id = $1
		ORDER BY uploaded_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	items := make([]model.DocumentSummary, 0)
	for rows.Next() {
		var d model.DocumentSummary
		if err := rows.Scan(&d.ID, &d.DocumentType, &d.FileName, &d.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return items, nil
}

// FindByIdempotencyKey loads a previously committed application created with key.
func (r *ApplicationPostgres) FindByIdempotencyKey(ctx context.Context, key string) (*model.Application, []model.Document, error) {
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE idempotency_key = $1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, q, key))
	if err != nil {
		return nil, nil, classify(err)
	}
	app.IdempotencyKey = key

	dq := `SELECT ` + documentColumns + ` FROM documents WHERE application_id = $1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, dq, app.ID)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(
			&d.ID,
			&d.ApplicationID,
			&d.DocumentType,
			&d.FileName,
			&d.FileSize,
			&d.ContentType,
			&d.StorageBucket,
			&d.ObjectKey,
			&d.UploadedAt,
		); err != nil {
			return nil, nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify(err)
	}
	return app, docs, nil
}

type pgTx struct {
	tx  *sql.Tx
	ctx context.Context
}

// InsertApplication writes the application row and returns it as stored.
func (t *pgTx) InsertApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	q := `
		INSERT INTO applications (id, customer_id, loan_amount, loan_purpose, income, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + applicationColumns
	row := t.tx.QueryRowContext(ctx, q,
		app.ID,
		app.CustomerID,
		app.LoanAmount,
		app.LoanPurpose,
		app.Income,
		string(app.Status),
		sql.NullString{String: app.IdempotencyKey, Valid: app.IdempotencyKey != ""},
		app.CreatedAt,
	)
	out, err := scanApplication(row)
	if err != nil {
		return nil, classify(err)
	}
	out.IdempotencyKey = app.IdempotencyKey
	return out, nil
}

// InsertDocument writes one document metadata row.
func (t *pgTx) InsertDocument(ctx context.Context, doc *model.Document) error {
	q := `INSERT INTO documents (` + documentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.ExecContext(ctx, q,
		doc.ID,
		doc.ApplicationID,
		doc.DocumentType,
		doc.FileName,
		doc.FileSize,
		doc.ContentType,
		doc.StorageBucket,
		doc.ObjectKey,
		doc.UploadedAt,
	)
	return classify(err)
}

// Commit reports ErrTxAborted only when COMMIT was never sent: the
// transaction context was already done, or database/sql had ended the
// transaction. Errors surfaced after COMMIT went out, context errors
// included, leave the outcome unknown.
func (t *pgTx) Commit() error {
	if err := t.ctx.Err(); err != nil {
		_ = t.tx.Rollback()
		return fmt.Errorf("%w: %w", repository.ErrTxAborted, err)
	}
	err := t.tx.Commit()
	if errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %w", repository.ErrTxAborted, err)
	}
	return classify(err)
}

// Rollback aborts the transaction. A transaction that already ended, by
// commit or by context cancellation, is not an error.
func (t *pgTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return classify(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*model.Application, error) {
	var (
		a      model.Application
		status string
	)
	if err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.LoanAmount,
		&a.LoanPurpose,
		&a.Income,
		&status,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = model.ApplicationStatus(status)
	return &a, nil
}

// classify maps driver errors onto the repository error taxonomy, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyConstraint:
			return fmt.Errorf("%w: %w: %w", repository.ErrIdempotencyConflict, repository.ErrConstraintViolation, err)
		case pgErr.Code == "23505" || pgErr.Code == "23503":
			return fmt.Errorf("%w: %s: %w", repository.ErrConstraintViolation, pgErr.ConstraintName, err)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	}
	return err
}
