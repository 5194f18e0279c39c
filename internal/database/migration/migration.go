package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id              UUID           PRIMARY KEY,
  customer_id     TEXT           NOT NULL,
  loan_amount     NUMERIC(14, 2) NOT NULL CHECK (loan_amount > 0),
  loan_purpose    TEXT           NOT NULL,
  income          NUMERIC(14, 2) NOT NULL CHECK (income >= 0),
  status          TEXT           NOT NULL DEFAULT 'PENDING',
  idempotency_key TEXT           UNIQUE,
  created_at      TIMESTAMPTZ    NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY,
  application_id   UUID        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  document_type    TEXT        NOT NULL,
  file_name        TEXT        NOT NULL,
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  content_type     TEXT        NOT NULL,
  storage_bucket   TEXT        NOT NULL,
  minio_object_key TEXT        NOT NULL UNIQUE,
  uploaded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_applications_customer_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_customer_id ON applications (customer_id);`,
	},
	{
		Name: "create_index_documents_application_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_application_id ON documents (application_id, uploaded_at);`,
	},
}

// EnsureMigrated checks if the 'applications' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.applications') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
