package eventlog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Dialect selects the SQL flavour of an SQLSink.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	postgresInsert = `INSERT INTO logs.db_pipeline_logs
    (request_id, app_name, pipeline_name, stage, run_id, log_data, created_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`

	sqliteInsert = `INSERT INTO db_pipeline_logs
    (request_id, app_name, pipeline_name, stage, run_id, log_data, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLSink appends events to the db_pipeline_logs table.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	ownsDB  bool
}

// NewSQLSink wraps an open connection. The caller keeps ownership of db.
func NewSQLSink(db *sql.DB, dialect Dialect) *SQLSink {
	return &SQLSink{db: db, dialect: dialect}
}

func (s *SQLSink) Write(ctx context.Context, e Event) error {
	if s.db == nil {
		return fmt.Errorf("event log database not opened")
	}

	payload := []byte("{}")
	if len(e.Data) > 0 {
		var err error
		payload, err = json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
	}

	query := postgresInsert
	var createdAt any = e.CreatedAt
	if s.dialect == DialectSQLite {
		query = sqliteInsert
		createdAt = e.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	if _, err := s.db.ExecContext(ctx, query,
		e.RequestID, e.AppName, e.PipelineName, e.Stage, e.RunID, string(payload), createdAt,
	); err != nil {
		return fmt.Errorf("failed to insert pipeline event %s: %w", e.Stage, err)
	}
	return nil
}

// Close closes the connection when the sink opened it itself.
func (s *SQLSink) Close() error {
	if s.db == nil || !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Migrate creates or upgrades the events table.
func (s *SQLSink) Migrate(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("event log database not opened")
	}

	dir, gooseDialect := "migrations/postgres", goose.DialectPostgres
	if s.dialect == DialectSQLite {
		dir, gooseDialect = "migrations/sqlite", goose.DialectSQLite3
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect, s.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
