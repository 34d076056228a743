package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/bogdangri/capstone-adk-project/internal/config"
	"github.com/bogdangri/capstone-adk-project/internal/database"
	"github.com/bogdangri/capstone-adk-project/internal/database/postgres"
)

// Open builds the sink named by cfg.Driver: "slog" (the default), "postgres",
// "sqlite" or "libsql".
func Open(ctx context.Context, cfg config.EventLogConfig, logger *slog.Logger) (Sink, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "slog":
		return NewSlogSink(logger), nil
	case "postgres", "sqlite", "libsql":
	default:
		return nil, fmt.Errorf("unknown event log driver %q", cfg.Driver)
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("event log driver %s requires a url", driver)
	}

	if driver == "postgres" {
		db, err := postgres.NewDriver().OpenConnection(ctx, database.ConnectionConfig{PostgresUrl: cfg.URL})
		if err != nil {
			return nil, fmt.Errorf("failed to open event log database: %w", err)
		}
		return newOwnedSink(ctx, db, DialectPostgres, cfg.AutoMigrate)
	}

	dsn := cfg.URL
	if driver == "sqlite" {
		path := sqliteFilePath(cfg.URL)
		if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create event log directory: %w", err)
			}
		}
		dsn = path
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping event log database: %w", err)
	}

	return newOwnedSink(ctx, db, DialectSQLite, cfg.AutoMigrate)
}

func newOwnedSink(ctx context.Context, db *sql.DB, dialect Dialect, migrate bool) (Sink, error) {
	sink := &SQLSink{db: db, dialect: dialect, ownsDB: true}
	if migrate {
		if err := sink.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return sink, nil
}

// sqliteFilePath extracts the file path from a SQLite connection string
func sqliteFilePath(connStr string) string {
	for _, prefix := range []string{"sqlite://", "file:"} {
		if strings.HasPrefix(connStr, prefix) {
			path := strings.TrimPrefix(connStr, prefix)
			if idx := strings.Index(path, "?"); idx >= 0 {
				path = path[:idx]
			}
			return path
		}
	}
	return connStr
}
