package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/bogdangri/capstone-adk-project/internal/database"
)

// Driver implements database.Driver for PostgreSQL
type Driver struct {
}

// NewDriver creates a new PostgreSQL driver
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns the database driver name
func (d *Driver) Name() string {
	return "postgres"
}

// OpenConnection opens a connection to the database and pings it. Server
// notices are forwarded to cfg.OnNotice.
func (d *Driver) OpenConnection(ctx context.Context, cfg database.ConnectionConfig) (*sql.DB, error) {
	// TODO enable ssl
	dsn, err := withSSLMode(cfg.PostgresUrl)
	if err != nil {
		return nil, err
	}

	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	var db *sql.DB
	if cfg.OnNotice != nil {
		onNotice := cfg.OnNotice
		db = sql.OpenDB(pq.ConnectorWithNoticeHandler(connector, func(n *pq.Error) {
			onNotice(database.Notice{Severity: n.Severity, Message: n.Message})
		}))
	} else {
		db = sql.OpenDB(connector)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// withSSLMode adds sslmode=disable unless the connection string sets a mode.
// Both URL and key=value connection strings are accepted.
func withSSLMode(conn string) (string, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return "", errors.New("no database connection string configured")
	}

	if strings.HasPrefix(conn, "postgres://") || strings.HasPrefix(conn, "postgresql://") {
		u, err := url.Parse(conn)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "disable")
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	if strings.Contains(conn, "sslmode=") {
		return conn, nil
	}
	return conn + " sslmode=disable", nil
}

// ExecScript runs a compiled script as a single statement. PostgreSQL errors
// are reported with their SQLSTATE.
func ExecScript(ctx context.Context, db *sql.DB, script string) error {
	if _, err := db.ExecContext(ctx, script); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("script failed with SQLSTATE %s (%s): %w", pqErr.Code, pqErr.Code.Name(), err)
		}
		return fmt.Errorf("failed to execute script: %w", err)
	}
	return nil
}
