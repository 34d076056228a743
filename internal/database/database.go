package database

import (
	"context"
	"database/sql"
)

// Notice is a server message raised while a script runs (RAISE NOTICE and
// friends).
type Notice struct {
	Severity string
	Message  string
}

type ConnectionConfig struct {
	PostgresUrl string
	// OnNotice receives server notices as they arrive. May be nil.
	OnNotice func(Notice)
}

// Driver opens connections for script execution.
type Driver interface {
	Name() string
	OpenConnection(ctx context.Context, cfg ConnectionConfig) (*sql.DB, error)
}
