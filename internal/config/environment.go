package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Connection defaults used when neither the config file nor the dotenv file
// names a database.
const (
	defaultPGHost     = "localhost"
	defaultPGPort     = "5434"
	defaultPGDatabase = "adk_db"
	defaultPGUser     = "db_user"
	defaultPGPassword = "db_password"
)

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name        string
	DatabaseURL string
	DotenvPath  string
	FromConfig  bool
	FromDotenv  bool
}

// ResolveEnvironment resolves a named environment into a concrete connection string.
//
// Precedence: DATABASE_URL or POSTGRES_URL in .env.<name>, then postgres_url
// from dmlplan.toml, then a URL assembled from the PG* variables (dotenv
// first, then the process environment, then built-in defaults).
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		envConfig, envExists = config.Environments[envName]
	}

	resolved := &ResolvedEnvironment{
		Name:        envName,
		DatabaseURL: envConfig.PostgresURL,
		FromConfig:  envExists,
	}

	baseDir := config.ConfigDir()
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+envName)

	values := map[string]string{}
	info, err := os.Stat(resolved.DotenvPath)
	switch {
	case err == nil && !info.IsDir():
		values, err = godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
	}

	if value := values["DATABASE_URL"]; value != "" {
		resolved.DatabaseURL = value
	} else if value := values["POSTGRES_URL"]; value != "" {
		resolved.DatabaseURL = value
	}

	if resolved.DatabaseURL == "" {
		resolved.DatabaseURL = postgresURLFromParts(func(key string) string {
			if v := values[key]; v != "" {
				return v
			}
			return os.Getenv(key)
		})
	}

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found", envName, FileName, resolved.DotenvPath)
	}

	return resolved, nil
}

// postgresURLFromParts assembles a connection URL from libpq-style PG* variables.
func postgresURLFromParts(lookup func(string) string) string {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(get("PGUSER", defaultPGUser), get("PGPASSWORD", defaultPGPassword)),
		Host:   net.JoinHostPort(get("PGHOST", defaultPGHost), get("PGPORT", defaultPGPort)),
		Path:   "/" + get("PGDATABASE", defaultPGDatabase),
	}
	return u.String()
}
