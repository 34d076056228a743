// Package config loads dmlplan.toml and resolves named database environments.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the project configuration file searched for by LoadConfig.
const FileName = "dmlplan.toml"

const (
	defaultEnvironmentName = "local"
	DefaultAppName         = "agents"
	DefaultPipelineName    = "main_pipeline"
	DefaultEventLogDriver  = "slog"
)

// EnvironmentConfig describes a single named environment from dmlplan.toml.
type EnvironmentConfig struct {
	PostgresURL string `toml:"postgres_url"`
}

// EventLogConfig selects where pipeline events are recorded.
type EventLogConfig struct {
	Driver      string `toml:"driver"`
	URL         string `toml:"url"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	OutputDir          string                       `toml:"output_dir"`
	Initiator          string                       `toml:"initiator"`
	AppName            string                       `toml:"app_name"`
	PipelineName       string                       `toml:"pipeline_name"`
	EventLog           EventLogConfig               `toml:"event_log"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`
}

// LoadConfig searches for dmlplan.toml from the working directory upwards.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(startDir)
}

// LoadConfigFrom searches for dmlplan.toml starting at startDir and walking
// up until a project root or the filesystem root. No file is not an error:
// an empty Config is returned.
func LoadConfigFrom(startDir string) (*Config, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return readConfig(configPath)
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	config.ConfigFilePath = path
	return &config, nil
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod", "package.json"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// ConfigDir is the directory holding the loaded file, or "" when no file was found.
func (c *Config) ConfigDir() string {
	if c == nil || c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// WithDefaults returns a copy of c with unset values filled in.
func (c *Config) WithDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.DefaultEnvironment == "" {
		out.DefaultEnvironment = defaultEnvironmentName
	}
	if out.AppName == "" {
		out.AppName = DefaultAppName
	}
	if out.PipelineName == "" {
		out.PipelineName = DefaultPipelineName
	}
	if out.EventLog.Driver == "" {
		out.EventLog.Driver = DefaultEventLogDriver
	}
	if out.OutputDir != "" && !filepath.IsAbs(out.OutputDir) && out.ConfigFilePath != "" {
		out.OutputDir = filepath.Join(out.ConfigDir(), out.OutputDir)
	}
	return &out
}
