package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `default_environment = "staging"
output_dir = "scripts"
initiator = "release_bot"
app_name = "agents"
pipeline_name = "nightly"

[event_log]
driver = "sqlite"
url = "events.db"
auto_migrate = true

[environments.local]
postgres_url = "test"`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// compareConfigPaths compares two paths, resolving symlinks
func compareConfigPaths(t *testing.T, expected, actual string) {
	t.Helper()

	expectedResolved, err := filepath.EvalSymlinks(expected)
	if err != nil {
		expectedResolved = expected
	}
	actualResolved, err := filepath.EvalSymlinks(actual)
	if err != nil {
		actualResolved = actual
	}
	assert.Equal(t, expectedResolved, actualResolved)
}

func TestLoadConfigInStartDirectory(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, FileName)
	writeFile(t, configPath, exampleConfig)

	config, err := LoadConfigFrom(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "staging", config.DefaultEnvironment)
	assert.Equal(t, "scripts", config.OutputDir)
	assert.Equal(t, "release_bot", config.Initiator)
	assert.Equal(t, "nightly", config.PipelineName)
	assert.Equal(t, EventLogConfig{Driver: "sqlite", URL: "events.db", AutoMigrate: true}, config.EventLog)
	require.Contains(t, config.Environments, "local")
	assert.Equal(t, "test", config.Environments["local"].PostgresURL)
	compareConfigPaths(t, configPath, config.ConfigFilePath)
}

func TestLoadConfigInParentDirectory(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, FileName)
	writeFile(t, configPath, exampleConfig)

	subDir := filepath.Join(tempDir, "subdir", "nested")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	config, err := LoadConfigFrom(subDir)
	require.NoError(t, err)
	assert.Equal(t, "test", config.Environments["local"].PostgresURL)
	compareConfigPaths(t, configPath, config.ConfigFilePath)
}

func TestLoadConfigUsesWorkingDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, FileName)
	writeFile(t, configPath, exampleConfig)
	t.Chdir(tempDir)

	config, err := LoadConfig()
	require.NoError(t, err)
	compareConfigPaths(t, configPath, config.ConfigFilePath)
}

func TestLoadConfigNoFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, ".git"), 0o755))

	config, err := LoadConfigFrom(tempDir)
	require.NoError(t, err)
	assert.Nil(t, config.Environments)
	assert.Empty(t, config.ConfigFilePath)
	assert.Empty(t, config.ConfigDir())
}

func TestLoadConfigStopsAtProjectRoot(t *testing.T) {
	t.Parallel()

	markers := []struct {
		name    string
		path    string
		content string
		isDir   bool
	}{
		{name: "git", path: ".git", isDir: true},
		{name: "go module", path: "go.mod", content: "module test\n"},
		{name: "node project", path: "package.json", content: `{"name": "test"}`},
	}

	for _, m := range markers {
		t.Run(m.name, func(t *testing.T) {
			t.Parallel()

			tempDir := t.TempDir()
			parentDir := filepath.Join(tempDir, "parent")
			writeFile(t, filepath.Join(parentDir, FileName), `default_environment = "parent"`)

			projectDir := filepath.Join(parentDir, "project")
			if m.isDir {
				require.NoError(t, os.MkdirAll(filepath.Join(projectDir, m.path), 0o755))
			} else {
				writeFile(t, filepath.Join(projectDir, m.path), m.content)
			}

			subDir := filepath.Join(projectDir, "src", "components")
			require.NoError(t, os.MkdirAll(subDir, 0o755))

			config, err := LoadConfigFrom(subDir)
			require.NoError(t, err)
			assert.Empty(t, config.DefaultEnvironment, "should not read past the project root")
			assert.Empty(t, config.ConfigFilePath)
		})
	}
}

func TestLoadConfigPrefersProjectConfigOverParent(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	parentDir := filepath.Join(tempDir, "parent")
	writeFile(t, filepath.Join(parentDir, FileName), "[environments.local]\npostgres_url = \"parent\"")

	projectDir := filepath.Join(parentDir, "git-project")
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".git"), 0o755))
	projectConfig := filepath.Join(projectDir, FileName)
	writeFile(t, projectConfig, "[environments.local]\npostgres_url = \"git-project\"")

	subDir := filepath.Join(projectDir, "src")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	config, err := LoadConfigFrom(subDir)
	require.NoError(t, err)
	assert.Equal(t, "git-project", config.Environments["local"].PostgresURL)
	compareConfigPaths(t, projectConfig, config.ConfigFilePath)
}

func TestLoadConfigInvalidToml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, FileName), "default_environment = [unterminated")

	_, err := LoadConfigFrom(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	t.Run("empty config", func(t *testing.T) {
		t.Parallel()

		config := (*Config)(nil).WithDefaults()
		assert.Equal(t, "local", config.DefaultEnvironment)
		assert.Equal(t, DefaultAppName, config.AppName)
		assert.Equal(t, DefaultPipelineName, config.PipelineName)
		assert.Equal(t, DefaultEventLogDriver, config.EventLog.Driver)
		assert.Empty(t, config.OutputDir)
	})

	t.Run("explicit values kept", func(t *testing.T) {
		t.Parallel()

		in := &Config{AppName: "billing", EventLog: EventLogConfig{Driver: "postgres"}}
		config := in.WithDefaults()
		assert.Equal(t, "billing", config.AppName)
		assert.Equal(t, "postgres", config.EventLog.Driver)
		assert.Empty(t, in.PipelineName, "receiver must not be modified")
	})

	t.Run("relative output dir resolved against config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := (&Config{OutputDir: "scripts", ConfigFilePath: filepath.Join(dir, FileName)}).WithDefaults()
		assert.Equal(t, filepath.Join(dir, "scripts"), config.OutputDir)
	})
}
