// Package pipeline runs a plan through loading, compilation and persistence,
// emitting an event at the start and end of every stage.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/bogdangri/capstone-adk-project/internal/sqlgen"
)

// Writer stores compiled scripts as <Dir>/req-<id>.sql.
type Writer struct {
	Fs  afero.Fs
	Dir string
}

// NewWriter returns a Writer on the OS filesystem.
func NewWriter(dir string) *Writer {
	return &Writer{Fs: afero.NewOsFs(), Dir: dir}
}

// Write persists s and records the destination in s.Path. dir overrides
// w.Dir when w.Dir is empty.
func (w *Writer) Write(s *sqlgen.Script, dir string) (string, error) {
	if w.Dir != "" {
		dir = w.Dir
	}
	if dir == "" {
		dir = "."
	}
	fsys := w.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, s.Filename)
	if err := afero.WriteFile(fsys, path, []byte(s.Content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write script %s: %w", path, err)
	}
	s.Path = path
	return path, nil
}
