package diagnostic

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
)

// Collector collects diagnostics for a single source file
type Collector struct {
	diagnostics []Diagnostic
	source      string
}

// NewCollector creates a new diagnostic collector
func NewCollector(source string) *Collector {
	return &Collector{
		diagnostics: []Diagnostic{},
		source:      source,
	}
}

// Add adds a diagnostic to the collection
func (c *Collector) Add(diag Diagnostic) {
	if diag.File == "" {
		diag.File = c.source
	}
	c.diagnostics = append(c.diagnostics, diag)
}

// AddError records err, if any, as one or more error diagnostics.
func (c *Collector) AddError(err error) {
	for _, d := range FromError(c.source, err) {
		c.Add(d)
	}
}

// AddWarning adds a file-level warning
func (c *Collector) AddWarning(code, message string) {
	c.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: message})
}

// All returns all collected diagnostics, sorted by location
func (c *Collector) All() []Diagnostic {
	sort.SliceStable(c.diagnostics, func(i, j int) bool {
		if c.diagnostics[i].Line != c.diagnostics[j].Line {
			return c.diagnostics[i].Line < c.diagnostics[j].Line
		}
		return c.diagnostics[i].Column < c.diagnostics[j].Column
	})
	return c.diagnostics
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Result summarises the collection. Warnings alone do not invalidate a file.
func (c *Collector) Result() Result {
	return Result{Valid: !c.HasErrors(), Diagnostics: c.All()}
}

// Write renders r as "json" or human-readable "text".
func Write(w io.Writer, r Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "", "text":
		errColor := color.New(color.FgRed, color.Bold)
		warnColor := color.New(color.FgYellow)
		for _, d := range r.Diagnostics {
			c := errColor
			if d.Severity == SeverityWarning {
				c = warnColor
			}
			if _, err := c.Fprintln(w, d.String()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}
