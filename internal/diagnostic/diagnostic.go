// Package diagnostic collects validation findings for plan and script files
// and renders them for terminals or editor integrations.
package diagnostic

import (
	"errors"
	"fmt"

	"github.com/bogdangri/capstone-adk-project/internal/plan"
	"github.com/bogdangri/capstone-adk-project/internal/scriptcheck"
)

// Severity levels
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is one finding. Line and Column are 1-based; zero means the
// finding applies to the whole file.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
}

// Result is the outcome of validating one file.
type Result struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// FromError converts a validation error into diagnostics. Schema errors
// expand to one diagnostic per issue; syntax errors keep their position.
func FromError(file string, err error) []Diagnostic {
	if err == nil {
		return nil
	}

	var schemaErr *plan.SchemaError
	if errors.As(err, &schemaErr) {
		out := make([]Diagnostic, 0, len(schemaErr.Issues))
		for _, issue := range schemaErr.Issues {
			out = append(out, Diagnostic{File: file, Severity: SeverityError, Code: "schema", Message: issue})
		}
		return out
	}

	var syntaxErr *scriptcheck.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []Diagnostic{{
			File:     file,
			Line:     syntaxErr.Line,
			Column:   syntaxErr.Column,
			Severity: SeverityError,
			Code:     "syntax",
			Message:  syntaxErr.Message,
		}}
	}

	code := "invalid"
	switch {
	case errors.Is(err, plan.ErrNothingToUpdate):
		code = "nothing_to_update"
	case errors.Is(err, plan.ErrMissingTable):
		code = "missing_table"
	case errors.Is(err, plan.ErrInvalidColumn):
		code = "invalid_column"
	case errors.Is(err, scriptcheck.ErrNotSingleBlock):
		code = "not_single_block"
	}
	return []Diagnostic{{File: file, Severity: SeverityError, Code: code, Message: err.Error()}}
}
