// Package sqlgen compiles data-change plans into a single transactional
// PL/pgSQL script.
//
// Every value taken from a plan reaches the script either as a bare keyword
// from a fixed set, a validated numeric literal, or a single-quoted string
// with embedded quotes doubled. Table and column names are identifier
// context and are emitted verbatim.
package sqlgen

import (
	"regexp"
	"strings"

	"github.com/bogdangri/capstone-adk-project/internal/plan"
)

// bareKeywords are emitted unquoted so a plan can ask the database for a
// computed value or a type token.
var bareKeywords = map[string]struct{}{
	"NULL":              {},
	"CURRENT_DATE":      {},
	"CURRENT_TIMESTAMP": {},
	"NOW()":             {},
	"NUMERIC":           {},
	"INTEGER":           {},
	"FLOAT":             {},
}

var numericLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// IsBareKeyword reports whether text, trimmed and compared case-insensitively,
// is a keyword that RenderLiteral passes through unquoted.
func IsBareKeyword(text string) bool {
	_, ok := bareKeywords[strings.ToUpper(strings.TrimSpace(text))]
	return ok
}

// RenderLiteral converts a plan value into SQL literal text.
func RenderLiteral(v plan.Value) string {
	switch v.Kind() {
	case plan.ValueNull:
		return "NULL"
	case plan.ValueBool:
		if v.Text() == "true" {
			return "TRUE"
		}
		return "FALSE"
	case plan.ValueNumber:
		if numericLiteral.MatchString(v.Text()) {
			return v.Text()
		}
		return QuoteString(v.Text())
	case plan.ValueString:
		if IsBareKeyword(v.Text()) {
			return strings.ToUpper(strings.TrimSpace(v.Text()))
		}
		return QuoteString(v.Text())
	default:
		return QuoteString(v.Text())
	}
}

// QuoteString returns s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
