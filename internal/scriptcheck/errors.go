package scriptcheck

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pganalyze/pg_query_go/v6/parser"
)

// SyntaxError is a parse failure with the best position that could be
// recovered. Line and Column are 1-based; zero means unknown.
type SyntaxError struct {
	Message string
	Token   string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return "syntax error: " + e.Message
}

var nearToken = regexp.MustCompile(`at or near "([^"]+)"`)

// newSyntaxError builds a SyntaxError for content. shift maps parser
// offsets back into content when the parsed text was wrapped.
func newSyntaxError(content string, shift int, err error) *SyntaxError {
	msg := strings.TrimPrefix(err.Error(), "failed to parse SQL: ")
	se := &SyntaxError{Message: msg}

	if m := nearToken.FindStringSubmatch(msg); len(m) > 1 {
		se.Token = m[1]
	}

	offset := -1
	var pgErr *parser.Error
	if errors.As(err, &pgErr) {
		se.Message = pgErr.Message
		if pgErr.Cursorpos > 0 {
			offset = pgErr.Cursorpos - 1 + shift
		}
	}
	if offset < 0 && se.Token != "" {
		offset = strings.Index(content, se.Token)
	}
	if offset < 0 && strings.Contains(msg, "at end of input") {
		offset = len(content)
	}

	if offset >= 0 && offset <= len(content) {
		se.Line, se.Column = positionFromOffset(content, offset)
	}
	return se
}

func positionFromOffset(content string, offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
