package plan

import "regexp"

// An identifier part is either unquoted or double-quoted with embedded
// quotes doubled. One qualifier is allowed (alias.column).
const identifierPart = `(?:[A-Za-z_][A-Za-z0-9_$]*|"(?:[^"]|"")+")`

var columnPattern = regexp.MustCompile(`^` + identifierPart + `(?:\.` + identifierPart + `)?$`)

// ValidColumn reports whether name can be written into a statement as a
// column reference without quoting.
func ValidColumn(name string) bool {
	return columnPattern.MatchString(name)
}
