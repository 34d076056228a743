package sqlgen

import "strings"

// commentText makes s safe inside a block comment. PostgreSQL block
// comments nest, so both delimiters are broken up.
func commentText(s string) string {
	for strings.Contains(s, "*/") || strings.Contains(s, "/*") {
		s = strings.ReplaceAll(s, "*/", "* /")
		s = strings.ReplaceAll(s, "/*", "/ *")
	}
	return s
}

// lineCommentText makes s safe on a single "--" comment line.
func lineCommentText(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func blockComment(s string) string {
	return "/* " + lineCommentText(commentText(s)) + " */"
}
