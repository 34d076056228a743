package sqlgen

import (
	"strings"

	"github.com/bogdangri/capstone-adk-project/internal/plan"
)

// matchNothing is used when no keys are given so that an UPDATE can never
// touch the whole table.
const matchNothing = "1=0"

// BuildPredicate renders keys as a conjunction of equality terms in key order.
func BuildPredicate(keys plan.Fields) string {
	if keys.Len() == 0 {
		return matchNothing
	}
	terms := make([]string, 0, keys.Len())
	for _, k := range keys {
		terms = append(terms, k.Column+"="+RenderLiteral(k.Value))
	}
	return strings.Join(terms, " AND ")
}

func buildAssignments(fields plan.Fields) string {
	parts := make([]string, 0, fields.Len())
	for _, f := range fields {
		parts = append(parts, f.Column+"="+RenderLiteral(f.Value))
	}
	return strings.Join(parts, ", ")
}
