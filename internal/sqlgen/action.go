package sqlgen

import (
	"fmt"
	"strings"

	"github.com/bogdangri/capstone-adk-project/internal/plan"
)

const indent = "  "

// RenderAction renders one action as a block of PL/pgSQL statements. Each
// statement is followed by row-count diagnostics and a progress notice.
//
// Structural problems (no table, a column that is not an identifier, an
// update with nothing to set) are returned as errors. Unknown kinds render as
// a visible comment marker instead.
func RenderAction(a plan.Action) (string, error) {
	if strings.TrimSpace(a.TargetTable) == "" {
		return "", plan.ErrMissingTable
	}
	if err := a.CheckColumns(); err != nil {
		return "", err
	}

	var b strings.Builder
	if a.Reason != "" {
		b.WriteString(indent + blockComment(a.Reason) + "\n")
	}

	switch a.Kind {
	case plan.KindInsert:
		writeInsert(&b, a.TargetTable, a.Fields)

	case plan.KindUpdate:
		fields := a.Fields.WithoutReserved()
		if fields.Len() == 0 {
			return "", fmt.Errorf("%w for table %s", plan.ErrNothingToUpdate, a.TargetTable)
		}
		fmt.Fprintf(&b, "%sUPDATE %s SET %s WHERE %s;\n", indent, a.TargetTable, buildAssignments(fields), BuildPredicate(a.Keys))
		writeDiagnostics(&b, "Updated % row(s) in %", QuoteString(a.TargetTable))

	case plan.KindExpireAndInsert:
		where := BuildPredicate(a.Keys)
		b.WriteString(indent + "-- expire the active row(s)\n")
		fmt.Fprintf(&b, "%sUPDATE %s SET %s = CURRENT_DATE WHERE %s AND %s IS NULL;\n",
			indent, a.TargetTable, plan.ColumnDataOut, where, plan.ColumnDataOut)
		writeDiagnostics(&b, "Expired % row(s) in % for keys [%]", QuoteString(a.TargetTable), QuoteString(where))
		b.WriteString(indent + "IF v_rows = 0 THEN\n")
		fmt.Fprintf(&b, "%s%sRAISE EXCEPTION 'No active row to expire in %% for keys [%%]', %s, %s\n",
			indent, indent, QuoteString(a.TargetTable), QuoteString(where))
		b.WriteString(indent + indent + indent + "USING ERRCODE = 'no_data_found';\n")
		b.WriteString(indent + "END IF;\n")
		b.WriteString(indent + "-- insert the new version\n")
		writeInsert(&b, a.TargetTable, a.Fields)

	default:
		kind := string(a.Kind)
		if kind == "" {
			kind = "<none>"
		}
		fmt.Fprintf(&b, "%s-- unsupported action: %s on %s (skipped)\n", indent, lineCommentText(kind), lineCommentText(a.TargetTable))
	}

	return b.String(), nil
}

// writeInsert renders an INSERT whose data_in/data_out columns are always
// CURRENT_DATE and NULL, whatever the caller supplied.
func writeInsert(b *strings.Builder, table string, fields plan.Fields) {
	payload := fields.WithoutReserved()
	cols := make([]string, 0, payload.Len()+2)
	vals := make([]string, 0, payload.Len()+2)
	for _, f := range payload {
		cols = append(cols, f.Column)
		vals = append(vals, RenderLiteral(f.Value))
	}
	cols = append(cols, plan.ColumnDataIn, plan.ColumnDataOut)
	vals = append(vals, "CURRENT_DATE", "NULL")

	fmt.Fprintf(b, "%sINSERT INTO %s (%s) VALUES (%s);\n", indent, table, strings.Join(cols, ", "), strings.Join(vals, ", "))
	writeDiagnostics(b, "Inserted % row(s) into %", QuoteString(table))
}

// writeDiagnostics captures the affected row count into v_rows and reports
// it. format must be a constant: plan data is only ever passed as args.
func writeDiagnostics(b *strings.Builder, format string, args ...string) {
	b.WriteString(indent + "GET DIAGNOSTICS v_rows = ROW_COUNT;\n")
	params := append([]string{QuoteString(format), "v_rows"}, args...)
	fmt.Fprintf(b, "%sRAISE NOTICE %s;\n", indent, strings.Join(params, ", "))
}
