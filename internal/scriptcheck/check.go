// Package scriptcheck verifies generated scripts with the PostgreSQL parser.
//
// A script passes when it parses as exactly one anonymous DO block written
// in PL/pgSQL and the block body itself parses as PL/pgSQL.
package scriptcheck

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ErrNotSingleBlock is returned when a script is not exactly one DO block.
var ErrNotSingleBlock = errors.New("script must contain exactly one DO block")

// Report describes a script that passed Check.
type Report struct {
	Language  string
	Body      string
	BodyLines int
}

// Check parses script and validates its structure.
func Check(script string) (*Report, error) {
	tree, err := pg_query.Parse(script)
	if err != nil {
		return nil, newSyntaxError(script, 0, err)
	}

	if len(tree.Stmts) != 1 {
		return nil, fmt.Errorf("%w: found %d statements", ErrNotSingleBlock, len(tree.Stmts))
	}
	stmt := tree.Stmts[0].Stmt
	do := stmt.GetDoStmt()
	if do == nil {
		return nil, fmt.Errorf("%w: found %s", ErrNotSingleBlock, statementName(stmt))
	}

	report := &Report{Language: "plpgsql"}
	for _, arg := range do.Args {
		def := arg.GetDefElem()
		if def == nil || def.Arg == nil {
			continue
		}
		switch def.Defname {
		case "as":
			report.Body = def.Arg.GetString_().GetSval()
		case "language":
			report.Language = def.Arg.GetString_().GetSval()
		}
	}

	if report.Language != "plpgsql" {
		return nil, fmt.Errorf("unsupported DO block language %q", report.Language)
	}
	if strings.TrimSpace(report.Body) == "" {
		return nil, errors.New("DO block has an empty body")
	}

	if err := checkPlpgsql(script, report.Body); err != nil {
		return nil, err
	}

	report.BodyLines = strings.Count(strings.TrimRight(report.Body, "\n"), "\n") + 1
	return report, nil
}

// checkPlpgsql parses body with the PL/pgSQL grammar by wrapping it in a
// throwaway function definition.
func checkPlpgsql(script, body string) error {
	tag := "$check$"
	for i := 1; strings.Contains(body, tag); i++ {
		tag = fmt.Sprintf("$check%d$", i)
	}
	prefix := "CREATE FUNCTION dmlplan_check() RETURNS void AS " + tag
	source := prefix + body + tag + " LANGUAGE plpgsql;"

	if _, err := pg_query.ParsePlPgSqlToJSON(source); err != nil {
		bodyOffset := strings.Index(script, body)
		shift := 0
		if bodyOffset >= 0 {
			shift = bodyOffset - len(prefix)
		}
		return newSyntaxError(script, shift, err)
	}
	return nil
}

func statementName(node *pg_query.Node) string {
	if node == nil || node.Node == nil {
		return "empty statement"
	}
	name := fmt.Sprintf("%T", node.Node)
	return strings.TrimPrefix(name, "*pg_query.Node_")
}

// StringLiteral parses a single SQL constant expression and returns its
// string value. It reports an error for anything other than a string constant.
func StringLiteral(expr string) (string, error) {
	tree, err := pg_query.Parse("SELECT " + expr)
	if err != nil {
		return "", newSyntaxError("SELECT "+expr, 0, err)
	}
	if len(tree.Stmts) != 1 {
		return "", fmt.Errorf("expected one expression, found %d statements", len(tree.Stmts))
	}
	sel := tree.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil || len(sel.TargetList) != 1 {
		return "", errors.New("expected exactly one expression")
	}
	target := sel.TargetList[0].GetResTarget()
	if target == nil {
		return "", errors.New("expected a result column")
	}
	constant := target.Val.GetAConst()
	if constant == nil {
		return "", fmt.Errorf("%s is not a constant", expr)
	}
	if constant.Isnull {
		return "", fmt.Errorf("%s is NULL, not a string", expr)
	}
	sval := constant.GetSval()
	if sval == nil {
		return "", fmt.Errorf("%s is not a string constant", expr)
	}
	return sval.Sval, nil
}
