package sqlgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bogdangri/capstone-adk-project/internal/plan"
)

// DefaultInitiator is written to the banner's User line.
const DefaultInitiator = "automation_agent"

const bannerWidth = 100

// Script is a compiled plan together with the metadata its writer needs.
type Script struct {
	RequestID string `json:"request_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path,omitempty"`
	Content   string `json:"file_content"`
}

// Compiler turns plans into PL/pgSQL scripts. The zero value is usable;
// Clock and Initiator fall back to time.Now and DefaultInitiator.
type Compiler struct {
	Initiator string
	Clock     func() time.Time
}

// NewCompiler returns a Compiler with default settings.
func NewCompiler() *Compiler {
	return &Compiler{Initiator: DefaultInitiator, Clock: time.Now}
}

// Compile assembles p and returns the script with its file name.
func (c *Compiler) Compile(p *plan.Plan) (*Script, error) {
	content, err := c.Assemble(p)
	if err != nil {
		return nil, err
	}
	return &Script{
		RequestID: requestID(p),
		Filename:  ScriptFilename(requestID(p)),
		Content:   content,
	}, nil
}

// Assemble renders the whole plan as one anonymous DO block. Any structural
// error in an action fails the compile; no partial script is returned.
func (c *Compiler) Assemble(p *plan.Plan) (string, error) {
	if p == nil {
		return "", errors.New("cannot compile nil plan")
	}

	var body strings.Builder
	id := requestID(p)

	body.WriteString("\nDECLARE\n")
	fmt.Fprintf(&body, "%sv_request_id text := %s;\n", indent, QuoteString(id))
	body.WriteString(indent + "v_started_at timestamptz := now();\n")
	body.WriteString(indent + "v_rows int;\n")
	body.WriteString(indent + "v_err_text text;\n")
	body.WriteString(indent + "v_err_state text;\n")
	body.WriteString("BEGIN\n")
	body.WriteString(indent + "RAISE NOTICE 'Request % started at %', v_request_id, v_started_at;\n")

	for i, a := range p.Actions {
		rendered, err := RenderAction(a)
		if err != nil {
			return "", fmt.Errorf("action %d: %w", i+1, err)
		}
		fmt.Fprintf(&body, "\n%s-- [%d/%d] %s %s\n", indent, i+1, len(p.Actions),
			lineCommentText(string(a.Kind)), lineCommentText(a.TargetTable))
		body.WriteString(rendered)
	}

	body.WriteString("\n" + indent + "RAISE NOTICE 'Request % completed successfully', v_request_id;\n")
	body.WriteString("EXCEPTION\n")
	body.WriteString(indent + "WHEN OTHERS THEN\n")
	body.WriteString(indent + indent + "GET STACKED DIAGNOSTICS\n")
	body.WriteString(indent + indent + indent + "v_err_text = MESSAGE_TEXT,\n")
	body.WriteString(indent + indent + indent + "v_err_state = RETURNED_SQLSTATE;\n")
	body.WriteString(indent + indent + "RAISE NOTICE 'Request % failed: % (SQLSTATE=%)', v_request_id, v_err_text, v_err_state;\n")
	body.WriteString(indent + indent + "RAISE;\n")
	body.WriteString("END;\n")

	tag := dollarTag(body.String())

	var out strings.Builder
	out.WriteString(c.banner(p))
	out.WriteString("\nDO " + tag)
	out.WriteString(body.String())
	out.WriteString(tag + " LANGUAGE plpgsql;\n")
	return out.String(), nil
}

func (c *Compiler) banner(p *plan.Plan) string {
	initiator := c.Initiator
	if initiator == "" {
		initiator = DefaultInitiator
	}
	clock := c.Clock
	if clock == nil {
		clock = time.Now
	}
	scope := p.Title
	if scope == "" {
		scope = "N/A"
	}

	border := strings.Repeat("*", bannerWidth)
	line := func(label, value string) string {
		return fmt.Sprintf(" * %-7s: %s\n", label, lineCommentText(commentText(value)))
	}

	var b strings.Builder
	b.WriteString("/* " + border + "\n")
	b.WriteString(line("Request", requestID(p)))
	b.WriteString(line("Scope", scope))
	b.WriteString(line("User", initiator))
	b.WriteString(line("Start", clock().UTC().Format(time.RFC3339)))
	b.WriteString(" " + border + " */")
	return b.String()
}

func requestID(p *plan.Plan) string {
	if strings.TrimSpace(p.RequestID) == "" {
		return plan.DefaultRequestID
	}
	return p.RequestID
}

// dollarTag picks a dollar-quote delimiter that does not occur in body, so
// plan text can never terminate the DO block early.
func dollarTag(body string) string {
	if !strings.Contains(body, "$$") {
		return "$$"
	}
	tag := "$dml$"
	for i := 1; strings.Contains(body, tag); i++ {
		tag = fmt.Sprintf("$dml%d$", i)
	}
	return tag
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ScriptFilename returns the conventional file name for a request's script.
func ScriptFilename(requestID string) string {
	id := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(requestID), "_")
	if id == "" || strings.Trim(id, ".") == "" {
		id = plan.DefaultRequestID
	}
	return "req-" + id + ".sql"
}
