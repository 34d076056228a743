// Package plan defines the data-change plan: the structured description of
// the mutations a generated script must perform.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRequestID is used when a plan carries no request id.
const DefaultRequestID = "unknown"

var (
	// ErrNothingToUpdate is returned for an update action whose fields are
	// empty once the reserved columns are removed.
	ErrNothingToUpdate = errors.New("nothing to update")

	// ErrMissingTable is returned for an action without a target table.
	ErrMissingTable = errors.New("missing target table")

	// ErrInvalidColumn is returned for a key or field name that is not an
	// SQL identifier.
	ErrInvalidColumn = errors.New("invalid column name")
)

// ActionKind selects how an action is rendered.
type ActionKind string

const (
	KindInsert          ActionKind = "insert"
	KindUpdate          ActionKind = "update"
	KindExpireAndInsert ActionKind = "expire_and_insert"
)

// ParseActionKind normalises a tag from a plan document. Tags outside the
// known set are kept as-is (trimmed, lower-cased) and report Known() == false.
func ParseActionKind(tag string) ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(tag)))
}

// Known reports whether k is one of the supported kinds.
func (k ActionKind) Known() bool {
	switch k {
	case KindInsert, KindUpdate, KindExpireAndInsert:
		return true
	default:
		return false
	}
}

// Plan is the compiler's sole input.
type Plan struct {
	RequestID string   `json:"request_id"`
	Title     string   `json:"title,omitempty"`
	Actions   []Action `json:"actions"`
}

// Action is one requested mutation.
type Action struct {
	TargetTable string     `json:"target_table"`
	Kind        ActionKind `json:"action"`
	Keys        Fields     `json:"keys"`
	Fields      Fields     `json:"fields"`
	Reason      string     `json:"reason,omitempty"`
}

type planDocument struct {
	RequestID scalarText `json:"request_id" yaml:"request_id"`
	Title     scalarText `json:"title" yaml:"title"`
	Actions   []Action   `json:"actions" yaml:"actions"`
}

func (d planDocument) toPlan() Plan {
	p := Plan{
		RequestID: DefaultRequestID,
		Title:     d.Title.Value,
		Actions:   d.Actions,
	}
	if d.RequestID.Set && d.RequestID.Value != "" {
		p.RequestID = d.RequestID.Value
	}
	if p.Actions == nil {
		p.Actions = []Action{}
	}
	return p
}

func (p *Plan) UnmarshalJSON(data []byte) error {
	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = doc.toPlan()
	return nil
}

func (p *Plan) UnmarshalYAML(node *yaml.Node) error {
	var doc planDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}
	*p = doc.toPlan()
	return nil
}

type actionDocument struct {
	TargetTable string     `json:"target_table" yaml:"target_table"`
	Action      string     `json:"action" yaml:"action"`
	Keys        Fields     `json:"keys" yaml:"keys"`
	Fields      Fields     `json:"fields" yaml:"fields"`
	Reason      scalarText `json:"reason" yaml:"reason"`
}

func (d actionDocument) toAction() Action {
	return Action{
		TargetTable: strings.TrimSpace(d.TargetTable),
		Kind:        ParseActionKind(d.Action),
		Keys:        d.Keys,
		Fields:      d.Fields,
		Reason:      d.Reason.Value,
	}
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var doc actionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*a = doc.toAction()
	return nil
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var doc actionDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}
	*a = doc.toAction()
	return nil
}

// Validate checks the structural invariants the compiler relies on. It does
// not judge whether the plan is the right change to make.
func (p *Plan) Validate() error {
	for i, a := range p.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks a single action.
func (a Action) Validate() error {
	if strings.TrimSpace(a.TargetTable) == "" {
		return ErrMissingTable
	}
	if err := a.CheckColumns(); err != nil {
		return err
	}
	if a.Kind == KindUpdate && len(a.Fields.WithoutReserved()) == 0 {
		return fmt.Errorf("%w for table %s", ErrNothingToUpdate, a.TargetTable)
	}
	return nil
}

// CheckColumns verifies that every key and field name of a known kind can be
// emitted verbatim. Unknown kinds are skipped by the compiler and not checked.
func (a Action) CheckColumns() error {
	if !a.Kind.Known() {
		return nil
	}
	for _, fields := range []Fields{a.Keys, a.Fields} {
		for _, f := range fields {
			if !ValidColumn(f.Column) {
				return fmt.Errorf("%w %q for table %s", ErrInvalidColumn, f.Column, a.TargetTable)
			}
		}
	}
	return nil
}
