// Package prompt asks the operator to confirm before a script touches a database.
package prompt

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Summary is what the operator is shown before applying a script.
type Summary struct {
	ScriptPath  string
	RequestID   string
	Environment string
	DatabaseURL string
	Lines       int
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Yes     key.Binding
	No      key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k", "left")),
		Down:    key.NewBinding(key.WithKeys("down", "j", "right", "tab")),
		Confirm: key.NewBinding(key.WithKeys("enter")),
		Yes:     key.NewBinding(key.WithKeys("y", "Y")),
		No:      key.NewBinding(key.WithKeys("n", "N", "q")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc")),
	}
}

const (
	optionApply = iota
	optionCancel
)

// ConfirmModel is a yes/no prompt. When the target is not a local
// environment the operator must also type the environment name.
type ConfirmModel struct {
	summary   Summary
	keys      keyMap
	selected  int
	input     textinput.Model
	typed     string
	problem   string
	confirmed bool
	done      bool
	width     int
}

// NewConfirm creates a confirmation prompt for s. Applying is never the
// default selection.
func NewConfirm(s Summary) ConfirmModel {
	m := ConfirmModel{
		summary:  s,
		keys:     defaultKeyMap(),
		selected: optionCancel,
	}

	if env := strings.TrimSpace(s.Environment); env != "" && env != "local" {
		m.typed = env
		m.input = textinput.New()
		m.input.Placeholder = env
		m.input.CharLimit = 64
		m.input.Width = 32
		m.input.Focus()
		// Letters go to the text input while it is active.
		m.keys.Up.SetKeys("up", "left")
		m.keys.Down.SetKeys("down", "right", "tab")
		m.keys.Yes.SetEnabled(false)
		m.keys.No.SetEnabled(false)
	}
	return m
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	if m.typed != "" {
		return textinput.Blink
	}
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.No):
			return m.finish(false)

		case key.Matches(msg, m.keys.Yes):
			return m.finish(true)

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			if m.selected == optionApply {
				m.selected = optionCancel
			} else {
				m.selected = optionApply
			}
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			if m.selected == optionCancel {
				return m.finish(false)
			}
			if m.typed != "" && strings.TrimSpace(m.input.Value()) != m.typed {
				m.problem = fmt.Sprintf("type %q to confirm", m.typed)
				return m, nil
			}
			return m.finish(true)
		}

		if m.typed != "" {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.problem = ""
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	return m, nil
}

func (m ConfirmModel) finish(confirmed bool) (tea.Model, tea.Cmd) {
	m.confirmed = confirmed
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(renderHeader("Apply data-change script"))
	b.WriteString("\n\n")
	b.WriteString(renderField("Script", m.summary.ScriptPath) + "\n")
	if m.summary.RequestID != "" {
		b.WriteString(renderField("Request", m.summary.RequestID) + "\n")
	}
	b.WriteString(renderField("Environment", m.summary.Environment) + "\n")
	b.WriteString(renderField("Database", RedactURL(m.summary.DatabaseURL)) + "\n")
	if m.summary.Lines > 0 {
		b.WriteString(renderField("Size", fmt.Sprintf("%d lines", m.summary.Lines)) + "\n")
	}

	if m.typed != "" {
		b.WriteString("\n")
		b.WriteString(renderWarning(fmt.Sprintf("Type the environment name (%s) to confirm:", m.typed)))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderOption(m.selected == optionApply, "Apply"))
	b.WriteString("\n")
	b.WriteString(renderOption(m.selected == optionCancel, "Cancel"))

	if m.problem != "" {
		b.WriteString("\n\n")
		b.WriteString(renderError(m.problem))
	}

	b.WriteString("\n")
	if m.typed != "" {
		b.WriteString(renderStatusBar("↑/↓ select • enter confirm • esc cancel"))
	} else {
		b.WriteString(renderStatusBar("↑/↓ select • enter confirm • y/n • esc cancel"))
	}

	return borderStyle.Render(b.String())
}

// Confirmed reports whether the operator chose to apply.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// Confirm runs the prompt on the terminal.
func Confirm(s Summary) (bool, error) {
	p := tea.NewProgram(NewConfirm(s))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}

// RedactURL hides the password in a connection URL.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	return u.Redacted()
}
