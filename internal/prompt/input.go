package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Validator checks an answer. A non-nil error is shown and the question
// is asked again.
type Validator = func(string) error

type inputModel struct {
	title        string
	defaultValue string
	validate     Validator
	textinput    textinput.Model
	errMsg       string
	value        string
	done         bool
	canceled     bool
}

func newInputModel(title, defaultValue string, validate Validator, secret bool) inputModel {
	ti := textinput.New()
	ti.Placeholder = defaultValue
	ti.CharLimit = 200
	ti.Focus()
	if secret {
		ti.EchoMode = textinput.EchoPassword
	}

	return inputModel{
		title:        title,
		defaultValue: defaultValue,
		validate:     validate,
		textinput:    ti,
	}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c", "esc":
			m.canceled = true
			return m, tea.Quit
		case "enter":
			answer := strings.TrimSpace(m.textinput.Value())
			if answer == "" {
				answer = m.defaultValue
			}
			if m.validate != nil {
				if err := m.validate(answer); err != nil {
					m.errMsg = err.Error()
					return m, nil
				}
			}
			m.value = answer
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	title := titleStyle.Render(m.title)
	if m.defaultValue != "" {
		title += " " + dimStyle.Render("["+m.defaultValue+"]")
	}

	view := title + "\n" + m.textinput.View() + "\n"
	if m.errMsg != "" {
		view += errorStyle.Render(m.errMsg) + "\n"
	}
	return view + helpStyle.Render("Enter: submit • Ctrl+C: cancel")
}

func (m inputModel) Value() string {
	return m.value
}
