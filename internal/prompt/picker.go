package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const pickerVisible = 15

// Option is a choice shown to the operator. Value is returned when the
// option is picked, so ids travel with their labels.
type Option struct {
	Value string
	Label string
}

type pickerModel struct {
	title    string
	options  []Option
	filtered []int // indices into options
	selected map[int]bool
	cursor   int
	multi    bool
	filter   textinput.Model
	done     bool
	canceled bool
}

func newPicker(title string, options []Option, multi bool, defaultIdx int) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 100
	ti.Focus()

	filtered := make([]int, len(options))
	for i := range options {
		filtered[i] = i
	}

	cursor := 0
	if defaultIdx > 0 && defaultIdx < len(options) {
		cursor = defaultIdx
	}

	return pickerModel{
		title:    title,
		options:  options,
		filtered: filtered,
		selected: make(map[int]bool),
		cursor:   cursor,
		multi:    multi,
		filter:   ti,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c", "esc":
			m.canceled = true
			return m, tea.Quit
		case "enter":
			if m.multi {
				if len(m.selected) > 0 {
					m.done = true
					return m, tea.Quit
				}
				return m, nil
			}
			if len(m.filtered) > 0 {
				m.done = true
				return m, tea.Quit
			}
			return m, nil
		case " ":
			if m.multi {
				m.toggle()
				return m, nil
			}
		case "ctrl+a":
			if m.multi {
				m.toggleAll()
				return m, nil
			}
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	prevFilter := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)

	if m.filter.Value() != prevFilter {
		m.applyFilter()
	}

	return m, cmd
}

func (m *pickerModel) toggle() {
	if len(m.filtered) == 0 {
		return
	}
	idx := m.filtered[m.cursor]
	if m.selected[idx] {
		delete(m.selected, idx)
	} else {
		m.selected[idx] = true
	}
}

// toggleAll selects every visible option, or clears them when all of
// them are already selected.
func (m *pickerModel) toggleAll() {
	all := true
	for _, idx := range m.filtered {
		if !m.selected[idx] {
			all = false
			break
		}
	}
	for _, idx := range m.filtered {
		if all {
			delete(m.selected, idx)
		} else {
			m.selected[idx] = true
		}
	}
}

func (m *pickerModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.filtered = m.filtered[:0]
	for i, o := range m.options {
		if query == "" || strings.Contains(strings.ToLower(o.Label), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(dimStyle.Render("  No options match filter"))
		b.WriteString("\n")
	} else {
		start := 0
		if m.cursor >= pickerVisible {
			start = m.cursor - pickerVisible + 1
		}
		end := min(start+pickerVisible, len(m.filtered))

		for vi := start; vi < end; vi++ {
			idx := m.filtered[vi]

			cursor := "  "
			if vi == m.cursor {
				cursor = "> "
			}

			check := ""
			if m.multi {
				check = "[ ] "
				if m.selected[idx] {
					check = "[x] "
				}
			}

			line := cursor + check + m.options[idx].Label
			if vi == m.cursor {
				line = highlightStyle.Render(cursor+check) + m.options[idx].Label
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if m.multi {
		b.WriteString(helpStyle.Render(fmt.Sprintf(
			"%d selected • Space: toggle • Ctrl+A: all • Enter: confirm • Ctrl+C: cancel", len(m.selected))))
	} else {
		b.WriteString(helpStyle.Render("Enter: choose • Ctrl+C: cancel"))
	}

	return b.String()
}

// Choice returns the value under the cursor once the operator confirmed.
func (m pickerModel) Choice() (string, bool) {
	if !m.done || len(m.filtered) == 0 {
		return "", false
	}
	return m.options[m.filtered[m.cursor]].Value, true
}

// Choices returns the selected values in option order.
func (m pickerModel) Choices() []string {
	if !m.done {
		return nil
	}
	var values []string
	for i, o := range m.options {
		if m.selected[i] {
			values = append(values, o.Value)
		}
	}
	return values
}
