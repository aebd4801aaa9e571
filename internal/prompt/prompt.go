// Package prompt asks the operator questions in the terminal: pick one
// option, pick several, or type an answer.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the operator aborts a question.
var ErrCanceled = errors.New("canceled by user")

var errNoOptions = errors.New("no options to choose from")

// Terminal runs each question as a small bubbletea program.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stdout}
}

func (t *Terminal) run(m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}

// Select asks for exactly one option and returns its value. defaultIdx
// is where the cursor starts.
func (t *Terminal) Select(title string, options []Option, defaultIdx int) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: %w", title, errNoOptions)
	}

	final, err := t.run(newPicker(title, options, false, defaultIdx))
	if err != nil {
		return "", err
	}

	value, ok := final.(pickerModel).Choice()
	if !ok {
		return "", ErrCanceled
	}
	return value, nil
}

// MultiSelect asks for one or more options and returns their values in
// the order the options were given.
func (t *Terminal) MultiSelect(title string, options []Option) ([]string, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%s: %w", title, errNoOptions)
	}

	final, err := t.run(newPicker(title, options, true, 0))
	if err != nil {
		return nil, err
	}

	m := final.(pickerModel)
	if !m.done {
		return nil, ErrCanceled
	}
	return m.Choices(), nil
}

// Input asks a free-text question. An empty answer takes defaultValue;
// answers failing validate are rejected with the error and asked again.
func (t *Terminal) Input(title, defaultValue string, validate Validator) (string, error) {
	return t.input(newInputModel(title, defaultValue, validate, false))
}

// Secret is Input with the typed characters masked.
func (t *Terminal) Secret(title string, validate Validator) (string, error) {
	return t.input(newInputModel(title, "", validate, true))
}

func (t *Terminal) input(m inputModel) (string, error) {
	final, err := t.run(m)
	if err != nil {
		return "", err
	}

	result := final.(inputModel)
	if !result.done {
		return "", ErrCanceled
	}
	return result.Value(), nil
}
