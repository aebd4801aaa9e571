package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Field is one setting asked for when the config file is created.
type Field struct {
	Key      string
	Question string
	Required bool
	Secret   bool
	Validate func(string) error
}

// Asker asks the operator a free-text question.
type Asker interface {
	Input(title, defaultValue string, validate func(string) error) (string, error)
	Secret(title string, validate func(string) error) (string, error)
}

var Fields = []Field{
	{Key: "toggl_token", Question: "What is your Toggl API token?", Required: true, Secret: true},
	{Key: "moneybird_administration_id", Question: "What is your Moneybird administration id?", Required: true},
	{Key: "moneybird_access_token", Question: "What is your Moneybird access token?", Required: true, Secret: true},
	{Key: "hourly_rate", Question: "What is your hourly rate?", Required: true, Validate: validatePositiveNumber},
	{Key: "round_to", Question: "Round durations to how many minutes? (empty for no rounding)", Validate: validateMinutes},
	{Key: "moneybird_vat_inside_eu", Question: "Which Moneybird tax rate id applies to EU customers? (empty for none)"},
	{Key: "moneybird_vat_outside_eu", Question: "Which Moneybird tax rate id applies to customers outside the EU? (empty for none)"},
}

// Create asks for every field, writes the answers to path and loads the
// written file, so env overrides apply from the first run on.
func Create(path string, asker Asker) (*Config, error) {
	answers := make(map[string]any, len(Fields))
	for _, f := range Fields {
		validate := f.validator()

		var answer string
		var err error
		if f.Secret {
			answer, err = asker.Secret(f.Question, validate)
		} else {
			answer, err = asker.Input(f.Question, "", validate)
		}
		if err != nil {
			return nil, fmt.Errorf("asking %s: %w", f.Key, err)
		}
		if answer != "" {
			answers[f.Key] = answer
		}
	}

	cfg, err := FromValues(answers)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return Load(path)
}

// validator combines the required check with the field's own check.
// Empty optional answers are accepted without running the field check.
func (f Field) validator() func(string) error {
	return func(s string) error {
		if s == "" {
			if f.Required {
				return errors.New("a value is required")
			}
			return nil
		}
		if f.Validate != nil {
			return f.Validate(s)
		}
		return nil
	}
}

func validatePositiveNumber(s string) error {
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsPositive() {
		return errors.New("enter a positive number, e.g. 85 or 92.50")
	}
	return nil
}

func validateMinutes(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > 60*24 {
		return errors.New("enter a whole number of minutes, e.g. 15")
	}
	return nil
}
