package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// DefaultPath is where the config file lives, relative to the working
// directory.
const DefaultPath = "config.toml"

var ErrMissing = errors.New("required setting missing")

// Config is a flat set of settings. Optional settings left at their zero
// value disable the matching feature.
type Config struct {
	TogglToken                string          `toml:"toggl_token"`
	MoneybirdAdministrationID string          `toml:"moneybird_administration_id"`
	MoneybirdAccessToken      string          `toml:"moneybird_access_token"`
	HourlyRate                decimal.Decimal `toml:"hourly_rate"`
	RoundTo                   int             `toml:"round_to,omitempty"`
	VATOutsideEU              string          `toml:"moneybird_vat_outside_eu,omitempty"`
	VATInsideEU               string          `toml:"moneybird_vat_inside_eu,omitempty"`
	Notify                    bool            `toml:"notify,omitempty"`
	TogglBaseURL              string          `toml:"toggl_base_url,omitempty"`
	MoneybirdBaseURL          string          `toml:"moneybird_base_url,omitempty"`
}

// Path returns the config file location, honoring TOGGLBIRD_CONFIG.
func Path() string {
	if v := os.Getenv("TOGGLBIRD_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking config file: %w", err)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	values := make(map[string]any)
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg, err := FromValues(values)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// FromValues builds a Config from a flat key/value map. Values may be
// strings or numbers; unknown keys are ignored.
func FromValues(values map[string]any) (*Config, error) {
	var cfg Config
	var err error

	str := func(key string) string {
		if err != nil {
			return ""
		}
		var s string
		s, err = stringValue(key, values[key])
		return s
	}

	cfg.TogglToken = str("toggl_token")
	cfg.MoneybirdAdministrationID = str("moneybird_administration_id")
	cfg.MoneybirdAccessToken = str("moneybird_access_token")
	cfg.VATOutsideEU = str("moneybird_vat_outside_eu")
	cfg.VATInsideEU = str("moneybird_vat_inside_eu")
	cfg.TogglBaseURL = str("toggl_base_url")
	cfg.MoneybirdBaseURL = str("moneybird_base_url")

	rate := str("hourly_rate")
	roundTo := str("round_to")
	notify := str("notify")
	if err != nil {
		return nil, err
	}

	if rate != "" {
		if cfg.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("hourly_rate %q is not a number", rate)
		}
	}
	if roundTo != "" {
		if cfg.RoundTo, err = strconv.Atoi(roundTo); err != nil {
			return nil, fmt.Errorf("round_to %q is not a whole number of minutes", roundTo)
		}
	}
	if notify != "" {
		if cfg.Notify, err = strconv.ParseBool(notify); err != nil {
			return nil, fmt.Errorf("notify %q is not a boolean", notify)
		}
	}

	return &cfg, nil
}

func stringValue(key string, v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%s: unsupported value of type %T", key, v)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOGGL_API_TOKEN"); v != "" {
		cfg.TogglToken = v
	}
	if v := os.Getenv("MONEYBIRD_ACCESS_TOKEN"); v != "" {
		cfg.MoneybirdAccessToken = v
	}
	if v := os.Getenv("MONEYBIRD_ADMINISTRATION_ID"); v != "" {
		cfg.MoneybirdAdministrationID = v
	}
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.TogglToken == "" {
		missing = append(missing, "toggl_token")
	}
	if c.MoneybirdAdministrationID == "" {
		missing = append(missing, "moneybird_administration_id")
	}
	if c.MoneybirdAccessToken == "" {
		missing = append(missing, "moneybird_access_token")
	}
	if !c.HourlyRate.IsPositive() {
		missing = append(missing, "hourly_rate")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if c.RoundTo < 0 {
		return fmt.Errorf("round_to must not be negative")
	}
	return nil
}

// Save writes cfg to path, readable only by the owner since it holds
// API tokens.
func Save(path string, cfg *Config) error {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
