// Package config loads planner configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all planner configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// DataDir is scanned for "Database - <STATION>.xlsx" workbooks.
	DataDir string `yaml:"data_dir"`

	// Password is the single shared dashboard password.
	Password string `yaml:"password"`

	// SessionTTL is how long a login session stays valid, as a
	// time.ParseDuration string (e.g. "12h", "30m").
	SessionTTL string `yaml:"session_ttl"`

	// Currencies maps a code to its display config. Workbook figures
	// are in AED; rates convert from AED.
	Currencies map[string]Currency `yaml:"currencies"`
}

// Currency is one selectable display currency.
type Currency struct {
	Rate   float64 `yaml:"rate"`
	Symbol string  `yaml:"symbol"`
}

// DefaultConfig returns the built-in defaults, including the AED/USD/BHD
// currency table.
func DefaultConfig() *Config {
	return &Config{
		Addr:       ":8080",
		DataDir:    "data",
		SessionTTL: "12h",
		Currencies: map[string]Currency{
			"AED": {Rate: 1.0, Symbol: "AED"},
			"USD": {Rate: 1 / 3.67, Symbol: "$"},
			"BHD": {Rate: 0.102, Symbol: "BHD"},
		},
	}
}

// Load reads the YAML config at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PLANNER_ADDR"); addr != "" {
		c.Addr = addr
	}
	if dir := os.Getenv("PLANNER_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if pw := os.Getenv("PLANNER_PASSWORD"); pw != "" {
		c.Password = pw
	}
	if ttl := os.Getenv("PLANNER_SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			c.SessionTTL = ttl
		}
	}
}

// SessionDuration parses SessionTTL, falling back to 12 hours when the
// value is malformed or not positive.
func (c *Config) SessionDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

func (c *Config) validate() error {
	if c.Password == "" {
		return fmt.Errorf("no dashboard password configured (set password in config or PLANNER_PASSWORD)")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if _, ok := c.Currencies["AED"]; !ok {
		return fmt.Errorf("currency table must include AED (the workbook currency)")
	}
	return nil
}

// Currency resolves a code against the table, falling back to USD and
// then AED for unknown codes.
func (c *Config) Currency(code string) Currency {
	if cur, ok := c.Currencies[code]; ok {
		return cur
	}
	if cur, ok := c.Currencies["USD"]; ok {
		return cur
	}
	return c.Currencies["AED"]
}

// HasCurrency reports whether code is a configured display currency.
func (c *Config) HasCurrency(code string) bool {
	_, ok := c.Currencies[code]
	return ok
}
