package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/golobby/jsonsql"
)

// Config describes one database connection and the builder options used to
// compile statements for it.
type Config struct {
	Name     string         `yaml:"name"`
	Dialect  string         `yaml:"dialect"`
	Driver   string         `yaml:"driver"`
	DSN      string         `yaml:"dsn"`
	LogLevel string         `yaml:"log_level"`
	Options  map[string]any `yaml:"options"`
}

var drivers = map[string]string{
	"postgresql": "postgres",
	"sqlite":     "sqlite3",
	"mysql":      "mysql",
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("store: parsing config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Dialect == "" {
		return fmt.Errorf("store: config %q has no dialect", c.Name)
	}
	if c.Driver == "" {
		c.Driver = drivers[c.Dialect]
	}
	if c.Driver == "" {
		return fmt.Errorf("store: no driver known for dialect %q", c.Dialect)
	}
	return nil
}

// BuilderOptions merges the configured options over the defaults and forces
// the placeholder style the dialect's driver understands.
func (c *Config) BuilderOptions(logger jsonsql.Logger) (jsonsql.Options, error) {
	opts, err := jsonsql.OptionsFromMap(c.Options)
	if err != nil {
		return opts, err
	}
	opts.Dialect = c.Dialect
	opts.SeparatedValues = true
	opts.ValuesPrefix = "$"
	switch c.Dialect {
	case "postgresql", "mysql":
		opts.NamedValues = false
	case "sqlite":
		opts.NamedValues = true
	}
	opts.Logger = logger
	return opts, nil
}
