// Package config loads editorbind settings from defaults, a YAML file, a
// .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aleksclark/editorbind/internal/richtext"
	"github.com/aleksclark/editorbind/internal/tracing"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read from the working directory when no file is given.
	DefaultFile = "editorbind.yaml"
	// DefaultInputWait is the quiet period before an input event is emitted.
	DefaultInputWait = 300 * time.Millisecond

	envPrefix = "EDITORBIND_"
)

var (
	ErrInvalidWait = errors.New("input wait must not be negative")
	ErrInvalidSize = errors.New("editor size must not be negative")
	ErrCharLimit   = errors.New("editor char limit must not be negative")
	ErrMaxLines    = errors.New("editor max lines must not be negative")
)

// Input controls how editor changes become input events.
type Input struct {
	// Wait is the quiet period; zero emits on every change.
	Wait time.Duration `yaml:"wait"`
	// Leading emits on the first change of a burst instead of the last.
	Leading bool `yaml:"leading"`
}

// Log controls the log file.
type Log struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// Status controls the status file read by external monitors.
type Status struct {
	// Dir holds one JSON file per running binding. Empty disables it.
	Dir string `yaml:"dir"`
}

// Config is the complete editorbind configuration.
type Config struct {
	// Value is the initial editor data.
	Value string `yaml:"value"`
	// ValueFile is watched and its content bound to the editor value.
	ValueFile string `yaml:"value_file"`
	Disabled  bool   `yaml:"disabled"`

	Input   Input           `yaml:"input"`
	Editor  richtext.Config `yaml:"editor"`
	Log     Log             `yaml:"log"`
	Status  Status          `yaml:"status"`
	Tracing tracing.Config  `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: Input{Wait: DefaultInputWait},
		Editor: richtext.Config{
			Placeholder:     "Start typing...",
			ShowLineNumbers: true,
		},
		Log: Log{
			File: filepath.Join(".editorbind", "logs", "editorbind.log"),
		},
	}
}

// Load builds the configuration. An explicit path must exist; without one
// DefaultFile is used when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads name into the process environment if it exists. Variables
// that are already set win.
func loadDotEnv(name string) error {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	return nil
}

// applyEnv overrides settings from EDITORBIND_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		return lookup(envPrefix + name)
	}

	if v, ok := get("VALUE"); ok {
		c.Value = v
	}
	if v, ok := get("VALUE_FILE"); ok {
		c.ValueFile = v
	}
	if v, ok := get("LOG_FILE"); ok {
		c.Log.File = v
	}
	if v, ok := get("STATUS_DIR"); ok {
		c.Status.Dir = v
	}
	if v, ok := get("OTLP_ENDPOINT"); ok {
		c.Tracing.Endpoint = v
	}
	if v, ok := get("INPUT_WAIT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sINPUT_WAIT: %w", envPrefix, err)
		}
		c.Input.Wait = d
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"DISABLED", &c.Disabled},
		{"INPUT_LEADING", &c.Input.Leading},
		{"DEBUG", &c.Log.Debug},
		{"OTLP_INSECURE", &c.Tracing.Insecure},
	}
	for _, b := range bools {
		v, ok := get(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, b.name, err)
		}
		*b.dst = parsed
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Input.Wait < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWait, c.Input.Wait)
	}
	if c.Editor.Width < 0 || c.Editor.Height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, c.Editor.Width, c.Editor.Height)
	}
	if c.Editor.CharLimit < 0 {
		return fmt.Errorf("%w: %d", ErrCharLimit, c.Editor.CharLimit)
	}
	if c.Editor.MaxLines < 0 {
		return fmt.Errorf("%w: %d", ErrMaxLines, c.Editor.MaxLines)
	}
	switch c.Tracing.Protocol {
	case "", tracing.ProtocolGRPC, tracing.ProtocolHTTP:
	default:
		return fmt.Errorf("unknown tracing protocol %q", c.Tracing.Protocol)
	}
	return nil
}
