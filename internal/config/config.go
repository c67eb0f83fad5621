package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/lc/confload/internal/filesys"
	"github.com/lc/confload/internal/log"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the settings file, relative to the home directory.
	DefaultConfigPath = ".confload/config.yaml"
	// DefaultDelimiter joins nested field names into env variable names.
	DefaultDelimiter = "___"
	// DefaultOutput is the format the load command prints.
	DefaultOutput = "json"
	// EnvPrefix prefixes every environment variable read by this package.
	EnvPrefix = "CONFLOAD_"
)

// Config holds the tool settings.
type Config struct {
	// Schema is the JSON Schema document used when --schema is not given.
	Schema string `yaml:"schema" env:"SCHEMA"`
	// Env selects <env>.config.json and <env>.secrets.json.
	Env string `yaml:"env" env:"ENV"`
	// Dir anchors the default config and secrets directories.
	Dir       string `yaml:"dir" env:"DIR"`
	Delimiter string `yaml:"delimiter" env:"DELIMITER"`
	Output    string `yaml:"output" env:"OUTPUT"`
	Debug     bool   `yaml:"debug" env:"DEBUG"`
	Async     bool   `yaml:"async" env:"ASYNC"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load(ctx context.Context) (*Config, error)
}

// FSProvider reads settings from a file and the environment.
type FSProvider struct {
	fs      filesys.ReadFS
	path    string
	environ map[string]string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a provider for the default settings file in the user's home
// directory, reading variables from the process environment.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		// Continue with an empty home, which resolves to the current directory.
		log.Warnf("could not determine home directory: %v", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath), nil)
}

// NewWithPath creates a provider for path. A nil environ means the process
// environment.
func NewWithPath(fs filesys.ReadFS, path string, environ map[string]string) Provider {
	return &FSProvider{
		fs:      fs,
		path:    path,
		environ: environ,
	}
}

// Default returns a default configuration with preset values.
func Default() *Config {
	return &Config{
		Delimiter: DefaultDelimiter,
		Output:    DefaultOutput,
	}
}

// Load returns the settings. Environment variables win over the file, and
// the file wins over defaults. A missing file is not an error.
func (p *FSProvider) Load(ctx context.Context) (*Config, error) {
	cfg := Default()

	fromFile, err := p.loadAndParse(ctx)
	if err != nil && !errors.Is(err, ErrNoConfig) {
		return nil, err
	}
	if fromFile != nil {
		if err := mergo.Merge(cfg, fromFile, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging configs: %w", err)
		}
	}

	// Parsed onto cfg rather than merged, so an explicit false still wins.
	if err := p.parseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	if c.Delimiter == "" {
		return errors.New("delimiter cannot be empty")
	}
	switch strings.ToLower(c.Output) {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", c.Output)
	}
	return nil
}

// parseEnv sets the fields whose variables are present, leaving the rest.
func (p *FSProvider) parseEnv(cfg *Config) error {
	opts := env.Options{Prefix: EnvPrefix}
	if p.environ != nil {
		opts.Environment = p.environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}

func (p *FSProvider) loadAndParse(ctx context.Context) (*Config, error) {
	data, err := p.fs.ReadFile(ctx, p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	return &cfg, nil
}
