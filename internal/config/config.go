// Package config loads the optional YAML configuration of the fail tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fail-lang/internal/runtime"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".fail.yaml"

// Config is the validated configuration.
type Config struct {
	Path        string // empty when built from defaults
	Natives     []string
	REPL        REPLConfig
	Diagnostics DiagnosticsConfig
}

// REPLConfig configures the interactive prompt.
type REPLConfig struct {
	Prompt      string
	HistoryFile string
}

// DiagnosticsConfig configures how findings are printed.
type DiagnosticsConfig struct {
	Warnings bool
	Color    bool
}

// configFile mirrors the YAML document. Pointers distinguish absent keys
// from explicit zero values.
type configFile struct {
	Natives     *[]string        `yaml:"natives"`
	REPL        *replFile        `yaml:"repl"`
	Diagnostics *diagnosticsFile `yaml:"diagnostics"`
}

type replFile struct {
	Prompt      *string `yaml:"prompt"`
	HistoryFile *string `yaml:"history_file"`
}

type diagnosticsFile struct {
	Warnings *bool `yaml:"warnings"`
	Color    *bool `yaml:"color"`
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Natives: append([]string(nil), runtime.NativeNames...),
		REPL: REPLConfig{
			Prompt:      "fail> ",
			HistoryFile: "~/.fail_history",
		},
		Diagnostics: DiagnosticsConfig{
			Warnings: true,
			Color:    true,
		},
	}
}

// Load parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// Discover loads FileName from dir if it exists, and the defaults otherwise.
func Discover(dir string) (*Config, error) {
	candidate := filepath.Join(dir, FileName)
	info, err := os.Stat(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", candidate, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config: %s is a directory", candidate)
	}
	return Load(candidate)
}

// Parse decodes and validates a configuration document. Unknown keys are
// rejected; an empty document yields the defaults.
func Parse(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cfg := raw.toConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (raw configFile) toConfig() *Config {
	cfg := Default()
	if raw.Natives != nil {
		cfg.Natives = append([]string{}, (*raw.Natives)...)
	}
	if raw.REPL != nil {
		if raw.REPL.Prompt != nil {
			cfg.REPL.Prompt = *raw.REPL.Prompt
		}
		if raw.REPL.HistoryFile != nil {
			cfg.REPL.HistoryFile = strings.TrimSpace(*raw.REPL.HistoryFile)
		}
	}
	if raw.Diagnostics != nil {
		if raw.Diagnostics.Warnings != nil {
			cfg.Diagnostics.Warnings = *raw.Diagnostics.Warnings
		}
		if raw.Diagnostics.Color != nil {
			cfg.Diagnostics.Color = *raw.Diagnostics.Color
		}
	}
	return cfg
}

func (c *Config) validate() error {
	var errs ValidationError
	seen := make(map[string]bool, len(c.Natives))
	for i, name := range c.Natives {
		switch {
		case !runtime.IsNative(name):
			errs.Issues = append(errs.Issues, fmt.Sprintf("natives[%d]: unknown native function %q", i, name))
		case seen[name]:
			errs.Issues = append(errs.Issues, fmt.Sprintf("natives[%d]: %q listed twice", i, name))
		}
		seen[name] = true
	}
	if strings.TrimSpace(c.REPL.Prompt) == "" {
		errs.Issues = append(errs.Issues, "repl.prompt must be a non-empty string")
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// HistoryPath returns the REPL history file with a leading ~ expanded, or
// "" when history is disabled.
func (c *Config) HistoryPath() (string, error) {
	path := c.REPL.HistoryFile
	if path == "" {
		return "", nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
