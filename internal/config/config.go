// Package config carries the engine's fixed limits and the optional
// tide.yaml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Engine limits. These are part of the bytecode contract, not tunables:
// operand bytes address registers, so the register file size is fixed.
const (
	// RegisterFileSize is the number of registers in every stack frame.
	RegisterFileSize = 256

	// MaxCallDepth bounds recursion before the engine fails with a
	// structural error instead of exhausting the host stack.
	MaxCallDepth = 10000

	// ArtifactExt is the conventional extension of compiled programs.
	ArtifactExt = ".tbc"

	// DefaultDebugAddr is where the debug adapter listens when no
	// address is configured.
	DefaultDebugAddr = "127.0.0.1:4711"
)

// Config represents the top-level tide.yaml configuration.
type Config struct {
	// Safety selects the register/operand validation mode: "checked"
	// (default) or "unchecked".
	Safety string `yaml:"safety,omitempty"`

	// Debug configures the debug adapter listener.
	Debug DebugConfig `yaml:"debug,omitempty"`

	// Store is the path of the SQLite database backing the host Store
	// class. Empty selects an in-memory database.
	Store string `yaml:"store,omitempty"`
}

// DebugConfig is the debug-adapter section of tide.yaml.
type DebugConfig struct {
	// Addr is the TCP listen address for debug sessions.
	Addr string `yaml:"addr,omitempty"`

	// WebSocket serves the adapter protocol over WebSocket instead of
	// raw TCP framing.
	WebSocket bool `yaml:"websocket,omitempty"`

	// StopOnEntry pauses execution on the first instruction of every
	// launched program.
	StopOnEntry bool `yaml:"stop_on_entry,omitempty"`
}

// Default returns the configuration used when no tide.yaml exists.
func Default() *Config {
	return &Config{
		Safety: "checked",
		Debug:  DebugConfig{Addr: DefaultDebugAddr},
	}
}

// Load reads and parses a tide.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses tide.yaml content from bytes. The path argument is used
// only for error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// Find searches for tide.yaml starting from dir and walking up to parent
// directories. Returns the path if found, or empty string and nil error
// if not found.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"tide.yaml", "tide.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	switch c.Safety {
	case "", "checked", "unchecked":
	default:
		return fmt.Errorf("%s: safety must be \"checked\" or \"unchecked\", got %q", path, c.Safety)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Safety == "" {
		c.Safety = "checked"
	}
	if c.Debug.Addr == "" {
		c.Debug.Addr = DefaultDebugAddr
	}
}

// Unchecked reports whether register/operand validation is disabled.
func (c *Config) Unchecked() bool {
	return c.Safety == "unchecked"
}
