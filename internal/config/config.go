// Package config handles lox.toml interpreter configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "lox.toml"

// Config represents a lox.toml configuration.
type Config struct {
	Compiler    Compiler    `toml:"compiler"`
	VM          VM          `toml:"vm"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Log         Log         `toml:"log"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Compiler configures compilation.
type Compiler struct {
	PrintCode bool `toml:"print-code"`
}

// VM configures execution.
type VM struct {
	StackSize int  `toml:"stack-size"`
	Trace     bool `toml:"trace"`

	// InstructionLimit caps instructions per run; 0 means unlimited.
	InstructionLimit int `toml:"instruction-limit"`
}

// Diagnostics configures error rendering.
type Diagnostics struct {
	Color        string `toml:"color"`
	ContextLines int    `toml:"context-lines"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		VM:          VM{StackSize: 256},
		Diagnostics: Diagnostics{Color: "auto", ContextLines: 1},
	}
}

// Parse decodes TOML data over the defaults. name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", name, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return c, nil
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a lox.toml file and loads it.
// Defaults are returned when no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate rejects values the interpreter cannot honour.
func (c *Config) Validate() error {
	if c.VM.StackSize < 1 {
		return fmt.Errorf("vm.stack-size must be at least 1, got %d", c.VM.StackSize)
	}
	if c.VM.InstructionLimit < 0 {
		return fmt.Errorf("vm.instruction-limit must not be negative, got %d", c.VM.InstructionLimit)
	}
	switch c.Diagnostics.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("diagnostics.color must be auto, always or never, got %q", c.Diagnostics.Color)
	}
	if c.Diagnostics.ContextLines < 0 {
		return fmt.Errorf("diagnostics.context-lines must not be negative, got %d", c.Diagnostics.ContextLines)
	}
	return nil
}
