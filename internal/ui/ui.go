// Package ui renders vaultsearch command output for terminals and pipes.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Format selects how results are written.
type Format string

const (
	// FormatText is human-readable, styled when writing to a terminal.
	FormatText Format = "text"
	// FormatJSON is one indented JSON document per command.
	FormatJSON Format = "json"
)

// ParseFormat maps a --format value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Config configures a Printer.
type Config struct {
	Output  io.Writer
	NoColor bool
	Format  Format
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = c.NoColor || noColor
	}
}

// WithFormat sets the output format.
func WithFormat(f Format) ConfigOption {
	return func(c *Config) {
		c.Format = f
	}
}

// NewConfig creates a Config for output. Color is off when output is not a
// terminal or NO_COLOR is set.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:  output,
		NoColor: !IsTTY(output) || DetectNoColor(),
		Format:  FormatText,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
