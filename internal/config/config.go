package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/bytecodec/internal/charset"
	"github.com/RowanDark/bytecodec/internal/codec"
)

const (
	homeDirName   = ".bytecodec"
	homeFileName  = "config.toml"
	localFileName = "bytecodec.yml"
	envPrefix     = "BYTECODEC_"
)

// Config captures the bytecodec configuration resolved from defaults,
// optional files, and environment overrides.
type Config struct {
	ServerAddr    string        `yaml:"server_addr" toml:"server_addr"`
	RecipesDir    string        `yaml:"recipes_dir" toml:"recipes_dir"`
	AuditLog      string        `yaml:"audit_log" toml:"audit_log"`
	MaxInputBytes int64         `yaml:"max_input_bytes" toml:"max_input_bytes"`
	Charsets      CharsetConfig `yaml:"charsets" toml:"charsets"`
	Escape        EscapeConfig  `yaml:"escape" toml:"escape"`
}

// CharsetConfig holds the charsets used when a request does not name one.
type CharsetConfig struct {
	Input  string `yaml:"input" toml:"input"`
	Output string `yaml:"output" toml:"output"`
}

// EscapeConfig holds the default escape lexer options.
type EscapeConfig struct {
	HexWidth string `yaml:"hex_width" toml:"hex_width"`
	Strict   bool   `yaml:"strict" toml:"strict"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerAddr:    "127.0.0.1:50061",
		RecipesDir:    "",
		AuditLog:      "",
		MaxInputBytes: 16 << 20,
		Charsets: CharsetConfig{
			Input:  charset.Default,
			Output: charset.Default,
		},
		Escape: EscapeConfig{
			HexWidth: codec.HexExact2.String(),
			Strict:   false,
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in order:
//  1. ~/.bytecodec/config.toml (TOML)
//  2. ./bytecodec.yml (YAML)
//
// Environment variables prefixed with BYTECODEC_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// EscapeOptions converts the escape section into lexer options. An
// unparseable hex width falls back to the default; Validate reports it.
func (c Config) EscapeOptions() codec.EscapeOptions {
	width, err := codec.ParseHexWidth(c.Escape.HexWidth)
	if err != nil {
		width = codec.HexExact2
	}
	return codec.EscapeOptions{HexWidth: width, Strict: c.Escape.Strict}
}

// RecipesPath returns the recipe directory, defaulting to
// ~/.bytecodec/recipes. It returns "" when no home directory is known.
func (c Config) RecipesPath() string {
	if c.RecipesDir != "" {
		return c.RecipesDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, homeDirName, "recipes")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		result = multierror.Append(result, fmt.Errorf("server_addr %q: %w", c.ServerAddr, err))
	}
	if c.MaxInputBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_input_bytes must be positive, got %d", c.MaxInputBytes))
	}
	if _, err := charset.Lookup(c.Charsets.Input); err != nil {
		result = multierror.Append(result, fmt.Errorf("charsets.input: %w", err))
	}
	if _, err := charset.Lookup(c.Charsets.Output); err != nil {
		result = multierror.Append(result, fmt.Errorf("charsets.output: %w", err))
	}
	if _, err := codec.ParseHexWidth(c.Escape.HexWidth); err != nil {
		result = multierror.Append(result, fmt.Errorf("escape.hex_width: %w", err))
	}

	return result.ErrorOrNil()
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}

	path := filepath.Join(home, homeDirName, homeFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, "toml"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	path := filepath.Join(wd, localFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, "yaml"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointers so that a file only overrides the
// keys it sets.
type fileConfig struct {
	ServerAddr    *string            `yaml:"server_addr" toml:"server_addr"`
	RecipesDir    *string            `yaml:"recipes_dir" toml:"recipes_dir"`
	AuditLog      *string            `yaml:"audit_log" toml:"audit_log"`
	MaxInputBytes *int64             `yaml:"max_input_bytes" toml:"max_input_bytes"`
	Charsets      *fileCharsetConfig `yaml:"charsets" toml:"charsets"`
	Escape        *fileEscapeConfig  `yaml:"escape" toml:"escape"`
}

type fileCharsetConfig struct {
	Input  *string `yaml:"input" toml:"input"`
	Output *string `yaml:"output" toml:"output"`
}

type fileEscapeConfig struct {
	HexWidth *string `yaml:"hex_width" toml:"hex_width"`
	Strict   *bool   `yaml:"strict" toml:"strict"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return err
		}
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	setString(&cfg.ServerAddr, fc.ServerAddr)
	setString(&cfg.RecipesDir, fc.RecipesDir)
	setString(&cfg.AuditLog, fc.AuditLog)
	if fc.MaxInputBytes != nil {
		cfg.MaxInputBytes = *fc.MaxInputBytes
	}
	if fc.Charsets != nil {
		setString(&cfg.Charsets.Input, fc.Charsets.Input)
		setString(&cfg.Charsets.Output, fc.Charsets.Output)
	}
	if fc.Escape != nil {
		setString(&cfg.Escape.HexWidth, fc.Escape.HexWidth)
		if fc.Escape.Strict != nil {
			cfg.Escape.Strict = *fc.Escape.Strict
		}
	}
	return nil
}

func setString(dst *string, val *string) {
	if val != nil {
		*dst = strings.TrimSpace(*val)
	}
}

func applyEnvOverrides(cfg *Config) {
	if val := env("SERVER"); val != "" {
		cfg.ServerAddr = val
	}
	if val := env("RECIPES_DIR"); val != "" {
		cfg.RecipesDir = val
	}
	if val := env("AUDIT_LOG"); val != "" {
		cfg.AuditLog = val
	}
	if val := env("MAX_INPUT_BYTES"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxInputBytes = parsed
		}
	}
	if val := env("INPUT_CHARSET"); val != "" {
		cfg.Charsets.Input = val
	}
	if val := env("OUTPUT_CHARSET"); val != "" {
		cfg.Charsets.Output = val
	}
	if val := env("HEX_WIDTH"); val != "" {
		cfg.Escape.HexWidth = val
	}
	if val := env("STRICT"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			cfg.Escape.Strict = parsed
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}
