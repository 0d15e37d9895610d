package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PTYTERM"

// Config holds all application configuration.
type Config struct {
	// Shell, ShellArgs, Login and Term select the child program. Empty
	// values mean the platform default.
	Shell     string   `json:"shell,omitempty"`
	ShellArgs []string `json:"shellArgs,omitempty" split_words:"true"`
	Login     bool     `json:"login,omitempty"`
	Term      string   `json:"term,omitempty"`

	// Cols and Rows are the PTY size before the display reports its own.
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
	// CellWidth and CellHeight convert a display resize in pixels into
	// PTY columns and rows.
	CellWidth  int `json:"cellWidth" split_words:"true"`
	CellHeight int `json:"cellHeight" split_words:"true"`

	ReadBufferSize int      `json:"readBufferSize" split_words:"true"`
	PollInterval   Duration `json:"pollInterval" split_words:"true"`
	StartupDelay   Duration `json:"startupDelay" split_words:"true"`
	WriteTimeout   Duration `json:"writeTimeout" split_words:"true"`
	MaxPending     int      `json:"maxPending" split_words:"true"`

	// InitCommand is sent to every new local session after InitDelay.
	InitCommand string   `json:"initCommand,omitempty" split_words:"true"`
	InitDelay   Duration `json:"initDelay" split_words:"true"`

	LogLevel       string `json:"logLevel" split_words:"true"`
	LogDevelopment bool   `json:"logDevelopment" split_words:"true"`
	LogFile        string `json:"logFile,omitempty" split_words:"true"`

	// ListenAddr enables the browser WebSocket endpoint. Empty means off.
	ListenAddr string `json:"listenAddr,omitempty" split_words:"true"`
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Cols:           120,
		Rows:           16,
		CellWidth:      8,
		CellHeight:     16,
		ReadBufferSize: 2000,
		PollInterval:   Duration(30 * time.Millisecond),
		WriteTimeout:   Duration(2 * time.Second),
		MaxPending:     4096,
		InitDelay:      Duration(time.Second),
		LogLevel:       "info",
	}
	if runtime.GOOS == "windows" {
		cfg.ReadBufferSize = 1024
		cfg.StartupDelay = Duration(50 * time.Millisecond)
	}
	return cfg
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "ptyterm", "config.json"), nil
}

// Load builds the configuration from defaults, then the JSON file at path
// (a missing file is not an error, an empty path skips it), then PTYTERM_*
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or falls back to Default.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the terminal cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Cols == 0 || c.Rows == 0 {
		errs = append(errs, fmt.Errorf("cols and rows must be positive, got %dx%d", c.Cols, c.Rows))
	}
	if c.CellWidth <= 0 || c.CellHeight <= 0 {
		errs = append(errs, fmt.Errorf("cell size must be positive, got %dx%d", c.CellWidth, c.CellHeight))
	}
	if c.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("readBufferSize must be positive, got %d", c.ReadBufferSize))
	}
	if c.PollInterval < 0 || c.StartupDelay < 0 || c.WriteTimeout < 0 || c.InitDelay < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.MaxPending < 0 {
		errs = append(errs, fmt.Errorf("maxPending must not be negative, got %d", c.MaxPending))
	}
	return errors.Join(errs...)
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Duration is a time.Duration written as "30ms" in JSON and env vars.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
