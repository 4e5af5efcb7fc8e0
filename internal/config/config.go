package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config carries runtime options for hostinfod.
type Config struct {
	Listen        string
	Interval      time.Duration
	SettleDelay   time.Duration
	OSNameTimeout time.Duration
	LogLevel      string
	LogFormat     string
	TUI           bool
	Restart       RestartConfig
}

// RestartConfig tunes sampler supervision.
type RestartConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	ResetAfter time.Duration
}

func Default() Config {
	return Config{
		Listen:        ":8000",
		Interval:      10 * time.Second,
		SettleDelay:   200 * time.Millisecond,
		OSNameTimeout: 2 * time.Second,
		LogLevel:      "info",
		LogFormat:     "text",
		TUI:           false,
		Restart: RestartConfig{
			Initial:    time.Second,
			Max:        time.Minute,
			Multiplier: 2.0,
			ResetAfter: time.Minute,
		},
	}
}

// fileConfig is the on-disk shape. Durations are strings such as "10s".
type fileConfig struct {
	Listen        string      `yaml:"listen" toml:"listen"`
	Interval      string      `yaml:"interval" toml:"interval"`
	SettleDelay   string      `yaml:"settle_delay" toml:"settle_delay"`
	OSNameTimeout string      `yaml:"os_name_timeout" toml:"os_name_timeout"`
	LogLevel      string      `yaml:"log_level" toml:"log_level"`
	LogFormat     string      `yaml:"log_format" toml:"log_format"`
	TUI           *bool       `yaml:"tui" toml:"tui"`
	Restart       fileRestart `yaml:"restart" toml:"restart"`
}

type fileRestart struct {
	Initial    string  `yaml:"initial" toml:"initial"`
	Max        string  `yaml:"max" toml:"max"`
	Multiplier float64 `yaml:"multiplier" toml:"multiplier"`
	ResetAfter string  `yaml:"reset_after" toml:"reset_after"`
}

// Load reads a YAML (.yaml/.yml) or TOML (.toml) file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
	default:
		return cfg, fmt.Errorf("config: unsupported file type %q", ext)
	}

	if err := fc.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Listen != "" {
		cfg.Listen = fc.Listen
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.TUI != nil {
		cfg.TUI = *fc.TUI
	}
	if fc.Restart.Multiplier != 0 {
		cfg.Restart.Multiplier = fc.Restart.Multiplier
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"interval", fc.Interval, &cfg.Interval},
		{"settle_delay", fc.SettleDelay, &cfg.SettleDelay},
		{"os_name_timeout", fc.OSNameTimeout, &cfg.OSNameTimeout},
		{"restart.initial", fc.Restart.Initial, &cfg.Restart.Initial},
		{"restart.max", fc.Restart.Max, &cfg.Restart.Max},
		{"restart.reset_after", fc.Restart.ResetAfter, &cfg.Restart.ResetAfter},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// FromFlags parses flags, an optional -config file, and environment overrides.
// Precedence: env > flags > file > defaults.
func FromFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("hostinfod", flag.ContinueOnError)
	path := fs.String("config", "", "path to a YAML or TOML config file")
	listen := fs.String("listen", "", "HTTP listen address")
	interval := fs.Duration("interval", 0, "sampling interval")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "", "log format: text|json")
	tui := fs.Bool("tui", false, "show the terminal dashboard")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		loaded, err := Load(*path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "interval":
			cfg.Interval = *interval
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "tui":
			cfg.TUI = *tui
		}
	})

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOSTINFO_INTERVAL"); v != "" {
		if parsed, err := parseDuration(v); err == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("HOSTINFO_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("HOSTINFO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HOSTINFO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("HOSTINFO_TUI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TUI = b
		}
	}
}

// parseDuration accepts Go durations and bare seconds ("10" == "10s").
func parseDuration(v string) (time.Duration, error) {
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseDuration(v + "s")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return parsed, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("config: interval must be positive, got %s", c.Interval)
	case c.SettleDelay < 0:
		return fmt.Errorf("config: settle_delay must not be negative, got %s", c.SettleDelay)
	case c.OSNameTimeout <= 0:
		return fmt.Errorf("config: os_name_timeout must be positive, got %s", c.OSNameTimeout)
	case c.Restart.Multiplier < 1:
		return fmt.Errorf("config: restart multiplier must be >= 1, got %v", c.Restart.Multiplier)
	case c.Restart.Initial <= 0:
		return fmt.Errorf("config: restart initial backoff must be positive, got %s", c.Restart.Initial)
	case c.Restart.Max < c.Restart.Initial:
		return fmt.Errorf("config: restart max %s is below initial %s", c.Restart.Max, c.Restart.Initial)
	case c.Restart.ResetAfter < 0:
		return errors.New("config: restart reset_after must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}
