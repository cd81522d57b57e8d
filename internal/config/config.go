package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/seangravener/game-button-masher/internal/engine"
)

// FileEnv names the variable holding an optional YAML config path.
const FileEnv = "BUTTONMASH_CONFIG"

type Config struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	Rules           engine.Rules  `yaml:"rules"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() Config {
	return Config{
		Addr:            ":3000",
		LogLevel:        "info",
		LogFormat:       "json",
		AllowedOrigins:  []string{"*"},
		Rules:           engine.DefaultRules(),
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load builds the config from defaults, then the YAML file at path (or
// $BUTTONMASH_CONFIG when path is empty), then the environment. A .env
// file in the working directory is read first if present; it never
// overrides variables that are already set.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	var errs error
	errs = multierr.Append(errs, envInt("MAX_PLAYERS", &c.Rules.MaxPlayers))
	errs = multierr.Append(errs, envInt("COUNTDOWN_FROM", &c.Rules.CountdownFrom))
	errs = multierr.Append(errs, envInt("ROUND_SECONDS", &c.Rules.RoundSeconds))
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
		} else {
			c.ShutdownTimeout = d
		}
	}
	return errs
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs error
	if c.Addr == "" {
		errs = multierr.Append(errs, errors.New("addr must not be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = multierr.Append(errs, fmt.Errorf("log format %q: want json or console", c.LogFormat))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = multierr.Append(errs, errors.New("allowed origins must not be empty"))
	}
	if c.Rules.MaxPlayers < engine.MinPlayers {
		errs = multierr.Append(errs, fmt.Errorf("max players %d: need at least %d", c.Rules.MaxPlayers, engine.MinPlayers))
	}
	if c.Rules.CountdownFrom < 1 {
		errs = multierr.Append(errs, fmt.Errorf("countdown %d: must be positive", c.Rules.CountdownFrom))
	}
	if c.Rules.RoundSeconds < 1 {
		errs = multierr.Append(errs, fmt.Errorf("round length %d: must be positive", c.Rules.RoundSeconds))
	}
	if c.ShutdownTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("shutdown timeout %s: must be positive", c.ShutdownTimeout))
	}
	return errs
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
