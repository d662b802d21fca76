/*
Package config loads server configuration and builds the logger.

PRECEDENCE (highest first):
  1. Command-line flags bound with viper.BindPFlag
  2. Environment variables with the LEDGER_ prefix (LEDGER_SERVER_PORT, ...)
  3. A .env file in the working directory, loaded into the environment
  4. ledger.yaml in the working directory or $HOME/.config/ledger
  5. Defaults

KEYS:
  server.port            HTTP port (8080)
  database.path          SQLite database path (ledger.db, ":memory:" allowed)
  logging.level          debug, info, warn, error (info)
  logging.format         text, json (text)
  cors.allowed_origins   list of allowed origins (*)
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	KeyPort        = "server.port"
	KeyDBPath      = "database.path"
	KeyLogLevel    = "logging.level"
	KeyLogFormat   = "logging.format"
	KeyCORSOrigins = "cors.allowed_origins"

	EnvPrefix = "LEDGER"
)

type Config struct {
	Port        int
	DBPath      string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string
}

// SetDefaults registers default values and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDBPath, "ledger.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyCORSOrigins, []string{"*"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads cfgFile (or searches for ledger.yaml when empty) into v and
// returns the resolved configuration. A missing config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ledger"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt(KeyPort),
		DBPath:      v.GetString(KeyDBPath),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
		CORSOrigins: v.GetStringSlice(KeyCORSOrigins),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks port range and logging settings.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid %s: %d", KeyPort, c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%s is required", KeyDBPath)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	return nil
}

// NewLogger builds a logger writing to w with the configured level and format.
func NewLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.LogFormat {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}
