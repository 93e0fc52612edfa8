// Package config loads server settings from the environment and flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr            string   `env:"CAMELOT_ADDR" envDefault:":8080"`
	DBDriver        string   `env:"CAMELOT_DB_DRIVER" envDefault:"sqlite"`
	DBDSN           string   `env:"CAMELOT_DB_DSN" envDefault:"camelot.db"`
	DefaultChannels []string `env:"CAMELOT_DEFAULT_CHANNELS" envDefault:"Server Team,Client Team,Software Eng. Group" envSeparator:","`

	RedisAddr     string `env:"CAMELOT_REDIS_ADDR"`
	RedisPassword string `env:"CAMELOT_REDIS_PASSWORD"`
	RedisDB       int    `env:"CAMELOT_REDIS_DB" envDefault:"0"`

	JWTSecret  string        `env:"CAMELOT_JWT_SECRET" envDefault:"camelot-dev-secret"`
	TokenTTL   time.Duration `env:"CAMELOT_TOKEN_TTL" envDefault:"1h"`
	SessionKey string        `env:"CAMELOT_SESSION_KEY" envDefault:"camelot-dev-session-key"`

	LogLevel  string `env:"CAMELOT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CAMELOT_LOG_FORMAT" envDefault:"json"`
}

// ParseConfig reads the environment, then lets flags in args override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite, mysql or postgres")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database DSN or sqlite path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for token revocation (empty keeps it in memory)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or text")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	cfg.DefaultChannels = trimNames(cfg.DefaultChannels)
	return cfg, nil
}

func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// NewLogger builds the process logger.
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}
