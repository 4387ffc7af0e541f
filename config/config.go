/*
Package config loads the server configuration.

SOURCES:
  A YAML file (path given by -config) read with cleanenv, then environment
  variables, which win over the file. Without a file only the environment
  and the defaults apply.

KEY VARIABLES:
  ENV:              local | dev | prod (logger selection)
  DB_DRIVER:        sqlite3 | postgres
  DATABASE_URL:     SQLite path or PostgreSQL connection string
  DEFAULT_TIMEZONE: Operator default for tenants without a valid timezone
  SECRET_KEY:       HS256 key for bearer tokens
  CORS_ORIGINS:     Comma-separated allowed origins
*/
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIP string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"8080"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite3" env-description:"sqlite3 or postgres"`
	DSN    string `yaml:"dsn" env:"DATABASE_URL" env-default:"./data/stamps.db"`
}

type Auth struct {
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY" env-description:"HS256 signing key for bearer tokens"`
}

// RateLimit bounds stamp attempts per user.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second" env:"STAMP_RATE" env-default:"2"`
	Burst     int     `yaml:"burst" env:"STAMP_BURST" env-default:"5"`
}

type Config struct {
	Env             string    `yaml:"env" env:"ENV" env-default:"local"`
	LogPath         string    `yaml:"log_path" env:"LOG_PATH"`
	DefaultTimezone string    `yaml:"default_timezone" env:"DEFAULT_TIMEZONE" env-description:"UTC±HH:MM or IANA zone"`
	CORSOrigins     []string  `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
	Listen          Listen    `yaml:"listen"`
	Database        Database  `yaml:"database"`
	Auth            Auth      `yaml:"auth"`
	RateLimit       RateLimit `yaml:"rate_limit"`
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Listen.BindIP + ":" + c.Listen.Port
}

// Load reads path, or only the environment when path is empty or missing.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			err = cleanenv.ReadConfig(path, cfg)
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %w", statErr)
		} else {
			err = cleanenv.ReadEnv(cfg)
		}
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if cfg.Auth.SecretKey == "" {
		return nil, fmt.Errorf("config: auth.secret_key (SECRET_KEY) is required")
	}
	return cfg, nil
}

var (
	instance *Config
	once     sync.Once
)

// MustLoad loads the configuration once and exits on failure.
func MustLoad(path string) *Config {
	once.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = cfg
	})
	return instance
}
