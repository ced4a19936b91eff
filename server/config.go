package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		Secret       string        `yaml:"secret"`
		TokenTTL     time.Duration `yaml:"token_ttl"`
		CookieName   string        `yaml:"cookie_name"`
		CookieSecure bool          `yaml:"cookie_secure"`
		SameSite     string        `yaml:"same_site"`
	} `yaml:"auth"`
	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func defaultConfig() Config {
	var c Config
	c.Addr = ":8080"
	c.Database.Driver = "sqlite"
	c.Database.URL = ":memory:"
	c.Auth.TokenTTL = 14 * 24 * time.Hour
	c.Auth.CookieName = "nestlist_sess"
	c.Auth.SameSite = "lax"
	c.Log.Level = "info"
	return c
}

// loadConfig reads the YAML file named by NESTLIST_CONFIG, if any, and then
// applies environment overrides.
func loadConfig() (Config, error) {
	c := defaultConfig()
	if path := getenv("NESTLIST_CONFIG", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}
	c.Addr = getenv("ADDR", c.Addr)
	c.Database.Driver = getenv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getenv("DATABASE_URL", c.Database.URL)
	c.Auth.Secret = getenv("AUTH_SECRET", c.Auth.Secret)
	c.Auth.CookieName = getenv("SESSION_COOKIE_NAME", c.Auth.CookieName)
	c.Auth.SameSite = getenv("COOKIE_SAMESITE", c.Auth.SameSite)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	if v := getenv("SESSION_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if v := getenv("COOKIE_SECURE", ""); v != "" {
		c.Auth.CookieSecure = v == "true"
	}
	if v := getenv("CORS_ORIGINS", ""); v != "" {
		c.CORS.Origins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORS.Origins = append(c.CORS.Origins, o)
			}
		}
	}
	if c.Database.Driver == "postgres" {
		c.Database.Driver = "pgx"
	}
	return c, nil
}

func (c Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
