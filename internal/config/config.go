package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minSecretLength = 16

// DefaultDBPath is the sqlite file used when nothing else is configured.
const DefaultDBPath = "expenses.db"

type Config struct {
	Port    string        `mapstructure:"port"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Log     LogConfig     `mapstructure:"log"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

type SessionConfig struct {
	Secret       string `mapstructure:"secret"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// AdminConfig names the account created on first start.
type AdminConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// env maps config keys to the variable names operators set.
var env = map[string]string{
	"port":                  "PORT",
	"db.driver":             "DB_DRIVER",
	"db.path":               "DB_PATH",
	"db.url":                "DATABASE_URL",
	"session.secret":        "SESSION_SECRET",
	"session.secure_cookie": "SECURE_COOKIE",
	"admin.user":            "ADMIN_USER",
	"admin.password":        "ADMIN_PASSWORD",
	"log.level":             "LOG_LEVEL",
	"log.format":            "LOG_FORMAT",
}

// Load reads .env, then settings.yml from configDirs (./configs and /configs
// when none are given), then the environment. Later sources win.
func Load(configDirs ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if len(configDirs) == 0 {
		configDirs = []string{"./configs", "/configs"}
	}
	for _, dir := range configDirs {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	v.SetDefault("port", "8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", DefaultDBPath)
	v.SetDefault("db.url", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("admin.user", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// EnsureSecret fills an empty session secret with random bytes and reports
// whether it did. Sessions signed with a generated secret do not survive a
// restart.
func (c *Config) EnsureSecret() (bool, error) {
	if c.Session.Secret != "" {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("generate session secret: %w", err)
	}
	c.Session.Secret = hex.EncodeToString(b)
	return true, nil
}

// DSN returns the data source for the configured driver.
func (c *Config) DSN() string {
	if c.DB.Driver == "postgres" {
		return c.DB.URL
	}
	return c.DB.Path
}

// ResolveDatabase lets DB_DRIVER, DB_PATH and DATABASE_URL fill in for
// command-line flags left at their defaults.
func ResolveDatabase(driver, dsn string) (string, string) {
	if v := os.Getenv(env["db.driver"]); v != "" && driver == "sqlite" {
		driver = v
	}
	if dsn == DefaultDBPath {
		if driver == "postgres" {
			dsn = os.Getenv(env["db.url"])
		} else if path := os.Getenv(env["db.path"]); path != "" {
			dsn = path
		}
	}
	return driver, dsn
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, "DB_PATH cannot be empty when using the sqlite driver")
		} else if dir := filepath.Dir(c.DB.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	case "postgres":
		if c.DB.URL == "" {
			errs = append(errs, "DATABASE_URL is required when using the postgres driver")
		} else if u, err := url.Parse(c.DB.URL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid DB_DRIVER '%s': must be one of [sqlite postgres]", c.DB.Driver))
	}

	if c.Session.Secret != "" && len(c.Session.Secret) < minSecretLength {
		errs = append(errs, fmt.Sprintf("SESSION_SECRET must be at least %d characters", minSecretLength))
	}

	if (c.Admin.User == "") != (c.Admin.Password == "") {
		errs = append(errs, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL '%s'", c.Log.Level))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Sprintf("invalid LOG_FORMAT '%s': must be 'text' or 'json'", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
