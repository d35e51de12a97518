// Package config loads process configuration from defaults, an optional
// YAML file, a .env file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mail     MailConfig     `yaml:"mail"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BodyLimit       int64         `yaml:"body_limit"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	Debug           bool          `yaml:"debug"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Service  string `yaml:"service"`
}

type StorageConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// RedisConfig enables Idempotency-Key support when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PipelineConfig struct {
	PersistTimeout time.Duration `yaml:"persist_timeout"`
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	DeliverTimeout time.Duration `yaml:"deliver_timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":5000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			RequestTimeout:  90 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			BodyLimit:       2 << 20,
			CORSOrigins:     []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Storage: StorageConfig{
			TempDir: os.TempDir(),
		},
		Pipeline: PipelineConfig{
			PersistTimeout: 10 * time.Second,
			RenderTimeout:  30 * time.Second,
			DeliverTimeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Address = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)

	str("EMAIL_HOST", &c.Mail.Host)
	str("EMAIL_USER", &c.Mail.Username)
	str("EMAIL_PASS", &c.Mail.Password)
	str("EMAIL_FROM", &c.Mail.From)
	str("EMAIL_SERVICE", &c.Mail.Service)
	if v, ok := lookup("EMAIL_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EMAIL_PORT: %w", err)
		}
		c.Mail.Port = port
	}

	str("TEMP_DIR", &c.Storage.TempDir)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)

	return nil
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "", "memory", "postgres", "postgresql", "pg", "mysql", "mariadb":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if d := strings.ToLower(c.Database.Driver); d != "" && d != "memory" && c.Database.URL == "" {
		return fmt.Errorf("database driver %s requires database.url", c.Database.Driver)
	}

	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("mail port %d out of range", c.Mail.Port)
	}

	timeouts := map[string]time.Duration{
		"pipeline.persist_timeout": c.Pipeline.PersistTimeout,
		"pipeline.render_timeout":  c.Pipeline.RenderTimeout,
		"pipeline.deliver_timeout": c.Pipeline.DeliverTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Server.BodyLimit <= 0 {
		return errors.New("server.body_limit must be positive")
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("bad CORS origin %q", origin)
		}
	}

	if c.Storage.TempDir == "" {
		return errors.New("storage.temp_dir is required")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
