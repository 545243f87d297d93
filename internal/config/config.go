package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	S3        S3Config        `yaml:"s3"`
	Map       MapConfig       `yaml:"map"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the backend holding the workout list.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, redis, s3, memory
	Path   string `yaml:"path"`   // sqlite file
	Key    string `yaml:"key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// MapConfig carries the viewport defaults handed to the browser map.
type MapConfig struct {
	Zoom        int       `yaml:"zoom"`
	FitPadding  int       `yaml:"fit_padding"`
	TileURL     string    `yaml:"tile_url"`
	Attribution string    `yaml:"attribution"`
	Home        *Position `yaml:"home"`
}

// Position is a configured latitude/longitude.
type Position struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a config usable without a file: local SQLite storage on :8080.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{Driver: "sqlite", Path: "trailog.db", Key: "workouts"},
		Map: MapConfig{
			Zoom:        13,
			FitPadding:  50,
			TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		},
		Tailscale: TailscaleConfig{Hostname: "trailog", StateDir: "tsnet-state"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. Env vars use the prefix TRAILOG_:
//
//	TRAILOG_SERVER_HOST, TRAILOG_SERVER_PORT,
//	TRAILOG_STORAGE_DRIVER, TRAILOG_STORAGE_PATH, TRAILOG_STORAGE_KEY,
//	TRAILOG_DB_HOST, TRAILOG_DB_PORT, TRAILOG_DB_NAME,
//	TRAILOG_DB_USER, TRAILOG_DB_PASSWORD, TRAILOG_DB_SSLMODE,
//	TRAILOG_REDIS_ADDR, TRAILOG_REDIS_PASSWORD,
//	TRAILOG_S3_ENDPOINT, TRAILOG_S3_BUCKET, TRAILOG_S3_ACCESS_KEY_ID,
//	TRAILOG_S3_SECRET_ACCESS_KEY, TRAILOG_LOG_LEVEL
//
// A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("TRAILOG_SERVER_HOST", &cfg.Server.Host)
	num("TRAILOG_SERVER_PORT", &cfg.Server.Port)
	str("TRAILOG_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("TRAILOG_STORAGE_PATH", &cfg.Storage.Path)
	str("TRAILOG_STORAGE_KEY", &cfg.Storage.Key)
	str("TRAILOG_DB_HOST", &cfg.Database.Host)
	num("TRAILOG_DB_PORT", &cfg.Database.Port)
	str("TRAILOG_DB_NAME", &cfg.Database.Name)
	str("TRAILOG_DB_USER", &cfg.Database.User)
	str("TRAILOG_DB_PASSWORD", &cfg.Database.Password)
	str("TRAILOG_DB_SSLMODE", &cfg.Database.SSLMode)
	str("TRAILOG_REDIS_ADDR", &cfg.Redis.Addr)
	str("TRAILOG_REDIS_PASSWORD", &cfg.Redis.Password)
	str("TRAILOG_S3_ENDPOINT", &cfg.S3.Endpoint)
	str("TRAILOG_S3_BUCKET", &cfg.S3.Bucket)
	str("TRAILOG_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	str("TRAILOG_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	str("TRAILOG_LOG_LEVEL", &cfg.Log.Level)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
		return fmt.Errorf("map.zoom must be between 0 and 19")
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region is required")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}
