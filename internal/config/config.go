// Package config loads the proxy's runtime configuration.
//
// Sources & precedence (later wins):
//  1. DefaultConfig()
//  2. YAML file passed to Load (optional)
//  3. .env file in the working directory (optional, never overrides real env)
//  4. BLOBGATE_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/logger"
)

// Config holds all runtime configuration for the proxy.
type Config struct {
	Server ServerConfig     `yaml:"server"`
	Auth   AuthConfig       `yaml:"auth"`
	Proxy  ProxyConfig      `yaml:"proxy"`
	Log    logger.Config    `yaml:"log"`
	Store  filestore.Config `yaml:"store"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the single shared secret. Empty disables auth.
type AuthConfig struct {
	APIToken string `yaml:"api_token"`
}

// ProxyConfig bounds the work a single request may cause.
type ProxyConfig struct {
	// ListLimit caps entries per list response; more matches set "truncated".
	ListLimit int `yaml:"list_limit"`

	// MaxUploadBytes caps the buffered size of one uploaded file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// DefaultConfig returns settings suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Proxy: ProxyConfig{
			ListLimit:      1000,
			MaxUploadBytes: 100 << 20,
		},
		Log:   *logger.DefaultConfig(),
		Store: *filestore.DefaultConfig(),
	}
}

// Load builds a Config from defaults, the optional YAML file at path, an
// optional .env file and the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Proxy.ListLimit < 0 {
		return errors.New("config: proxy.list_limit must not be negative")
	}
	if c.Proxy.MaxUploadBytes <= 0 {
		return errors.New("config: proxy.max_upload_bytes must be positive")
	}
	return c.Store.Validate()
}

func applyEnv(c *Config) error {
	str := map[string]*string{
		"BLOBGATE_ADDR":              &c.Server.Addr,
		"BLOBGATE_API_TOKEN":         &c.Auth.APIToken,
		"BLOBGATE_LOG_LEVEL":         &c.Log.Level,
		"BLOBGATE_LOG_FORMAT":        &c.Log.Format,
		"BLOBGATE_MINIO_ENDPOINT":    &c.Store.MinIO.Endpoint,
		"BLOBGATE_MINIO_ACCESS_KEY":  &c.Store.MinIO.AccessKey,
		"BLOBGATE_MINIO_SECRET_KEY":  &c.Store.MinIO.SecretKey,
		"BLOBGATE_MINIO_BUCKET":      &c.Store.MinIO.Bucket,
		"BLOBGATE_S3_ENDPOINT":       &c.Store.S3.Endpoint,
		"BLOBGATE_S3_REGION":         &c.Store.S3.Region,
		"BLOBGATE_S3_BUCKET":         &c.Store.S3.Bucket,
		"BLOBGATE_S3_ACCESS_KEY":     &c.Store.S3.AccessKey,
		"BLOBGATE_S3_SECRET_KEY":     &c.Store.S3.SecretKey,
		"BLOBGATE_POSTGRES_HOST":     &c.Store.Postgres.Host,
		"BLOBGATE_POSTGRES_USER":     &c.Store.Postgres.User,
		"BLOBGATE_POSTGRES_PASSWORD": &c.Store.Postgres.Password,
		"BLOBGATE_POSTGRES_DATABASE": &c.Store.Postgres.Database,
		"BLOBGATE_MYSQL_HOST":        &c.Store.MySQL.Host,
		"BLOBGATE_MYSQL_USER":        &c.Store.MySQL.User,
		"BLOBGATE_MYSQL_PASSWORD":    &c.Store.MySQL.Password,
		"BLOBGATE_MYSQL_DATABASE":    &c.Store.MySQL.Database,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("BLOBGATE_STORE_PROVIDER"); ok {
		c.Store.Provider = filestore.Provider(v)
	}

	if v, ok := os.LookupEnv("BLOBGATE_MINIO_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: BLOBGATE_MINIO_USE_SSL: %w", err)
		}
		c.Store.MinIO.UseSSL = b
	}
	if v, ok := os.LookupEnv("BLOBGATE_LIST_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BLOBGATE_LIST_LIMIT: %w", err)
		}
		c.Proxy.ListLimit = n
	}
	if v, ok := os.LookupEnv("BLOBGATE_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: BLOBGATE_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Proxy.MaxUploadBytes = n
	}
	return nil
}
