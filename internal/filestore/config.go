package filestore

import (
	"fmt"
	"time"
)

// Provider identifies the blob storage backend.
type Provider string

const (
	ProviderMinIO    Provider = "minio"
	ProviderS3       Provider = "s3"
	ProviderPostgres Provider = "postgres"
	ProviderMySQL    Provider = "mysql"
	ProviderMemory   Provider = "memory"
)

// Config holds all settings needed to connect to a blob storage backend.
// Only the section matching Provider is read.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	MinIO    MinIOConfig `yaml:"minio"`
	S3       S3Config    `yaml:"s3"`
	Postgres SQLConfig   `yaml:"postgres"`
	MySQL    SQLConfig   `yaml:"mysql"`
}

// MinIOConfig configures the MinIO driver.
type MinIOConfig struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware deployments. Leave empty for MinIO.
	Region string `yaml:"region"`

	Bucket string `yaml:"bucket"`

	// CreateBucket makes the bucket on startup when it does not exist.
	CreateBucket bool `yaml:"create_bucket"`
}

// S3Config configures the S3 driver. Any S3-compatible endpoint works,
// including Cloudflare R2.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`

	// Endpoint is a custom S3-compatible endpoint URL
	// (e.g. "https://<account>.r2.cloudflarestorage.com").
	Endpoint string `yaml:"endpoint"`

	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// SQLConfig configures the SQL-table drivers (Postgres, MySQL).
type SQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"` // postgres only

	// Table holds the blobs; created on connect when missing.
	Table string `yaml:"table"`

	MaxConns       int32         `yaml:"max_conns"`
	MinConns       int32         `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderMinIO,
		MinIO: MinIOConfig{
			Endpoint:     "localhost:9000",
			AccessKey:    "minioadmin",
			SecretKey:    "minioadmin",
			Bucket:       "blobgate",
			CreateBucket: true,
		},
		S3: S3Config{
			Region: "auto",
		},
		Postgres: SQLConfig{
			Host:  "localhost",
			Port:  5432,
			Table: "blobgate_objects",
		},
		MySQL: SQLConfig{
			Host:  "localhost",
			Port:  3306,
			Table: "blobgate_objects",
		},
	}
}

// Validate checks the section selected by Provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("filestore: minio endpoint and bucket are required")
		}
	case ProviderS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("filestore: s3 bucket is required")
		}
	case ProviderPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("filestore: postgres host and database are required")
		}
	case ProviderMySQL:
		if c.MySQL.Host == "" || c.MySQL.Database == "" {
			return fmt.Errorf("filestore: mysql host and database are required")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("filestore: unknown provider %q", c.Provider)
	}
	return nil
}
