// Package provider opens the filestore.Store selected by configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/filestore/memory"
	"github.com/koustreak/blobgate/internal/filestore/minio"
	"github.com/koustreak/blobgate/internal/filestore/mysql"
	"github.com/koustreak/blobgate/internal/filestore/postgres"
	"github.com/koustreak/blobgate/internal/filestore/s3"
)

// Open validates cfg and connects to the configured backend.
func Open(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case filestore.ProviderMinIO:
		return minio.New(ctx, cfg)
	case filestore.ProviderS3:
		return s3.New(ctx, cfg)
	case filestore.ProviderPostgres:
		return postgres.New(ctx, cfg)
	case filestore.ProviderMySQL:
		return mysql.New(ctx, cfg)
	case filestore.ProviderMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("filestore: unknown provider %q", cfg.Provider)
	}
}
