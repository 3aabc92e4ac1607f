// Package postgres provides a PostgreSQL implementation of filestore.Store.
//
// Objects live in a single table keyed by object key; bodies are stored as
// BYTEA. It suits small deployments that already run Postgres and only keep
// notes, markdown and modest assets.
package postgres

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

// Driver is a PostgreSQL implementation of filestore.Store backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool  *pgxpool.Pool
	table string
}

// New connects to PostgreSQL, creates the object table when missing and
// returns a Driver.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	pc := cfg.Postgres
	if err := filestore.ValidateTableName(pc.Table); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres table", err)
	}

	pool, err := buildPool(ctx, &pc)
	if err != nil {
		return nil, err
	}

	d := &Driver{pool: pool, table: pgx.Identifier{pc.Table}.Sanitize()}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := d.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key            TEXT PRIMARY KEY,
			body           BYTEA NOT NULL,
			size           BIGINT NOT NULL,
			content_type   TEXT NOT NULL DEFAULT '',
			etag           TEXT NOT NULL,
			metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
			last_modified  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, d.table))
	if err != nil {
		return mapError(err, "failed to create object table")
	}
	return nil
}

// --- filestore.Store implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// ListObjects reads one row past Limit to detect truncation.
func (d *Driver) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	query := fmt.Sprintf(`
		SELECT key, size, content_type, etag, last_modified
		FROM %s
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key`, d.table)
	args := []any{filestore.LikePrefix(opts.Prefix)}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit+1)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}
	defer rows.Close()

	res := &filestore.ListResult{}
	for rows.Next() {
		var info filestore.ObjectInfo
		if err := rows.Scan(&info.Key, &info.Size, &info.ContentType, &info.ETag, &info.LastModified); err != nil {
			return nil, mapError(err, "failed to scan object row")
		}
		if opts.Limit > 0 && len(res.Objects) >= opts.Limit {
			res.Truncated = true
			break
		}
		res.Objects = append(res.Objects, info)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to list objects")
	}
	return res, nil
}

// HeadObject returns metadata for key without reading the body column.
func (d *Driver) HeadObject(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	query := fmt.Sprintf(`
		SELECT size, content_type, etag, metadata, last_modified
		FROM %s WHERE key = $1`, d.table)

	info := &filestore.ObjectInfo{Key: key}
	err := d.pool.QueryRow(ctx, query, key).
		Scan(&info.Size, &info.ContentType, &info.ETag, &info.CustomMetadata, &info.LastModified)
	if err != nil {
		return nil, mapError(err, "failed to stat object: "+key)
	}
	info.CustomMetadata = filestore.CloneMetadata(info.CustomMetadata)
	return info, nil
}

// GetObject loads the whole body; BYTEA values cannot be streamed.
func (d *Driver) GetObject(ctx context.Context, key string) (filestore.Object, error) {
	query := fmt.Sprintf(`
		SELECT body, size, content_type, etag, metadata, last_modified
		FROM %s WHERE key = $1`, d.table)

	var body []byte
	info := &filestore.ObjectInfo{Key: key}
	err := d.pool.QueryRow(ctx, query, key).
		Scan(&body, &info.Size, &info.ContentType, &info.ETag, &info.CustomMetadata, &info.LastModified)
	if err != nil {
		return nil, mapError(err, "failed to get object: "+key)
	}
	info.CustomMetadata = filestore.CloneMetadata(info.CustomMetadata)
	return filestore.NewObject(io.NopCloser(bytes.NewReader(body)), info), nil
}

// PutObject upserts the row for key.
func (d *Driver) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read object body", err)
	}
	if size >= 0 && int64(len(body)) != size {
		return nil, errs.New(errs.ErrKindInvalidInput, "object body size does not match declared size")
	}

	meta := opts.CustomMetadata
	if meta == nil {
		meta = map[string]string{}
	}

	info := &filestore.ObjectInfo{
		Key:            key,
		Size:           int64(len(body)),
		ContentType:    opts.ContentType,
		ETag:           filestore.ContentETag(body),
		CustomMetadata: filestore.CloneMetadata(opts.CustomMetadata),
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, body, size, content_type, etag, metadata, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			size = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			metadata = EXCLUDED.metadata,
			last_modified = EXCLUDED.last_modified`, d.table)

	info.LastModified = time.Now().UTC()
	if _, err := d.pool.Exec(ctx, query, key, body, info.Size, info.ContentType, info.ETag, meta, info.LastModified); err != nil {
		return nil, mapError(err, "failed to put object: "+key)
	}
	return info, nil
}

// DeleteObject removes the row for key; zero affected rows is fine.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, d.table)
	if _, err := d.pool.Exec(ctx, query, key); err != nil {
		return mapError(err, "failed to delete object: "+key)
	}
	return nil
}

var _ filestore.Store = (*Driver)(nil)
