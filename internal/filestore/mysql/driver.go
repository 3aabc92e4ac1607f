// Package mysql provides a MySQL implementation of filestore.Store.
//
// Objects live in one InnoDB table with LONGBLOB bodies. Keys are stored as
// VARBINARY so prefix matching and uniqueness are byte-exact.
package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

// Driver is a MySQL implementation of filestore.Store backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db    *sql.DB
	table string
}

// New opens a MySQL connection pool, creates the object table when missing
// and returns a Driver.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	mc := cfg.MySQL
	if err := filestore.ValidateTableName(mc.Table); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql table", err)
	}

	db, err := buildPool(&mc)
	if err != nil {
		return nil, err
	}

	d := &Driver{db: db, table: "`" + mc.Table + "`"}

	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			obj_key        VARBINARY(1024) NOT NULL PRIMARY KEY,
			body           LONGBLOB NOT NULL,
			size           BIGINT NOT NULL,
			content_type   VARCHAR(255) NOT NULL DEFAULT '',
			etag           CHAR(32) NOT NULL,
			metadata       JSON NULL,
			last_modified  DATETIME(3) NOT NULL
		) ENGINE=InnoDB`, d.table))
	if err != nil {
		return mapError(err, "failed to create object table")
	}
	return nil
}

// --- filestore.Store implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

// ListObjects reads one row past Limit to detect truncation.
func (d *Driver) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	// backslash is MySQL's default LIKE escape
	query := fmt.Sprintf(`
		SELECT obj_key, size, content_type, etag, last_modified
		FROM %s
		WHERE obj_key LIKE ?
		ORDER BY obj_key`, d.table)
	args := []any{filestore.LikePrefix(opts.Prefix)}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit+1)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
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

func (d *Driver) HeadObject(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	query := fmt.Sprintf(`
		SELECT size, content_type, etag, metadata, last_modified
		FROM %s WHERE obj_key = ?`, d.table)

	var meta []byte
	info := &filestore.ObjectInfo{Key: key}
	err := d.db.QueryRowContext(ctx, query, key).
		Scan(&info.Size, &info.ContentType, &info.ETag, &meta, &info.LastModified)
	if err != nil {
		return nil, mapError(err, "failed to stat object: "+key)
	}
	if info.CustomMetadata, err = decodeMetadata(meta); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "corrupt object metadata: "+key, err)
	}
	return info, nil
}

func (d *Driver) GetObject(ctx context.Context, key string) (filestore.Object, error) {
	query := fmt.Sprintf(`
		SELECT body, size, content_type, etag, metadata, last_modified
		FROM %s WHERE obj_key = ?`, d.table)

	var body, meta []byte
	info := &filestore.ObjectInfo{Key: key}
	err := d.db.QueryRowContext(ctx, query, key).
		Scan(&body, &info.Size, &info.ContentType, &info.ETag, &meta, &info.LastModified)
	if err != nil {
		return nil, mapError(err, "failed to get object: "+key)
	}
	if info.CustomMetadata, err = decodeMetadata(meta); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "corrupt object metadata: "+key, err)
	}
	return filestore.NewObject(io.NopCloser(bytes.NewReader(body)), info), nil
}

func (d *Driver) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read object body", err)
	}
	if size >= 0 && int64(len(body)) != size {
		return nil, errs.New(errs.ErrKindInvalidInput, "object body size does not match declared size")
	}

	var meta []byte
	if len(opts.CustomMetadata) > 0 {
		if meta, err = json.Marshal(opts.CustomMetadata); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid object metadata", err)
		}
	}

	info := &filestore.ObjectInfo{
		Key:            key,
		Size:           int64(len(body)),
		ContentType:    opts.ContentType,
		ETag:           filestore.ContentETag(body),
		LastModified:   time.Now().UTC().Truncate(time.Millisecond),
		CustomMetadata: filestore.CloneMetadata(opts.CustomMetadata),
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (obj_key, body, size, content_type, etag, metadata, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			body = VALUES(body),
			size = VALUES(size),
			content_type = VALUES(content_type),
			etag = VALUES(etag),
			metadata = VALUES(metadata),
			last_modified = VALUES(last_modified)`, d.table)

	_, err = d.db.ExecContext(ctx, query, key, body, info.Size, info.ContentType, info.ETag, nullableJSON(meta), info.LastModified)
	if err != nil {
		return nil, mapError(err, "failed to put object: "+key)
	}
	return info, nil
}

func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE obj_key = ?`, d.table)
	if _, err := d.db.ExecContext(ctx, query, key); err != nil {
		return mapError(err, "failed to delete object: "+key)
	}
	return nil
}

func decodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return filestore.CloneMetadata(m), nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

var _ filestore.Store = (*Driver)(nil)
