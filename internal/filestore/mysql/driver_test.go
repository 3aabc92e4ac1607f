package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(&filestore.SQLConfig{
		Host:     "db",
		User:     "blob",
		Password: "secret",
		Database: "files",
	})

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "files", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, strings.HasPrefix(dsn, "blob:secret@tcp("))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"duplicate", &gomysql.MySQLError{Number: errDuplicateEntry}, errs.ErrKindConflict},
		{"packet too large", &gomysql.MySQLError{Number: errPacketTooLarge}, errs.ErrKindTooLarge},
		{"access denied", &gomysql.MySQLError{Number: errAccessDenied}, errs.ErrKindPermissionDenied},
		{"syntax", &gomysql.MySQLError{Number: 1064}, errs.ErrKindQueryFailed},
		{"canceled", context.Canceled, errs.ErrKindTimeout},
		{"plain", errors.New("boom"), errs.ErrKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapError(tt.err, "op").Kind)
		})
	}
}

func TestDecodeMetadata(t *testing.T) {
	m, err := decodeMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = decodeMetadata([]byte(`{"owner":"me"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "me"}, m)

	_, err = decodeMetadata([]byte(`[1]`))
	assert.Error(t, err)
}
