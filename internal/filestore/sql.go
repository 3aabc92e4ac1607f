package filestore

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects names that cannot be used as a bare SQL
// identifier by the table-backed drivers.
func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("filestore: invalid table name %q", name)
	}
	return nil
}

// LikePrefix escapes prefix for use in `LIKE ? ESCAPE '\'` and appends the
// trailing wildcard.
func LikePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// ContentETag returns the hex MD5 of data, matching what S3 reports for
// single-part uploads.
func ContentETag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
