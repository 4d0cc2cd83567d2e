// Package blob stores attachment payloads outside the database.
package blob

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// NewKey builds a unique key for an image of the given owner, keeping the
// original file extension.
func NewKey(kind model.Kind, ownerID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("images", string(kind), strconv.FormatInt(ownerID, 10), uuid.NewString()+ext)
}
