// Package storage holds uploaded chat attachments and avatars in an
// S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const MaxUploadSize = 25 << 20 // 25 MiB

var (
	ErrFileTooLarge    = errors.New("file exceeds upload size limit")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// allowedTypes maps accepted content types to the logical message type
// recorded on the message row.
var allowedTypes = map[string]string{
	"image/jpeg":      "image",
	"image/png":       "image",
	"image/gif":       "image",
	"image/webp":      "image",
	"audio/mpeg":      "audio",
	"audio/ogg":       "audio",
	"audio/wav":       "audio",
	"audio/webm":      "audio",
	"video/mp4":       "video",
	"video/webm":      "video",
	"video/quicktime": "video",
}

// KindForContentType returns the logical file kind for an accepted
// content type, or ErrUnsupportedType.
func KindForContentType(contentType string) (string, error) {
	kind, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return kind, nil
}

// BlobStore stores and removes uploaded files.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, size int64, r io.Reader) (url string, err error)
	Remove(ctx context.Context, url string) error
}

// ObjectKey builds a collision-free object key preserving the upload's
// extension.
func ObjectKey(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("%s%s", uuid.NewString(), ext)
}
