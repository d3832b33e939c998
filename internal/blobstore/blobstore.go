package blobstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// PutOptions configures a write under an exact key.
type PutOptions struct {
	ContentType string
	// Encrypt asks the backend to encrypt the object at rest where it can.
	Encrypt bool
}

// Info describes one stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store holds location photos, settings backups and generated report files.
type Store interface {
	// Save writes r under a new key beneath prefix and returns that key.
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
	// List returns the objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
}

// MimeTypeToExt picks the file extension stored with a blob of the given type.
func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/jpeg":
		return ".jpg"
	case "application/json":
		return ".json"
	case "text/csv":
		return ".csv"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	default:
		return ".bin"
	}
}

// ExtToMimeType is the inverse of MimeTypeToExt, keyed on the key's extension.
func ExtToMimeType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
