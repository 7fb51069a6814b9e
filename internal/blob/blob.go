// Package blob stores uploaded profile pictures and hands back a durable
// URL for each. Two backends exist: a local directory served by the API
// itself and an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// PublicPrefix is the URL path under which the disk backend's files are served.
const PublicPrefix = "/profilePics/"

var ErrNotOwned = errors.New("url does not belong to this store")

// Object is a file to upload.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists objects and returns their public URL. Delete accepts a URL
// previously returned by Put.
type Store interface {
	Put(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Dir           string
	PublicBaseURL string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// New builds the Store named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendDisk:
		return NewDiskStore(cfg.Dir, cfg.PublicBaseURL)
	case BackendS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// cleanName reduces an uploaded file name to a safe base name.
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
