package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ovaphlow/pitchfork/service-member-go/pkg/utilities"
)

// DiskStore writes files into a local directory. The router serves that
// directory under PublicPrefix.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates dir if it is missing.
func NewDiskStore(dir, publicBaseURL string) (*DiskStore, error) {
	if dir == "" {
		dir = "profilePics"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := utilities.NewKSUID() + "_" + storedName(obj.Name, obj.ContentType)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: obj.Body}); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return s.baseURL + PublicPrefix + name, nil
}

func (s *DiskStore) Delete(ctx context.Context, url string) error {
	prefix := s.baseURL + PublicPrefix
	if !strings.HasPrefix(url, prefix) {
		return ErrNotOwned
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || name != filepath.Base(name) {
		return ErrNotOwned
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
