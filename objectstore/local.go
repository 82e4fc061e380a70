package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes objects below a directory that the HTTP server exposes
// statically. Meant for development and single-host installs.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal returns a Local store rooted at dir whose objects are reachable
// under baseURL.
func NewLocal(dir, baseURL string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("objectstore: local dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create dir: %w", err)
	}
	return &Local{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the root directory.
func (l *Local) Dir() string {
	return l.dir
}

// Put writes r to dir/key through a temp file so readers never see a
// partial object.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	path, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("objectstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("objectstore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("objectstore: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("objectstore: close %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("objectstore: chmod %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("objectstore: rename %s: %w", key, err)
	}
	return joinURL(l.baseURL, key), nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("objectstore: invalid key %q", key)
	}
	return filepath.Join(l.dir, clean), nil
}

// ctxReader stops a copy once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
