package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStorage implements AssetStorage on the local filesystem. Files are served back
// through Handler under the configured base URL.
type DiskStorage struct {
	root    string
	baseURL string
}

// NewDiskStorage creates the root directory when missing.
func NewDiskStorage(root, baseURL string) (*DiskStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("disk storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("disk storage: create root: %w", err)
	}
	return &DiskStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save writes the content below the root directory and returns its public location.
func (s *DiskStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key, target, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("disk storage: create directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("disk storage: open %s: %w", key, err)
	}

	if _, err := io.Copy(f, contextReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("disk storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("disk storage: close %s: %w", key, err)
	}

	if s.baseURL == "" {
		return key, nil
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the file stored under name.
func (s *DiskStorage) Delete(_ context.Context, name string) error {
	key, target, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disk storage: delete %s: %w", key, err)
	}
	return nil
}

// resolve cleans name into a key that cannot escape the root and its file path.
func (s *DiskStorage) resolve(name string) (string, string, error) {
	key := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(name)), "/")
	if key == "" || key == "." {
		return "", "", fmt.Errorf("disk storage: %w", ErrInvalidKey)
	}
	return key, filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Handler serves stored files; mount it with the URL prefix stripped.
func (s *DiskStorage) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}

// contextReader stops a copy once the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
