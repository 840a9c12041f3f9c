// Package blob has the stores for signature and photo files.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// FSStoreConfig is the configuration for the filesystem blob store.
type FSStoreConfig struct {
	Dir    string
	Logger log.Logger
}

func (c *FSStoreConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "blob.FSStore"})
	return nil
}

// FSStore stores blobs on a local directory.
type FSStore struct {
	dir    string
	logger log.Logger
}

// NewFSStore returns a new filesystem blob store.
func NewFSStore(cfg FSStoreConfig) (*FSStore, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve blob dir: %w", err)
	}

	return &FSStore{dir: dir, logger: cfg.Logger}, nil
}

// Upload writes the blob under the store directory and returns its file URL.
func (s *FSStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q: %w", key, model.ErrNotValid)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("could not create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("could not create blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("could not write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("could not write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("could not store blob: %w", err)
	}

	s.logger.Debugf("Stored %s blob %s", contentType, key)
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}
	return u.String(), nil
}

var _ backend.BlobStore = &FSStore{}
