package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSGateway implements Gateway on the local filesystem, for development
// without an object store. Keys map to paths under the root directory.
type FSGateway struct {
	root string
}

// NewFSGateway creates a filesystem gateway rooted at dir.
func NewFSGateway(dir string) (*FSGateway, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FSGateway{root: abs}, nil
}

// resolve maps a key to a path and rejects traversal outside the root.
func (g *FSGateway) resolve(key string) (string, error) {
	full := filepath.Join(g.root, filepath.FromSlash(key))
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if abs != g.root && !strings.HasPrefix(abs, g.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}
	return abs, nil
}

// Get reads the file for key. Missing files map to ErrNotFound.
func (g *FSGateway) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := g.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to the file for key. The content type is not persisted.
func (g *FSGateway) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := g.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
