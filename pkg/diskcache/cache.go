// Package diskcache stores binary blobs in a folder, one file per key
package diskcache

import (
	"crypto/sha1" //nolint:gosec // used for file names only
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pkgz/lgr"
)

// Cache is a key-value store of raw bytes backed by files. No expiration, callers own invalidation.
type Cache struct {
	folder string
	mu     sync.Mutex
}

// New makes a cache in folder, creating it if needed
func New(folder string) (*Cache, error) {
	if err := os.MkdirAll(folder, 0o750); err != nil {
		return nil, fmt.Errorf("create cache folder %s: %w", folder, err)
	}
	return &Cache{folder: folder}, nil
}

// Read returns data for key. A missing key is reported as fs.ErrNotExist.
func (c *Cache) Read(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write stores data for key, replacing the previous value
func (c *Cache) Write(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.folder, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err = os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete removes key, deleting a missing key is not an error
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Get is a best-effort Read, returns nil on a miss or any error
func (c *Cache) Get(key string) []byte {
	data, err := c.Read(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			lgr.Printf("[WARN] disk cache read failed: %v", err)
		}
		return nil
	}
	return data
}

// Set is a best-effort Write, a nil data deletes the key
func (c *Cache) Set(key string, data []byte) {
	var err error
	if data == nil {
		err = c.Delete(key)
	} else {
		err = c.Write(key, data)
	}
	if err != nil {
		lgr.Printf("[WARN] disk cache write failed: %v", err)
	}
}

// path makes a file name safe for any key
func (c *Cache) path(key string) string {
	sum := sha1.Sum([]byte(key)) //nolint:gosec // not a security hash
	return filepath.Join(c.folder, hex.EncodeToString(sum[:]))
}
