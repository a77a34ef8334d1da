package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashermasroor/SlowRvbBass/model"
)

// LocalCache is the ephemeral on-disk tier for processed variants. Files may
// disappear at any time; absence is never an error condition.
type LocalCache struct {
	root string
}

// NewLocalCache creates the cache directory layout under root.
func NewLocalCache(root string) (*LocalCache, error) {
	c := &LocalCache{root: root}
	if err := os.MkdirAll(c.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure cache dir: %w", err)
	}
	return c, nil
}

func (c *LocalCache) dir() string {
	return filepath.Join(c.root, "processed")
}

// Path returns where the variant's local copy lives, whether or not it exists.
func (c *LocalCache) Path(variantID string) string {
	return filepath.Join(c.dir(), variantID+model.CodecMP3.Ext())
}

// Lookup returns the local path when a copy is present.
func (c *LocalCache) Lookup(variantID string) (string, bool) {
	path := c.Path(variantID)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Write stores data for the variant atomically and returns the path.
func (c *LocalCache) Write(variantID string, data []byte) (string, error) {
	path := c.Path(variantID)
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the local copy; a missing file is not an error.
func (c *LocalCache) Remove(variantID string) error {
	if err := os.Remove(c.Path(variantID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// atomicWriteFile writes through a temp file in the same directory and renames it
// into place, so readers see either the old content or the complete new content.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
