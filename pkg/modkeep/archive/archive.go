// Package archive remembers which archive file each mod was installed from,
// keyed by the mod's content hash, so a mod can be reinstalled or shared
// without asking for the archive again.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

// ErrNotAbsolute is returned by Put for relative archive paths.
var ErrNotAbsolute = errors.New("archive path must be absolute")

// Cache maps content hashes to archive files on disk.
type Cache struct {
	dir   string
	store *Store
	now   func() time.Time
}

// Open opens or creates a cache in dir. It fails with ErrInUse while
// another running process has the cache open.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive cache: %w", err)
	}
	if err := claim(dir); err != nil {
		return nil, err
	}
	store, err := OpenStore(dir)
	if err != nil {
		release(dir)
		return nil, fmt.Errorf("opening archive cache: %w", err)
	}
	return &Cache{dir: dir, store: store, now: time.Now}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	err := c.store.Close()
	release(c.dir)
	return err
}

// Lookup returns the archive path recorded for hash. A record whose file no
// longer exists is dropped and reported as absent.
func (c *Cache) Lookup(hash string) (string, bool, error) {
	rec, err := c.store.Get(hash)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(rec.Path); errors.Is(err, fs.ErrNotExist) {
		logging.Get("archive").Debug("dropping stale archive record", "hash", hash, "path", rec.Path)
		if err := c.store.Delete(hash); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return rec.Path, true, nil
}

// Get returns the full record for hash without checking the file.
func (c *Cache) Get(hash string) (*Record, error) {
	return c.store.Get(hash)
}

// Put records path as the archive for hash, replacing any earlier record.
func (c *Cache) Put(hash, path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrNotAbsolute, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}

	rec := &Record{Path: filepath.Clean(path), Size: info.Size(), AddedAt: c.now()}
	if err := c.store.Put(hash, rec); err != nil {
		return err
	}
	logging.Get("archive").Info("archive recorded", "hash", hash, "path", rec.Path)
	return nil
}

// Delete forgets the record for hash.
func (c *Cache) Delete(hash string) error {
	return c.store.Delete(hash)
}

// Clear forgets every record.
func (c *Cache) Clear() error {
	return c.store.DeleteAll()
}

// Count returns the number of records.
func (c *Cache) Count() (int, error) {
	return c.store.Count()
}

// Prune drops records whose archive file is gone and returns how many were
// dropped.
func (c *Cache) Prune() (int, error) {
	var stale []string
	err := c.store.Each(func(hash string, rec *Record) error {
		if _, err := os.Stat(rec.Path); errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, hash)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, hash := range stale {
		if err := c.store.Delete(hash); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
