package mod

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
)

type payloadFile struct {
	rel  string
	path string
	size int64
}

// payload enumerates the regular files under root, excluding files owned
// by modkeep, sorted by slash-separated relative path.
func payload(root string) ([]payloadFile, error) {
	var (
		mu    sync.Mutex
		files []payloadFile
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if IsOwnedFile(d.Name()) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		mu.Lock()
		files = append(files, payloadFile{rel: filepath.ToSlash(rel), path: path, size: info.Size()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// ContentHash returns the hex SHA-256 of the mod payload. Each file
// contributes its relative path, a NUL, its size as 8 big-endian bytes and
// its contents, in path order. Folder name and modkeep's own files do not
// affect the result.
func (m *Mod) ContentHash() (string, error) {
	root := m.Path()
	files, err := payload(root)
	if err != nil {
		return "", fmt.Errorf("enumerating %s: %w", root, err)
	}

	h := sha256.New()
	var size [8]byte
	for _, f := range files {
		io.WriteString(h, f.rel)
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(size[:], uint64(f.size))
		h.Write(size[:])

		if err := hashFile(h, f.path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	return nil
}

// Size returns the total size in bytes of the files under the mod folder.
// The result is cached until ClearCache.
func (m *Mod) Size() (int64, error) {
	m.mu.RLock()
	if m.sizeKnown {
		size := m.size
		m.mu.RUnlock()
		return size, nil
	}
	root := m.path
	m.mu.RUnlock()

	var (
		mu    sync.Mutex
		total int64
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mu.Lock()
		total += info.Size()
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", root, err)
	}

	m.mu.Lock()
	if m.path == root {
		m.size = total
		m.sizeKnown = true
	}
	m.mu.Unlock()
	return total, nil
}
