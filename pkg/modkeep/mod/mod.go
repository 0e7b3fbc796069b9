// Package mod provides the folder-backed mod entity: identity by path,
// rename/move/delete primitives, content hashing and the cached settings
// sidecar.
package mod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/jamesainslie/modkeep/pkg/modkeep/keyswap"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/trash"
)

// DefaultSettingsFile is the default settings sidecar name.
const DefaultSettingsFile = OwnedPrefix + "settings.json"

// Option configures a Mod.
type Option func(*Mod)

// WithSettingsFile sets the settings sidecar file name.
func WithSettingsFile(name string) Option {
	return func(m *Mod) {
		if name != "" {
			m.settingsFile = name
		}
	}
}

// WithTrash sets the bin used by Delete.
func WithTrash(bin *trash.Bin) Option {
	return func(m *Mod) {
		if bin != nil {
			m.bin = bin
		}
	}
}

// WithLookahead sets the key-swap scan window passed to the store.
func WithLookahead(n int) Option {
	return func(m *Mod) {
		m.lookahead = n
	}
}

// Mod is one mod folder. Two Mods are equal when their paths are equal
// ignoring case. A Mod is safe for concurrent use.
type Mod struct {
	settingsFile string
	bin          *trash.Bin
	lookahead    int

	mu        sync.RWMutex
	path      string
	settings  *Settings
	size      int64
	sizeKnown bool
	keyswaps  *keyswap.Store
}

// Open returns the Mod for an existing absolute folder and loads its
// settings. A missing settings file yields defaults; a malformed one fails.
func Open(path string, opts ...Option) (*Mod, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("opening mod %q: %w", path, ErrNotAbsolute)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening mod: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening mod %q: %w", path, ErrNotDirectory)
	}

	m := &Mod{
		path:         path,
		settingsFile: DefaultSettingsFile,
		bin:          trash.Default,
	}
	for _, opt := range opts {
		opt(m)
	}

	if _, err := m.ReloadSettings(); err != nil {
		return nil, err
	}
	return m, nil
}

// KeyFor returns the identity key for a path: cleaned and lower-cased.
func KeyFor(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

// Path returns the absolute folder path.
func (m *Mod) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Name returns the folder name.
func (m *Mod) Name() string {
	return filepath.Base(m.Path())
}

// Dir returns the folder containing the mod.
func (m *Mod) Dir() string {
	return filepath.Dir(m.Path())
}

// Key returns the identity key.
func (m *Mod) Key() string {
	return KeyFor(m.Path())
}

// Equal reports whether both mods refer to the same folder.
func (m *Mod) Equal(other *Mod) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Key() == other.Key()
}

// IsEnabled derives the enabled state from the folder name.
func (m *Mod) IsEnabled() bool {
	return !IsDisabledName(m.Name())
}

// DisplayName returns the custom name when set, otherwise the folder name
// without disabled prefix.
func (m *Mod) DisplayName() string {
	if s := m.Settings(); s.CustomName != "" {
		return s.CustomName
	}
	return EnabledName(m.Name())
}

// Exists reports whether the folder is still on disk.
func (m *Mod) Exists() bool {
	info, err := os.Stat(m.Path())
	return err == nil && info.IsDir()
}

// String implements fmt.Stringer.
func (m *Mod) String() string {
	return m.Path()
}

// Rename changes the folder name. The destination must not exist; nothing is
// rolled back on failure.
func (m *Mod) Rename(newName string) error {
	if err := validName(newName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if filepath.Base(m.path) == newName {
		return nil
	}

	dest := filepath.Join(filepath.Dir(m.path), newName)
	if err := checkFree(m.path, dest, "rename"); err != nil {
		return err
	}
	if err := os.Rename(m.path, dest); err != nil {
		return err
	}

	logging.Get("mod").Debug("renamed", "from", m.path, "to", dest)
	m.path = dest
	m.keyswaps = nil
	return nil
}

// MoveTo moves the folder into targetDir, keeping its name. Moves within a
// storage root are a single rename; otherwise the tree is copied and the
// source removed.
func (m *Mod) MoveTo(targetDir string) error {
	if !filepath.IsAbs(targetDir) {
		return fmt.Errorf("moving mod to %q: %w", targetDir, ErrNotAbsolute)
	}
	targetDir = filepath.Clean(targetDir)

	info, err := os.Stat(targetDir)
	if err != nil {
		return fmt.Errorf("moving mod: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("moving mod to %q: %w", targetDir, ErrNotDirectory)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dest := filepath.Join(targetDir, filepath.Base(m.path))
	if err := checkFree(m.path, dest, "move"); err != nil {
		return err
	}

	same, err := sameVolume(m.path, targetDir)
	if err != nil {
		return fmt.Errorf("moving mod: %w", err)
	}

	moved := false
	if same {
		err := os.Rename(m.path, dest)
		switch {
		case err == nil:
			moved = true
		case errors.Is(err, syscall.EXDEV):
		default:
			return err
		}
	}

	if !moved {
		if err := copyTree(m.path, dest); err != nil {
			_ = os.RemoveAll(dest)
			return fmt.Errorf("copying mod to %q: %w", targetDir, err)
		}
		if err := os.RemoveAll(m.path); err != nil {
			return fmt.Errorf("removing moved mod source: %w", err)
		}
	}

	logging.Get("mod").Debug("moved", "from", m.path, "to", dest, "copied", !moved)
	m.path = dest
	m.keyswaps = nil
	return nil
}

// Delete removes the folder, into the trash unless moveToTrash is false.
func (m *Mod) Delete(moveToTrash bool) error {
	path := m.Path()
	if moveToTrash {
		return m.bin.Put(path)
	}
	return trash.Remove(path)
}

// ClearCache drops cached settings, size and key-swap sections. The next
// access re-reads them from disk.
func (m *Mod) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = nil
	m.sizeKnown = false
	m.size = 0
	if m.keyswaps != nil {
		m.keyswaps.Invalidate()
	}
	m.keyswaps = nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// checkFree fails with an *fs.PathError wrapping fs.ErrExist when dest is
// taken by something other than src itself. src and dest may differ only in
// case on case-insensitive filesystems.
func checkFree(src, dest, op string) error {
	destInfo, err := os.Lstat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if srcInfo, err := os.Lstat(src); err == nil && os.SameFile(srcInfo, destInfo) {
		return nil
	}
	return &fs.PathError{Op: op, Path: dest, Err: fs.ErrExist}
}
