// Package trash moves mod folders to the system trash. Permanent deletion
// is a separate call; Put never deletes.
package trash

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/adrg/xdg"
)

// ErrUnavailable is returned by Put when no trash can take the item. The
// item is left where it was.
var ErrUnavailable = errors.New("no trash available")

// commandTimeout is the maximum time to wait for trash commands.
const commandTimeout = 30 * time.Second

// Bin is a trash location. The zero value uses the platform tools and the
// freedesktop home trash under $XDG_DATA_HOME/Trash.
type Bin struct {
	// Dir overrides the home trash directory (contains files/ and info/).
	Dir string

	// NoCommands skips gio, trash-put and osascript.
	NoCommands bool
}

// Default is the bin used by MoveToTrash.
var Default = &Bin{}

// MoveToTrash moves a file or directory to the default trash.
func MoveToTrash(path string) error {
	return Default.Put(path)
}

// Remove permanently deletes a file or directory.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}

// Put moves path into the bin. On macOS it asks Finder; elsewhere it tries
// gio and trash-put, then the freedesktop home trash, then the trash at the
// top of path's own filesystem. It fails with ErrUnavailable when none of
// them works.
func (b *Bin) Put(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	if !b.NoCommands && b.runCommand(absPath) {
		return nil
	}

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return fmt.Errorf("%w for %q", ErrUnavailable, absPath)
	}

	err = putInto(b.dir(), absPath, absPath)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EXDEV) {
		if top, terr := topDir(absPath); terr != nil {
			err = terr
		} else if err = putVolume(top, absPath); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w for %q: %w", ErrUnavailable, absPath, err)
}

// dir returns the home trash directory.
func (b *Bin) dir() string {
	if b.Dir != "" {
		return b.Dir
	}
	return filepath.Join(xdg.DataHome, "Trash")
}

func (b *Bin) runCommand(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run() == nil
	}

	if gio, err := exec.LookPath("gio"); err == nil {
		if exec.CommandContext(ctx, gio, "trash", path).Run() == nil {
			return true
		}
	}
	if trashPut, err := exec.LookPath("trash-put"); err == nil {
		if exec.CommandContext(ctx, trashPut, path).Run() == nil {
			return true
		}
	}
	return false
}

// putVolume uses the per-user trash $top/.Trash-$uid, whose .trashinfo
// paths are relative to top.
func putVolume(top, path string) error {
	rel, err := filepath.Rel(top, path)
	if err != nil {
		return err
	}
	dir := filepath.Join(top, ".Trash-"+strconv.Itoa(os.Getuid()))
	return putInto(dir, path, filepath.ToSlash(rel))
}

// putInto implements the freedesktop.org trash layout under trashDir: the
// item is renamed into files/ and a matching .trashinfo recording infoPath
// is written to info/. Only works when trashDir shares a filesystem with
// path.
func putInto(trashDir, path, infoPath string) error {
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	if err := os.MkdirAll(filesDir, 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(infoDir, 0o700); err != nil {
		return err
	}

	name, info, err := reserve(infoDir, filepath.Base(path))
	if err != nil {
		return err
	}

	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: infoPath}).EscapedPath(), time.Now().Format("2006-01-02T15:04:05"))
	if _, err := info.WriteString(content); err != nil {
		_ = info.Close()
		_ = os.Remove(info.Name())
		return err
	}
	if err := info.Close(); err != nil {
		_ = os.Remove(info.Name())
		return err
	}

	if err := os.Rename(path, filepath.Join(filesDir, name)); err != nil {
		_ = os.Remove(info.Name())
		return err
	}
	return nil
}

// reserve creates an exclusive .trashinfo file for a free variant of base.
func reserve(infoDir, base string) (string, *os.File, error) {
	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = base + "." + strconv.Itoa(i)
		}
		f, err := os.OpenFile(filepath.Join(infoDir, name+".trashinfo"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return name, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("no free trash name for %q", base)
}
