//go:build unix

package trash

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// topDir returns the mount point holding path: the highest ancestor on the
// same device.
func topDir(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return "", err
	}

	dir := path
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir, nil
		}
		var pst unix.Stat_t
		if err := unix.Stat(parent, &pst); err != nil {
			return "", err
		}
		if pst.Dev != st.Dev {
			return dir, nil
		}
		dir = parent
	}
}
