package mod

import (
	"fmt"
	"os"

	cp "github.com/otiai10/copy"
)

// copyTree copies the directory src to dst, which must not exist. Symlinks
// are copied as links; modes and modification times are preserved.
func copyTree(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("copying to %s: %w", dst, os.ErrExist)
	}
	return cp.Copy(src, dst, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction {
			return cp.Shallow
		},
		PreserveTimes: true,
		Sync:          true,
	})
}
