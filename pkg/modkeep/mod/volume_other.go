//go:build !unix

package mod

import (
	"path/filepath"
	"strings"
)

// sameVolume compares the volume names of both paths.
func sameVolume(a, b string) (bool, error) {
	return strings.EqualFold(filepath.VolumeName(a), filepath.VolumeName(b)), nil
}
