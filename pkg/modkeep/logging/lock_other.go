//go:build !unix

package logging

import "os"

// Advisory locking is unix-only; other platforms rely on the writer mutex.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
