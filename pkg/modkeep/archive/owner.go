package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

// ErrInUse is returned by Open while another live process holds the cache.
var ErrInUse = errors.New("archive cache in use by another process")

const (
	ownerFile = "OWNER"
	lockFile  = "LOCK"
)

// claim records this process as the cache owner. A LOCK left by a process
// that is no longer running is removed first.
func claim(dir string) error {
	ownerPath := filepath.Join(dir, ownerFile)
	pid, err := readOwner(ownerPath)
	if err == nil && pid != os.Getpid() {
		if processRunning(pid) {
			return fmt.Errorf("%w (pid %d)", ErrInUse, pid)
		}
		logging.Get("archive").Warn("removing stale archive lock", "stale_pid", pid, "dir", dir)
		_ = os.Remove(filepath.Join(dir, lockFile))
	}
	return os.WriteFile(ownerPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// release removes the owner record if it still names this process.
func release(dir string) {
	ownerPath := filepath.Join(dir, ownerFile)
	if pid, err := readOwner(ownerPath); err == nil && pid == os.Getpid() {
		_ = os.Remove(ownerPath)
	}
}

func readOwner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid owner file %s", path)
	}
	return pid, nil
}

func processRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
