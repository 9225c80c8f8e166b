package diskio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// 2 MiB held back so the last stripe never races the filesystem's own
// metadata needs.
const freeReserve = 2 << 20

// OpenDirect opens path for writing with O_DIRECT. Filesystems without
// O_DIRECT support fail here with EINVAL; see IsDirectUnsupported.
func OpenDirect(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_DIRECT, 0o644)
}

// Open opens path for buffered writing, creating it if needed.
func Open(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
}

// OpenReadOnly opens path for reading.
func OpenReadOnly(path string) (*os.File, error) {
	return os.Open(path)
}

// IsDirectUnsupported reports whether err is the EINVAL a filesystem
// without O_DIRECT support returns at open time.
func IsDirectUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL)
}

// Preallocate reserves size bytes for path. In direct mode the size is
// first rounded up to whole sectors and the file extended through the
// O_DIRECT handle; otherwise fallocate reserves real extents. The fast
// result is always true on Linux.
func Preallocate(path string, size uint64, directIO bool) (fast bool, err error) {
	if directIO {
		sector := SectorSize(path)
		aligned := (size + sector - 1) / sector * sector
		f, err := OpenDirect(path)
		if err == nil {
			defer f.Close()
			if err := unix.Ftruncate(int(f.Fd()), int64(aligned)); err != nil {
				return false, fmt.Errorf("extend %s to %d bytes: %w", path, aligned, err)
			}
			return true, nil
		}
		// O_DIRECT refused at open; the writer will fall back too.
	}
	f, err := Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if err := unix.Fallocate(int(f.Fd()), 0, 0, int64(size)); err != nil {
		return false, fmt.Errorf("preallocate %s (%d bytes): %w (fallocate needs ext4/xfs and enough free space)", path, size, err)
	}
	return true, nil
}

// SectorSize returns the physical sector size of the device backing
// path, falling back to 4096 when discovery fails.
func SectorSize(path string) uint64 {
	dev, err := deviceFor(path)
	if err != nil {
		return fallbackSectorSize
	}
	out, err := exec.Command("lsblk", dev, "-o", "PHY-SEC", "-b", "-n").Output()
	if err == nil {
		if n, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64); err == nil && n > 0 {
			return n
		}
	}
	out, err = exec.Command("blockdev", "--getpbsz", dev).Output()
	if err == nil {
		if n, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallbackSectorSize
}

// deviceFor resolves the block device that df reports for path's parent.
func deviceFor(path string) (string, error) {
	dir := path
	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		dir = filepath.Dir(path)
	}
	out, err := exec.Command("df", "--output=source", dir).Output()
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("no device in df output for %s", dir)
	}
	dev := strings.TrimSpace(lines[len(lines)-1])
	if dev == "" {
		return "", fmt.Errorf("empty device in df output for %s", dir)
	}
	return dev, nil
}

// SetLowPriority drops the process to the lowest scheduling priority.
func SetLowPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, 19)
}
