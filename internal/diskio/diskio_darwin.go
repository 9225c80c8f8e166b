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

const freeReserve = 2 << 20

// OpenDirect opens path for writing with the page cache bypassed.
// macOS has no O_DIRECT; F_NOCACHE on the open descriptor is the
// equivalent.
func OpenDirect(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Open opens path for buffered writing, creating it if needed.
func Open(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
}

// OpenReadOnly opens path for reading.
func OpenReadOnly(path string) (*os.File, error) {
	return os.Open(path)
}

// IsDirectUnsupported reports whether err marks a filesystem that
// refuses uncached opens.
func IsDirectUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTSUP)
}

// Preallocate extends path to size bytes. APFS allocates lazily, so a
// plain truncate is the fast path here.
func Preallocate(path string, size uint64, directIO bool) (fast bool, err error) {
	f, err := Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if directIO {
		sector := SectorSize(path)
		size = (size + sector - 1) / sector * sector
	}
	if err := f.Truncate(int64(size)); err != nil {
		return false, fmt.Errorf("extend %s to %d bytes: %w", path, size, err)
	}
	return true, nil
}

// SectorSize returns the device block size diskutil reports for the
// volume holding path, falling back to 4096.
func SectorSize(path string) uint64 {
	dev, err := deviceFor(path)
	if err != nil {
		return fallbackSectorSize
	}
	out, err := exec.Command("diskutil", "info", dev).Output()
	if err != nil {
		return fallbackSectorSize
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Device Block Size") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			break
		}
		fields := strings.Fields(parts[1])
		if len(fields) == 0 {
			break
		}
		if n, err := strconv.ParseUint(fields[0], 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallbackSectorSize
}

// deviceFor resolves the device node df reports for path's parent.
func deviceFor(path string) (string, error) {
	dir := path
	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		dir = filepath.Dir(path)
	}
	out, err := exec.Command("df", "-P", dir).Output()
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("no device in df output for %s", dir)
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) == 0 {
		return "", fmt.Errorf("empty device in df output for %s", dir)
	}
	return fields[0], nil
}

// SetLowPriority drops the process to the lowest scheduling priority.
func SetLowPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, 19)
}
