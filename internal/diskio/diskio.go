// Package diskio isolates the platform-specific pieces of plot file I/O:
// direct-I/O opens, preallocation, physical sector size discovery, free
// space and process priority. Everything here degrades gracefully; the
// only hard failures are the ones the plotter cannot continue past.
package diskio

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

const fallbackSectorSize = 4096

// FreeSpace returns the bytes usable for a new plot on the filesystem
// holding path, after the platform reserve.
func FreeSpace(path string) (uint64, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("query free space of %s: %w", path, err)
	}
	if u.Free <= freeReserve {
		return 0, nil
	}
	return u.Free - freeReserve, nil
}
