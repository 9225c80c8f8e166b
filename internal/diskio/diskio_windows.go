package diskio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

const freeReserve = 0

const (
	fileFlagNoBuffering  = 0x2000_0000
	fileFlagWriteThrough = 0x8000_0000
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetDiskFreeSpace = kernel32.NewProc("GetDiskFreeSpaceW")
)

func createFile(path string, flags uint32) (*os.File, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ, nil,
		windows.OPEN_ALWAYS,
		windows.FILE_ATTRIBUTE_NORMAL|flags, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

// OpenDirect opens path with the system cache bypassed.
func OpenDirect(path string) (*os.File, error) {
	return createFile(path, fileFlagNoBuffering)
}

// Open opens path for write-through buffered writing.
func Open(path string) (*os.File, error) {
	return createFile(path, fileFlagWriteThrough)
}

// OpenReadOnly opens path for reading.
func OpenReadOnly(path string) (*os.File, error) {
	return os.Open(path)
}

// IsDirectUnsupported reports whether err marks a volume that refuses
// unbuffered opens.
func IsDirectUnsupported(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_PARAMETER)
}

// Preallocate extends path to size bytes and, when the process can take
// SeManageVolumePrivilege, marks the range valid so NTFS skips the
// zero-fill pass. fast is false when the privilege is unavailable and
// the slow zero-fill will happen instead.
func Preallocate(path string, size uint64, directIO bool) (fast bool, err error) {
	fast = obtainVolumePrivilege()

	var f *os.File
	if directIO {
		f, err = OpenDirect(path)
	} else {
		f, err = Open(path)
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return false, fmt.Errorf("extend %s to %d bytes: %w", path, size, err)
	}
	if fast {
		if err := windows.SetFileValidData(windows.Handle(f.Fd()), int64(size)); err != nil {
			fast = false
		}
	}
	return fast, nil
}

// obtainVolumePrivilege enables SeManageVolumePrivilege on the process
// token so SetFileValidData is permitted.
func obtainVolumePrivilege() bool {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES, &token); err != nil {
		return false
	}
	defer token.Close()

	name, err := windows.UTF16PtrFromString("SeManageVolumePrivilege")
	if err != nil {
		return false
	}
	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, name, &luid); err != nil {
		return false
	}
	tp := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{{
			Luid:       luid,
			Attributes: windows.SE_PRIVILEGE_ENABLED,
		}},
	}
	err = windows.AdjustTokenPrivileges(token, false, &tp, uint32(unsafe.Sizeof(tp)), nil, nil)
	return err == nil
}

// SectorSize returns the volume's bytes-per-sector, falling back to 4096.
func SectorSize(path string) uint64 {
	dir := filepath.VolumeName(path)
	if dir == "" {
		dir = path
	}
	dir += `\`
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return fallbackSectorSize
	}
	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	r, _, _ := procGetDiskFreeSpace.Call(
		uintptr(unsafe.Pointer(p)),
		uintptr(unsafe.Pointer(&sectorsPerCluster)),
		uintptr(unsafe.Pointer(&bytesPerSector)),
		uintptr(unsafe.Pointer(&freeClusters)),
		uintptr(unsafe.Pointer(&totalClusters)))
	if r == 0 || bytesPerSector == 0 {
		return fallbackSectorSize
	}
	return uint64(bytesPerSector)
}

// SetLowPriority drops the process below normal scheduling priority.
func SetLowPriority() error {
	return windows.SetPriorityClass(windows.CurrentProcess(), windows.BELOW_NORMAL_PRIORITY_CLASS)
}
