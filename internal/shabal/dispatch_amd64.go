//go:build amd64

package shabal

import (
	"sync"

	"golang.org/x/sys/cpu"
)

var (
	widthOnce sync.Once
	width     int
	widthISA  string
)

// PreferredWidth reports the lane width used for batched hashing on this
// CPU and the instruction set that sized it. Detection runs once and is
// cached for the life of the process.
func PreferredWidth() (int, string) {
	widthOnce.Do(func() {
		switch {
		case cpu.X86.HasAVX512F:
			width, widthISA = 16, "AVX-512F"
		case cpu.X86.HasAVX2:
			width, widthISA = 8, "AVX2"
		case cpu.X86.HasAVX:
			width, widthISA = 4, "AVX"
		case cpu.X86.HasSSE2:
			width, widthISA = 4, "SSE2"
		default:
			width, widthISA = 1, "scalar"
		}
	})
	return width, widthISA
}
