// Package plotter schedules plot file generation: a pool of producers
// hashes nonces into page-aligned frames while a single writer transposes
// them into the scoop-major on-disk layout.
package plotter

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"plotter/internal/poc"
)

const (
	// ScoopSize is one 64-byte scoop.
	ScoopSize = poc.ScoopSize
	// NumScoops is the number of scoops per nonce.
	NumScoops = poc.NumScoops
	// NonceSize is one finished nonce: 256 KiB.
	NonceSize = poc.NonceSize
	// TaskSize is the writer chunk in nonces; 16384 scoops of one stripe
	// make a 1 MiB write.
	TaskSize = 16384
)

// Task describes one plot file. It is immutable once Run starts.
type Task struct {
	NumericID  uint64
	StartNonce uint64
	Nonces     uint64
	OutputPath string

	// MemoryLimit caps the frame memory in bytes; 0 sizes frames from
	// available RAM.
	MemoryLimit uint64
	// CPUThreads is the producer count; 0 means one per online CPU.
	CPUThreads int

	DirectIO  bool
	AsyncIO   bool
	Benchmark bool
}

// FileName returns "<id>_<start>_<nonces>". The count is the requested
// one even when lane rounding writes fewer nonces.
func (t *Task) FileName() string {
	return fmt.Sprintf("%d_%d_%d", t.NumericID, t.StartNonce, t.Nonces)
}

// FilePath returns the plot file location under the output path.
func (t *Task) FilePath() string {
	return filepath.Join(t.OutputPath, t.FileName())
}

// PlotSize returns the full payload size of the plot file in bytes.
func (t *Task) PlotSize() uint64 {
	return t.Nonces * NonceSize
}

// ParseMemory converts a human-readable memory cap ("4GB", "512MiB",
// "0B") to bytes. Zero means no explicit cap.
func ParseMemory(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q: %w", s, err)
	}
	return n, nil
}
