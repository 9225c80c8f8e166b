package plotter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"plotter/internal/diskio"
)

// resumeMagic tails every unfinished plot file, directly after the
// little-endian nonce count.
var resumeMagic = [4]byte{0xAF, 0xFE, 0xAF, 0xFE}

// ErrNoResumeInfo means the file carries no resume trailer: it either
// finished or was written by something else.
var ErrNoResumeInfo = errors.New("no resume marker in plot file")

// ReadResumeInfo returns the nonce count recorded in the trailer of an
// unfinished plot file.
func ReadResumeInfo(path string) (uint64, error) {
	f, err := diskio.OpenReadOnly(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(-8, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("seek resume trailer: %w", err)
	}
	var trailer [8]byte
	if _, err := io.ReadFull(f, trailer[:]); err != nil {
		return 0, fmt.Errorf("read resume trailer: %w", err)
	}
	if [4]byte(trailer[4:]) != resumeMagic {
		return 0, ErrNoResumeInfo
	}
	return uint64(binary.LittleEndian.Uint32(trailer[:4])), nil
}

// WriteResumeInfo records written in the last 8 bytes of the plot file.
// The trailer overlays payload; the final stripes of a completed plot
// overwrite it.
func WriteResumeInfo(path string, written uint64) error {
	f, err := diskio.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(-8, io.SeekEnd); err != nil {
		return fmt.Errorf("seek resume trailer: %w", err)
	}
	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[:4], uint32(written))
	copy(trailer[4:], resumeMagic[:])
	if _, err := f.Write(trailer[:]); err != nil {
		return fmt.Errorf("write resume trailer: %w", err)
	}
	return nil
}
