package plotter

import (
	"os"
	"strconv"
	"strings"
)

// NextStart scans dir for plot files of the given account and returns
// the first nonce after the highest-ending one, together with that
// file's nonce count. With no matching file it returns (0,
// fallbackNonces). Filenames that merely resemble plots are ignored.
func NextStart(dir string, id uint64, fallbackNonces uint64) (start, perFile uint64) {
	perFile = fallbackNonces
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, perFile
	}
	var maxEnd uint64
	for _, e := range entries {
		sn, cnt, ok := parsePlotName(e.Name(), id)
		if !ok {
			continue
		}
		if end := sn + cnt; end > maxEnd {
			maxEnd = end
			perFile = cnt
		}
	}
	return maxEnd, perFile
}

// PlottedCount returns the nonce count in the name of the plot file that
// starts at sn, or fallback when no such file exists.
func PlottedCount(dir string, id, sn, fallback uint64) uint64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fallback
	}
	for _, e := range entries {
		gotSN, cnt, ok := parsePlotName(e.Name(), id)
		if ok && gotSN == sn {
			return cnt
		}
	}
	return fallback
}

// parsePlotName splits "<id>_<start>_<nonces>"; ok is false for any name
// that is not a plot of the given account.
func parsePlotName(name string, id uint64) (sn, cnt uint64, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, 0, false
	}
	gotID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || gotID != id {
		return 0, 0, false
	}
	sn, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	cnt, err = strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return sn, cnt, true
}
