package plotter

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParsePlotName(t *testing.T) {
	cases := []struct {
		name   string
		id     uint64
		sn     uint64
		cnt    uint64
		wantOK bool
	}{
		{"42_0_4", 42, 0, 4, true},
		{"42_1000_8192", 42, 1000, 8192, true},
		{"43_0_4", 42, 0, 0, false},
		{"42_0", 42, 0, 0, false},
		{"42_x_4", 42, 0, 0, false},
		{"42_0_y", 42, 0, 0, false},
		{"notes.txt", 42, 0, 0, false},
		{"42_0_4_old", 42, 0, 4, true}, // extra suffix tolerated like the scan it mirrors
	}
	for _, c := range cases {
		sn, cnt, ok := parsePlotName(c.name, c.id)
		if ok != c.wantOK {
			t.Errorf("%q: ok = %v, want %v", c.name, ok, c.wantOK)
			continue
		}
		if ok && (sn != c.sn || cnt != c.cnt) {
			t.Errorf("%q: got (%d, %d), want (%d, %d)", c.name, sn, cnt, c.sn, c.cnt)
		}
	}
}

func TestNextStartEmptyDir(t *testing.T) {
	start, per := NextStart(t.TempDir(), 42, 100)
	if start != 0 || per != 100 {
		t.Errorf("got (%d, %d), want (0, 100)", start, per)
	}
}

func TestNextStartChain(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "42_0_4")
	touch(t, dir, "42_4_4")
	touch(t, dir, "42_8_8")
	touch(t, dir, "43_100_100") // other account
	touch(t, dir, "junk_file")

	start, per := NextStart(dir, 42, 999)
	if start != 16 {
		t.Errorf("start = %d, want 16", start)
	}
	if per != 8 {
		t.Errorf("perFile = %d, want 8 (count of highest-ending plot)", per)
	}
}

func TestPlottedCount(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "7_32_16")
	if got := PlottedCount(dir, 7, 32, 1); got != 16 {
		t.Errorf("PlottedCount = %d, want 16", got)
	}
	if got := PlottedCount(dir, 7, 48, 5); got != 5 {
		t.Errorf("missing file: PlottedCount = %d, want fallback 5", got)
	}
}

func TestParseMemory(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"0B", 0},
		{"", 0},
		{"2GB", 2_000_000_000},
		{"512MiB", 512 << 20},
		{"4GiB", 4 << 30},
	}
	for _, c := range cases {
		got, err := ParseMemory(c.in)
		if err != nil {
			t.Errorf("ParseMemory(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseMemory(%q) = %d, want %d", c.in, got, c.want)
		}
	}
	if _, err := ParseMemory("lots"); err == nil {
		t.Error("ParseMemory accepted garbage")
	}
}
