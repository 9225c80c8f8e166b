package progress

import "testing"

func TestTrackerCounts(t *testing.T) {
	tr := New("Writing", 1000, true)
	tr.Add(300)
	tr.Add(200)
	if got := tr.Done(); got != 500 {
		t.Errorf("Done() = %d, want 500", got)
	}
}

func TestSilentTrackerFinish(t *testing.T) {
	tr := New("Writing", 10, true)
	tr.Add(10)
	tr.Finish() // must not draw anything, and must not panic
	if tr.Done() != 10 {
		t.Errorf("Done() = %d", tr.Done())
	}
}

func TestEtaBounds(t *testing.T) {
	tr := New("Writing", 100, true)
	if got := tr.eta(0); got != "0s" {
		t.Errorf("eta with no progress = %q, want 0s", got)
	}
	tr.Add(100)
	if got := tr.eta(0); got != "0s" {
		t.Errorf("eta when complete = %q, want 0s", got)
	}
}
