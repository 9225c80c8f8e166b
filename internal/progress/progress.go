// Package progress renders single-line throughput and ETA updates for a
// long-running byte-counted job.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var labelStyle = lipgloss.NewStyle().Bold(true)

// Tracker accumulates completed bytes and redraws a status line at most
// every refresh interval. Add may be called from any goroutine.
type Tracker struct {
	mu      sync.Mutex
	label   string
	total   uint64
	done    uint64
	started time.Time
	lastRow time.Time
	silent  bool
}

const refresh = 250 * time.Millisecond

// New returns a tracker for total bytes of work. A silent tracker still
// counts but never draws.
func New(label string, total uint64, silent bool) *Tracker {
	return &Tracker{
		label:   label,
		total:   total,
		started: time.Now(),
		silent:  silent,
	}
}

// Add records n completed bytes and redraws the status line.
func (t *Tracker) Add(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += n
	if t.silent || time.Since(t.lastRow) < refresh && t.done < t.total {
		return
	}
	t.lastRow = time.Now()
	t.draw()
}

// Done returns the bytes recorded so far.
func (t *Tracker) Done() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Finish terminates the status line and reports the average rate.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.silent {
		return
	}
	t.draw()
	elapsed := time.Since(t.started)
	fmt.Fprintf(os.Stdout, "\n%s finished in %s (%s/s)\n",
		t.label, elapsed.Round(time.Second), humanize.IBytes(t.rate(elapsed)))
}

func (t *Tracker) draw() {
	elapsed := time.Since(t.started)
	pct := 0.0
	if t.total > 0 {
		pct = float64(t.done) / float64(t.total) * 100
	}
	line := fmt.Sprintf("\r%s %6.2f%%  %s / %s  %s/s  ETA %s",
		labelStyle.Render(t.label), pct,
		humanize.IBytes(t.done), humanize.IBytes(t.total),
		humanize.IBytes(t.rate(elapsed)), t.eta(elapsed))
	fmt.Fprint(os.Stdout, line)
}

func (t *Tracker) rate(elapsed time.Duration) uint64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return uint64(float64(t.done) / secs)
}

func (t *Tracker) eta(elapsed time.Duration) string {
	if t.done == 0 || t.done >= t.total {
		return "0s"
	}
	left := float64(t.total-t.done) / float64(t.done) * elapsed.Seconds()
	return (time.Duration(left) * time.Second).Round(time.Second).String()
}
