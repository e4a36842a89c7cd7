// Package cli implements the archiver's subcommand tree (add, extract,
// list, remove, versions, verify, compact) and the terminal plumbing
// they share.
package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"zpaqng/internal/util"
)

// Reporter renders single-line progress for long archive operations and
// carries the cooperative cancel flag the signal handler trips. The add
// loop polls IsCancelled at file boundaries; the archive on disk stays
// valid either way, because only completed transactions are written.
type Reporter struct {
	mu        sync.Mutex
	phase     string
	frac      float32
	detail    string
	quiet     bool
	cancelled atomic.Bool
	lastWidth int
}

// NewReporter returns a Reporter; quiet suppresses all of its output,
// the progress line and the final summary alike.
func NewReporter(quiet bool) *Reporter {
	return &Reporter{quiet: quiet}
}

// SetStatus names the phase shown after the bar ("reading",
// "committing", ...).
func (r *Reporter) SetStatus(phase string) {
	r.mu.Lock()
	r.phase = phase
	r.mu.Unlock()
}

// SetProgress updates the completed fraction and the free-form detail
// text (bytes read, throughput, ETA).
func (r *Reporter) SetProgress(frac float32, detail string) {
	r.mu.Lock()
	r.frac = frac
	r.detail = detail
	r.mu.Unlock()
}

const barCells = 24

// Update redraws the progress line in place.
func (r *Reporter) Update() {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	filled := int(r.frac * barCells)
	if filled > barCells {
		filled = barCells
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", barCells-filled)
	line := fmt.Sprintf("\r[%s] %3.0f%% %s | %s", bar, r.frac*100, r.detail, r.phase)
	if pad := r.lastWidth - len(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	r.lastWidth = len(line)
	fmt.Fprint(os.Stderr, line)
}

// Cancel trips the cooperative cancel flag; the operation notices at
// its next file boundary.
func (r *Reporter) Cancel() { r.cancelled.Store(true) }

// IsCancelled reports whether Cancel was called.
func (r *Reporter) IsCancelled() bool { return r.cancelled.Load() }

// Finish moves the cursor past the progress line.
func (r *Reporter) Finish() {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastWidth > 0 {
		fmt.Fprintln(os.Stderr)
		r.lastWidth = 0
	}
}

// Summary prints the closing line of an add: how many paths went in,
// how many bytes they held, how many bytes the archive actually grew
// by after chunk dedup and compression, and the elapsed time.
func (r *Reporter) Summary(paths, version int, bytesIn, bytesStored int64, elapsed time.Duration) {
	if r.quiet {
		return
	}
	saved := "" // dedup hits plus compression can shrink the delta to zero
	if bytesIn > 0 && bytesStored < bytesIn {
		pct := float64(bytesIn-bytesStored) / float64(bytesIn) * 100
		saved = fmt.Sprintf(" (%.1f%% saved by dedup+compression)", pct)
	}
	fmt.Fprintf(os.Stderr, "Added %d path(s) as version %d: %s in, %s stored%s in %s\n",
		paths, version, util.Sizeify(bytesIn), util.Sizeify(bytesStored), saved,
		util.Timeify(int(elapsed.Seconds())))
}
