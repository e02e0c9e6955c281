package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// BarWidth is the number of cells in the proportional bar.
const BarWidth = 50

// Snapshot is the computed state of a run at one instant.
type Snapshot struct {
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Ratio     float64       `json:"ratio"`
	Percent   int           `json:"percent"`
	Elapsed   time.Duration `json:"elapsed"`

	// ETA is only meaningful when HasETA is set; nothing has completed otherwise.
	ETA    time.Duration `json:"eta"`
	HasETA bool          `json:"has_eta"`
}

// Compute derives ratio and ETA from the completed count and elapsed time.
// ETA is elapsed * remaining / completed, undefined while completed is 0.
func Compute(completed, total int, elapsed time.Duration) Snapshot {
	s := Snapshot{Completed: completed, Total: total, Elapsed: elapsed}

	if total <= 0 {
		return s
	}

	if completed > total {
		completed = total
		s.Completed = total
	}

	s.Ratio = float64(completed) / float64(total)
	s.Percent = completed * 100 / total

	if completed > 0 {
		remaining := total - completed
		s.ETA = time.Duration(float64(elapsed) * float64(remaining) / float64(completed))
		s.HasETA = true
	}

	return s
}

// Bar renders the fixed-width proportional bar, without brackets.
func (s Snapshot) Bar() string {
	filled := int(s.Ratio * BarWidth)
	if filled > BarWidth {
		filled = BarWidth
	}
	return strings.Repeat("=", filled) + strings.Repeat(" ", BarWidth-filled)
}

// Line renders the status line: Elapsed: H:MM:SS  NN% [=====     ] ETA: H:MM:SS
func (s Snapshot) Line() string {
	eta := "--:--:--"
	if s.HasETA {
		eta = FormatClock(s.ETA)
	}
	return fmt.Sprintf("Elapsed: %s %3d%% [%s] ETA: %s", FormatClock(s.Elapsed), s.Percent, s.Bar(), eta)
}

// FormatClock formats d as H:MM:SS, truncating sub-second remainders.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	sec := secs % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

// Options configures the progress reporter.
type Options struct {
	// Total is the number of tasks in the run.
	Total int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer
}

// Reporter renders a single live status line.
// Rendering is throttled to whole-percent changes, except the final update which always renders.
type Reporter struct {
	opts Options

	mu          sync.Mutex
	lastPercent int
	rendered    bool
	finished    bool
}

func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Reporter{opts: opts, lastPercent: -1}
}

// Update records progress and reports whether a line was written.
func (r *Reporter) Update(completed int, elapsed time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Compute(completed, r.opts.Total, elapsed)
	final := r.opts.Total > 0 && snap.Completed >= r.opts.Total

	if r.finished {
		return false
	}
	if !final && snap.Percent == r.lastPercent {
		return false
	}

	r.lastPercent = snap.Percent
	r.rendered = true
	r.finished = final

	fmt.Fprintf(r.opts.Output, "\r%s", snap.Line())
	return true
}

// Finish terminates the status line so following output starts on a fresh line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rendered {
		fmt.Fprintln(r.opts.Output)
		r.rendered = false
	}
}
