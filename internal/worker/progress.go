package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress tracks and displays batch job progress.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker. When disabled it stays silent but
// still accumulates counts for Summary.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Print redraws the status line in place:
//
//	 42% [==========>              ] 34/80 layers, 2 failed, 12s left
func (p *Progress) Print() {
	p.mu.RLock()
	completed, total, failed := p.completed, p.total, p.failed
	startTime := p.startTime
	p.mu.RUnlock()
	if total == 0 {
		return
	}

	const width = 25
	head := completed * width / total
	var bar strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < head:
			bar.WriteByte('=')
		case i == head && completed < total:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}

	line := fmt.Sprintf("%3d%% [%s] %d/%d layers",
		completed*100/total, bar.String(), completed, total)
	if failed > 0 {
		line += fmt.Sprintf(", %d failed", failed)
	}
	elapsed := time.Since(startTime)
	if completed > 0 && completed < total {
		left := elapsed / time.Duration(completed) * time.Duration(total-completed)
		line += fmt.Sprintf(", %s left", left.Round(time.Second))
	}

	// Left-pad with \r and right-pad so a shrinking line fully overwrites
	// the previous one.
	fmt.Fprintf(p.output, "\r%-78s", line)
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line account of the completed work.
func (p *Progress) Summary() string {
	p.mu.RLock()
	completed, total, failed := p.completed, p.total, p.failed
	startTime := p.startTime
	p.mu.RUnlock()

	elapsed := time.Since(startTime).Round(time.Second)
	if failed > 0 {
		return fmt.Sprintf("processed %d of %d layers, %d failed (%s)",
			completed-failed, total, failed, elapsed)
	}
	return fmt.Sprintf("processed %d of %d layers (%s)", completed, total, elapsed)
}
