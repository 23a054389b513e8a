// Package progress reports byte throughput while archives are written or
// extracted.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker counts processed bytes and periodically prints progress lines to
// its output. A nil *Tracker is valid and tracks nothing.
type Tracker struct {
	out      io.Writer
	total    uint64
	interval time.Duration

	processed atomic.Uint64

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// New creates a Tracker printing to out. A total of 0 means unknown.
func New(out io.Writer, total uint64) *Tracker {
	return &Tracker{
		out:      out,
		total:    total,
		interval: 250 * time.Millisecond,
	}
}

// Start launches the reporting goroutine. Calling Start on a running Tracker
// does nothing.
func (t *Tracker) Start() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return
	}
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.report(t.done, t.stopped)
}

// Stop ends reporting and prints the summary line. It waits for the reporting
// goroutine to exit.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	done, stopped := t.done, t.stopped
	t.done, t.stopped = nil, nil
	t.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

// Add records n processed bytes.
func (t *Tracker) Add(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed.Add(n)
}

// Processed returns the number of bytes recorded so far.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed.Load()
}

// Wrap returns w counting into t, or w itself when t is nil.
func (t *Tracker) Wrap(w io.Writer) io.Writer {
	if t == nil {
		return w
	}
	return &Writer{W: w, T: t}
}

func (t *Tracker) report(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var prevBytes uint64
	var prevPercentage float64
	startTime := time.Now()
	lastOutputTime := startTime

	for {
		select {
		case <-ticker.C:
			currentBytes := t.processed.Load()
			rate := uint64(float64(currentBytes-prevBytes) / t.interval.Seconds())
			prevBytes = currentBytes

			// Only show updates every second or for significant percentage changes
			var currentPercentage float64
			if t.total > 0 {
				currentPercentage = float64(currentBytes) / float64(t.total) * 100
			}
			if time.Since(lastOutputTime) < time.Second && currentPercentage-prevPercentage < 10 {
				continue
			}
			lastOutputTime = time.Now()
			prevPercentage = currentPercentage

			if t.total > 0 {
				fmt.Fprintf(t.out, "Processed %s of %s (%.1f%%) | Rate: %s | ETA: %s\n",
					FormatSize(currentBytes), FormatSize(t.total),
					currentPercentage, FormatRate(rate), eta(t.total-min(currentBytes, t.total), rate))
			} else {
				fmt.Fprintf(t.out, "Processed %s | Rate: %s\n",
					FormatSize(currentBytes), FormatRate(rate))
			}
		case <-done:
			totalTime := time.Since(startTime).Seconds()
			if totalTime < 0.001 {
				totalTime = 0.001
			}
			processed := t.processed.Load()
			fmt.Fprintf(t.out, "Completed processing %s in %.1f seconds (avg rate: %s)\n",
				FormatSize(processed), totalTime, FormatRate(uint64(float64(processed)/totalTime)))
			return
		}
	}
}

func eta(remaining, rate uint64) string {
	if rate == 0 {
		return "calculating..."
	}
	seconds := float64(remaining) / float64(rate)
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1f minutes", seconds/60)
	default:
		return fmt.Sprintf("%.1f hours", seconds/3600)
	}
}

// FormatSize returns a human-readable size string.
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatRate returns a human-readable rate string.
func FormatRate(bytesPerSec uint64) string {
	return FormatSize(bytesPerSec) + "/s"
}

// Writer is a writer that tracks bytes written for progress reporting
type Writer struct {
	W io.Writer
	T *Tracker
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if n > 0 {
		pw.T.Add(uint64(n))
	}
	return
}
