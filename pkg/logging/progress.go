package logging

import (
	"sync/atomic"
	"time"

	"github.com/auraxdata/assetscan/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker counts per-ID probe outcomes during a scan run and
// derives rate and ETA from them. It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	startTime time.Time

	downloaded atomic.Int64
	notFound   atomic.Int64
	failed     atomic.Int64
	skipped    atomic.Int64
	bytes      atomic.Int64
}

// NewProgressTracker creates a tracker for a run probing total IDs.
func NewProgressTracker(total int64) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// RecordDownload records a persisted asset of n bytes.
func (pt *ProgressTracker) RecordDownload(n int64) {
	pt.downloaded.Add(1)
	pt.bytes.Add(n)
}

// RecordNotFound records an ID the endpoint has no file for.
func (pt *ProgressTracker) RecordNotFound() {
	pt.notFound.Add(1)
}

// RecordFailure records an ID whose lookup failed after retries.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
}

// RecordSkip records an ID that was already archived and not probed.
func (pt *ProgressTracker) RecordSkip() {
	pt.skipped.Add(1)
}

// Counts returns the per-outcome totals so far.
func (pt *ProgressTracker) Counts() (downloaded, notFound, failed, skipped int64) {
	return pt.downloaded.Load(), pt.notFound.Load(), pt.failed.Load(), pt.skipped.Load()
}

// Bytes returns the total bytes persisted so far.
func (pt *ProgressTracker) Bytes() int64 {
	return pt.bytes.Load()
}

// Done returns how many IDs have been resolved so far.
func (pt *ProgressTracker) Done() int64 {
	return pt.downloaded.Load() + pt.notFound.Load() + pt.failed.Load() + pt.skipped.Load()
}

// Total returns the number of IDs the run set out to probe.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}

// Pct returns the progress percentage (0-100).
func (pt *ProgressTracker) Pct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(pt.Done()) * 100.0 / float64(pt.total)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// ETA estimates the remaining run time from the overall probe rate.
func (pt *ProgressTracker) ETA() time.Duration {
	done := pt.Done()
	if done == 0 {
		return 0
	}
	remaining := pt.total - done
	if remaining <= 0 {
		return 0
	}
	perID := pt.Elapsed() / time.Duration(done)
	return perID * time.Duration(remaining)
}

// LogEvent emits a scan_progress event with the current counters.
func (pt *ProgressTracker) LogEvent(log zerolog.Logger, msg string) {
	downloaded, notFound, failed, skipped := pt.Counts()
	e := log.Info().
		Str("event", "scan_progress").
		Int64("downloaded", downloaded).
		Int64("not_found", notFound).
		Int64("failed", failed).
		Int64("skipped", skipped).
		Int64("total", pt.total).
		Float64("progress_pct", pt.Pct()).
		Int64("bytes", pt.Bytes())

	if eta := pt.ETA(); eta > 0 {
		e = e.Int64("eta_ms", eta.Milliseconds())
	}
	if IsPrettyMode() {
		e = e.Str("bytes_h", humanfmt.Bytes(pt.Bytes())).
			Str("elapsed_h", humanfmt.Duration(pt.Elapsed()))
	}

	e.Msg(msg)
}
