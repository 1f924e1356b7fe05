package scan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/auraxdata/assetscan/internal/logctx"
	"github.com/auraxdata/assetscan/pkg/archive"
	"github.com/auraxdata/assetscan/pkg/census"
	"github.com/auraxdata/assetscan/pkg/ledger"
	"github.com/auraxdata/assetscan/pkg/logging"
)

// FailurePolicy decides what a run does when a single lookup still
// fails after the client's bounded retries.
type FailurePolicy int

const (
	// SkipAndContinue records the failure and moves on to the next ID.
	SkipAndContinue FailurePolicy = iota

	// AbortRun stops scheduling new IDs. Assets already written stay
	// in the archive; the next run resumes past them.
	AbortRun
)

// ErrEndpointSuspect is returned when consecutive protocol errors
// reach the configured threshold.
var ErrEndpointSuspect = errors.New("endpoint response shape is suspect")

// progressLogInterval is how often a running scan reports progress.
const progressLogInterval = 10 * time.Second

// Lookup is the remote side of a scan. *census.Client satisfies it.
type Lookup interface {
	Lookup(ctx context.Context, id int64) (*census.Asset, error)
}

// Config configures a scan runner.
type Config struct {
	// Concurrency bounds in-flight lookups. Default 4. The endpoint
	// is shared infrastructure, so this stays small and is never
	// unbounded.
	Concurrency int

	// OnError is the per-ID failure policy.
	OnError FailurePolicy

	// ProtocolAbortThreshold aborts the run after this many
	// consecutive protocol errors regardless of OnError. A burst of
	// them means the endpoint changed, not that individual IDs are
	// unlucky. Default 10.
	ProtocolAbortThreshold int

	// Ledger, when non-nil, receives a tombstone for every ID probed
	// and found absent.
	Ledger *ledger.Ledger
}

// Result summarizes one run. Counts are valid even when the run
// returns an error: whatever was persisted before the failure stays
// persisted.
type Result struct {
	Probed     int64 // IDs looked up remotely
	Downloaded int64
	NotFound   int64
	Failed     int64 // lookups that failed after retries
	Skipped    int64 // IDs already archived, not probed remotely
	Bytes      int64
	Elapsed    time.Duration
}

// Runner probes candidate IDs and persists every asset that exists.
type Runner struct {
	lookup Lookup
	arch   archive.Archive
	cfg    Config
}

// NewRunner creates a runner, filling zero config fields with defaults.
func NewRunner(lookup Lookup, arch archive.Archive, cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ProtocolAbortThreshold <= 0 {
		cfg.ProtocolAbortThreshold = 10
	}
	return &Runner{lookup: lookup, arch: arch, cfg: cfg}
}

// Run probes every ID in the window.
func (r *Runner) Run(ctx context.Context, win Window) (*Result, error) {
	ctx = logctx.WithInt64(ctx, "first_id", win.First)
	ctx = logctx.WithInt64(ctx, "last_id", win.Last)
	return r.RunIDs(ctx, win.IDs())
}

// RunIDs probes the given IDs in ascending issue order with bounded
// concurrency. Failures never touch assets that were already written;
// at worst the run stops early and the next invocation resumes past
// whatever was persisted.
func (r *Runner) RunIDs(ctx context.Context, ids []int64) (*Result, error) {
	log := logctx.FromContext(ctx)
	tracker := logging.NewProgressTracker(int64(len(ids)))

	stopProgress := make(chan struct{})
	go func() {
		t := time.NewTicker(progressLogInterval)
		defer t.Stop()
		for {
			select {
			case <-stopProgress:
				return
			case <-t.C:
				tracker.LogEvent(log, "scan progress")
			}
		}
	}()
	defer close(stopProgress)

	var protocolStreak atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, id := range ids {
		id := id
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.probeOne(gctx, id, tracker, &protocolStreak)
		})
	}

	err := g.Wait()
	if err == nil {
		// Cancellation before any probe was scheduled still fails the run.
		err = ctx.Err()
	}
	return resultFrom(tracker), err
}

func (r *Runner) probeOne(ctx context.Context, id int64, tracker *logging.ProgressTracker, protocolStreak *atomic.Int64) error {
	log := logctx.FromContext(ctx).With().Int64("asset_id", id).Logger()

	// First fetch wins: an archived ID is never probed again.
	if ok, err := r.arch.Has(ctx, id); err != nil {
		return fmt.Errorf("check archive for asset %d: %w", id, err)
	} else if ok {
		tracker.RecordSkip()
		log.Debug().Msg("already archived")
		return nil
	}

	asset, err := r.lookup.Lookup(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, census.ErrNotFound):
		protocolStreak.Store(0)
		tracker.RecordNotFound()
		log.Debug().Msg("not found")
		r.markAbsent(ctx, id, log)
		return nil
	case census.IsProtocol(err):
		if streak := protocolStreak.Add(1); streak >= int64(r.cfg.ProtocolAbortThreshold) {
			tracker.RecordFailure()
			return fmt.Errorf("%w: %d consecutive protocol errors, last: %v", ErrEndpointSuspect, streak, err)
		}
		return r.recordFailure(err, tracker, log)
	case census.IsTransient(err):
		return r.recordFailure(err, tracker, log)
	default:
		// Cancellation or a non-lookup failure; stop the run.
		return err
	}

	protocolStreak.Store(0)

	// A storage failure is fatal to the run so the scheduler can
	// alert; it cannot affect assets committed earlier.
	if err := r.arch.Write(ctx, id, asset.Data, asset.Ext); err != nil {
		return fmt.Errorf("archive asset %d: %w", id, err)
	}
	tracker.RecordDownload(int64(len(asset.Data)))
	log.Debug().Int("bytes", len(asset.Data)).Str("ext", asset.Ext).Msg("downloaded")
	r.clearAbsent(ctx, id, log)
	return nil
}

func (r *Runner) recordFailure(err error, tracker *logging.ProgressTracker, log zerolog.Logger) error {
	tracker.RecordFailure()
	if r.cfg.OnError == AbortRun {
		return err
	}
	log.Warn().Err(err).Msg("lookup failed, skipping id")
	return nil
}

func (r *Runner) markAbsent(ctx context.Context, id int64, log zerolog.Logger) {
	if r.cfg.Ledger == nil {
		return
	}
	if err := r.cfg.Ledger.MarkAbsent(ctx, id, time.Now()); err != nil {
		log.Warn().Err(err).Msg("ledger tombstone write failed")
	}
}

func (r *Runner) clearAbsent(ctx context.Context, id int64, log zerolog.Logger) {
	if r.cfg.Ledger == nil {
		return
	}
	if err := r.cfg.Ledger.ClearAbsent(ctx, id); err != nil {
		log.Warn().Err(err).Msg("ledger tombstone clear failed")
	}
}

func resultFrom(tracker *logging.ProgressTracker) *Result {
	downloaded, notFound, failed, skipped := tracker.Counts()
	return &Result{
		Probed:     downloaded + notFound + failed,
		Downloaded: downloaded,
		NotFound:   notFound,
		Failed:     failed,
		Skipped:    skipped,
		Bytes:      tracker.Bytes(),
		Elapsed:    tracker.Elapsed(),
	}
}
