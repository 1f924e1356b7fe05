// Package cli implements the command-line interface for assetscan.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/auraxdata/assetscan/internal/logctx"
	"github.com/auraxdata/assetscan/pkg/archive"
	"github.com/auraxdata/assetscan/pkg/census"
	"github.com/auraxdata/assetscan/pkg/humanfmt"
	"github.com/auraxdata/assetscan/pkg/ledger"
	"github.com/auraxdata/assetscan/pkg/logging"
	"github.com/auraxdata/assetscan/pkg/scan"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: assetscan <command> [options]\ncommands: incremental, dump, gapfill")
	}

	switch args[0] {
	case "incremental":
		return runIncremental(args[1:])
	case "dump":
		return runDump(args[1:])
	case "gapfill":
		return runGapfill(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are shared by every scan command.
type commonFlags struct {
	archiveDir  string
	archiveS3   string
	endpoint    string
	ledgerPath  string
	concurrency int
	onError     string
	noVerify    bool
	debug       bool
	pretty      bool
}

func addCommonFlags(fs *flag.FlagSet, env envConfig) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.archiveDir, "archive", env.ArchiveDir, "archive directory")
	fs.StringVar(&cf.archiveS3, "s3", env.ArchiveS3, "s3://bucket/prefix archive (overrides -archive)")
	fs.StringVar(&cf.endpoint, "endpoint", env.Endpoint, "census service root URL")
	fs.StringVar(&cf.ledgerPath, "ledger", env.LedgerPath, "optional SQLite tombstone ledger path")
	fs.IntVar(&cf.concurrency, "concurrency", env.Concurrency, "max in-flight lookups")
	fs.StringVar(&cf.onError, "on-error", env.OnError, "per-ID failure policy: skip or abort")
	fs.BoolVar(&cf.noVerify, "no-verify", env.NoVerify, "skip image payload verification")
	fs.BoolVar(&cf.debug, "debug", env.Debug, "enable debug logging")
	fs.BoolVar(&cf.pretty, "pretty", env.Pretty, "human-friendly console logging")
	return cf
}

func parsePolicy(s string) (scan.FailurePolicy, error) {
	switch s {
	case "skip":
		return scan.SkipAndContinue, nil
	case "abort":
		return scan.AbortRun, nil
	default:
		return 0, fmt.Errorf("invalid -on-error value %q (want skip or abort)", s)
	}
}

// scanSetup holds everything a scan command needs after flag parsing.
type scanSetup struct {
	ctx    context.Context
	cancel context.CancelFunc
	arch   archive.Archive
	runner *scan.Runner
	ledger *ledger.Ledger
}

func (s *scanSetup) close() {
	if s.ledger != nil {
		s.ledger.Close()
	}
	s.cancel()
}

func setup(command string, cf *commonFlags) (*scanSetup, error) {
	logging.Init(cf.debug, cf.pretty)

	policy, err := parsePolicy(cf.onError)
	if err != nil {
		return nil, err
	}

	// The whole run may be cancelled externally; completed IDs stay
	// persisted and the next run resumes after them.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logctx.WithLogger(ctx, logging.WithCommand(command))

	var arch archive.Archive
	if cf.archiveS3 != "" {
		bucket, prefix, err := archive.ParseS3URI(cf.archiveS3)
		if err != nil {
			cancel()
			return nil, err
		}
		arch, err = archive.NewS3(ctx, bucket, prefix)
		if err != nil {
			cancel()
			return nil, err
		}
	} else {
		arch, err = archive.NewDir(cf.archiveDir)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	var ldg *ledger.Ledger
	if cf.ledgerPath != "" {
		ldg, err = ledger.Open(cf.ledgerPath)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	client := census.NewClient(censusConfig(cf))
	runner := scan.NewRunner(client, arch, scan.Config{
		Concurrency: cf.concurrency,
		OnError:     policy,
		Ledger:      ldg,
	})

	return &scanSetup{ctx: ctx, cancel: cancel, arch: arch, runner: runner, ledger: ldg}, nil
}

func runIncremental(args []string) error {
	env, err := loadEnvConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("incremental", flag.ContinueOnError)
	cf := addCommonFlags(fs, env)
	count := fs.Int64("count", env.Count, "number of IDs to probe past the frontier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count < 1 {
		return errors.New("-count must be positive")
	}

	s, err := setup("incremental", cf)
	if err != nil {
		return err
	}
	defer s.close()

	frontier, err := archive.Frontier(s.ctx, s.arch)
	if err != nil {
		return err
	}
	win := scan.NextWindow(frontier, *count)

	log := logctx.FromContext(s.ctx)
	log.Info().
		Int64("frontier", frontier).
		Int64("first_id", win.First).
		Int64("last_id", win.Last).
		Msg("starting incremental scan")

	res, err := s.runner.Run(s.ctx, win)
	logSummary(res)
	return err
}

func runDump(args []string) error {
	env, err := loadEnvConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	cf := addCommonFlags(fs, env)
	maxID := fs.Int64("max-id", 0, "upper bound of the ID range (required)")
	offset := fs.Int64("offset", 0, "number of leading IDs to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *maxID < 1 {
		return errors.New("-max-id is required and must be positive")
	}
	if *offset < 0 {
		return errors.New("-offset must be non-negative")
	}
	if *offset >= *maxID {
		return errors.New("-offset must be less than -max-id")
	}

	s, err := setup("dump", cf)
	if err != nil {
		return err
	}
	defer s.close()

	win := scan.Window{First: *offset + 1, Last: *maxID}

	log := logctx.FromContext(s.ctx)
	log.Info().
		Int64("first_id", win.First).
		Int64("last_id", win.Last).
		Msg("starting bulk dump")

	res, err := s.runner.Run(s.ctx, win)
	logSummary(res)
	return err
}

func runGapfill(args []string) error {
	env, err := loadEnvConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("gapfill", flag.ContinueOnError)
	cf := addCommonFlags(fs, env)
	offset := fs.Int64("offset", 0, "lowest ID to consider")
	recheck := fs.Bool("recheck", false, "re-probe IDs the ledger has tombstoned")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *offset < 0 {
		return errors.New("-offset must be non-negative")
	}

	s, err := setup("gapfill", cf)
	if err != nil {
		return err
	}
	defer s.close()

	var skip map[int64]struct{}
	if s.ledger != nil && !*recheck {
		skip, err = s.ledger.AbsentIDs(s.ctx)
		if err != nil {
			return err
		}
	}

	ids, err := scan.MissingIDs(s.ctx, s.arch, *offset, skip)
	if err != nil {
		return err
	}

	log := logctx.FromContext(s.ctx)
	log.Info().
		Int("missing_ids", len(ids)).
		Int("tombstoned", len(skip)).
		Msg("starting gapfill")
	if len(ids) == 0 {
		return nil
	}

	res, err := s.runner.RunIDs(s.ctx, ids)
	logSummary(res)
	return err
}

func logSummary(res *scan.Result) {
	if res == nil {
		return
	}
	e := logging.L().Info().
		Str("event", "scan_completed").
		Int64("probed", res.Probed).
		Int64("downloaded", res.Downloaded).
		Int64("not_found", res.NotFound).
		Int64("failed", res.Failed).
		Int64("skipped", res.Skipped).
		Int64("bytes", res.Bytes).
		Int64("duration_ms", res.Elapsed.Milliseconds())

	if logging.IsPrettyMode() {
		e = e.Str("bytes_h", humanfmt.Bytes(res.Bytes)).
			Str("duration_h", humanfmt.Duration(res.Elapsed)).
			Str("throughput_h", humanfmt.Throughput(res.Bytes, res.Elapsed))
	}

	e.Msg("scan completed")
}
