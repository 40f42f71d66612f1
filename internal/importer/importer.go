// Package importer runs one feed through parse, normalize, submit and commit.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"xcri-import/internal/domain"
	"xcri-import/internal/index"
	"xcri-import/internal/xcri"
)

// Opener acquires a feed stream by location (path, URL, ...).
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Importer feeds XCRI catalogs into an index. It may be shared by concurrent
// runs: each run has its own parser state, and submit+commit pairs against
// the index are serialized so one run's commit never exposes another run's
// half-submitted batch.
type Importer struct {
	Index      index.Indexer
	Opener     Opener
	Normalizer xcri.Normalizer
	Logger     *slog.Logger

	mu sync.Mutex
}

// Report describes a completed run. Submission and commit failures are
// recorded here and logged; they do not fail the run.
type Report struct {
	RunID     string
	Feed      string
	Fragments int
	Records   []domain.Record
	Rejected  []xcri.Rejection
	SubmitErr error
	CommitErr error
	Duration  time.Duration
}

// Submitted is the number of records handed to the index.
func (r Report) Submitted() int { return len(r.Records) }

func (i *Importer) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

// RunFeed opens location and runs it. Failing to acquire the feed is fatal,
// like a parse failure.
func (i *Importer) RunFeed(ctx context.Context, location string) (Report, error) {
	if i.Opener == nil {
		return Report{Feed: location}, fmt.Errorf("importer: no feed opener configured")
	}
	rc, err := i.Opener.Open(ctx, location)
	if err != nil {
		return Report{Feed: location}, fmt.Errorf("importer: %w", err)
	}
	defer rc.Close()

	return i.Run(ctx, location, rc)
}

// Run imports the feed read from r. Only a malformed feed (or a read
// failure) is returned as an error; rejected records are skipped and index
// failures are reported in the Report.
func (i *Importer) Run(ctx context.Context, name string, r io.Reader) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), Feed: name}
	logger := i.logger().With("run_id", rep.RunID, "feed", name)

	frags, err := xcri.Parser{Logger: logger}.Parse(r)
	if err != nil {
		rep.Duration = time.Since(start)
		return rep, fmt.Errorf("importer: parse %s: %w", name, err)
	}
	rep.Fragments = len(frags)

	rep.Records, rep.Rejected = i.Normalizer.NormalizeAll(frags)
	for _, rej := range rep.Rejected {
		logger.Warn("skipping presentation", "reason", rej.Reason, "fragment", map[string][]string(rej.Fragment))
	}

	rep.SubmitErr, rep.CommitErr = i.submit(ctx, logger, rep.Records)
	rep.Duration = time.Since(start)

	logger.Info("import finished",
		"presentations", rep.Fragments,
		"submitted", rep.Submitted(),
		"rejected", len(rep.Rejected),
		"submit_ok", rep.SubmitErr == nil,
		"commit_ok", rep.CommitErr == nil,
		"duration", rep.Duration,
	)
	return rep, nil
}

// submit sends the whole batch, then commits whatever the outcome: documents
// the backend staged before a failure are kept.
func (i *Importer) submit(ctx context.Context, logger *slog.Logger, records []domain.Record) (submitErr, commitErr error) {
	if i.Index == nil {
		submitErr = fmt.Errorf("importer: no index configured")
		logger.Error("index submission failed", "records", len(records), "err", submitErr)
		return submitErr, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.Index.Index(ctx, domain.Documents(records)); err != nil {
		submitErr = err
		logger.Error("index submission failed", "records", len(records), "err", err)
	}
	if err := i.Index.Commit(ctx); err != nil {
		commitErr = err
		logger.Error("index commit failed", "err", err)
	}
	return submitErr, commitErr
}
