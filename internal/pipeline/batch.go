package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/omr-grader/internal/model"
)

// Recorder persists evaluated sheets. It reports whether the record was new.
type Recorder interface {
	InsertResult(ctx context.Context, rec *model.ScoreRecord) (bool, error)
}

// BatchResult is the outcome of one sheet of a batch.
type BatchResult struct {
	Index  int
	Source string
	Record *model.ScoreRecord

	// Err is set when the sheet could not be evaluated; Record is nil then.
	Err error

	// Stored reports whether the record was written by the Recorder.
	Stored bool
}

// BatchSummary collects the results of a batch in input order.
type BatchSummary struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
	Flagged   int
	Elapsed   time.Duration
}

// BatchProcessor grades many sheets concurrently with one Evaluator.
//
// Sheets share only the evaluator's read-only configuration and key loader.
// A failing, timed-out or panicking sheet is recorded as failed and the
// rest of the batch continues.
type BatchProcessor struct {
	evaluator   *Evaluator
	concurrency int
	timeout     time.Duration
	recorder    Recorder
	logger      *slog.Logger
	mu          sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sheets evaluated at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithSheetTimeout bounds the evaluation of each sheet. Zero disables it.
func WithSheetTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d >= 0 {
			b.timeout = d
		}
	}
}

// WithRecorder stores every evaluated sheet through r.
func WithRecorder(r Recorder) BatchOption {
	return func(b *BatchProcessor) {
		b.recorder = r
	}
}

// NewBatchProcessor creates a BatchProcessor. Concurrency and the per-sheet
// timeout default to the evaluator's batch configuration.
func NewBatchProcessor(evaluator *Evaluator, opts ...BatchOption) *BatchProcessor {
	cfg := evaluator.Config().Batch
	bp := &BatchProcessor{
		evaluator:   evaluator,
		concurrency: max(1, cfg.Concurrency),
		timeout:     cfg.SheetTimeout,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch evaluates every input and returns their results in input
// order. The error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []SheetInput) (*BatchSummary, error) {
	bp.logger.Info("starting batch processing",
		"total_sheets", len(inputs),
		"concurrency", bp.concurrency,
	)
	start := time.Now()
	summary := &BatchSummary{Results: make([]BatchResult, len(inputs))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				bp.record(summary, BatchResult{Index: i, Source: in.Source, Err: ctx.Err()})
				return ctx.Err()
			default:
			}

			res := bp.processOne(ctx, i, in)
			bp.record(summary, res)
			if res.Err != nil {
				bp.logger.Warn("sheet failed", "source", in.Source, "error", res.Err)
			}
			// Per-sheet failures never cancel the rest of the batch.
			return nil
		})
	}

	err := g.Wait()
	summary.Elapsed = time.Since(start)
	bp.logger.Info("batch processing complete",
		"total_sheets", len(inputs),
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"flagged", summary.Flagged,
		"elapsed", summary.Elapsed,
	)
	return summary, err
}

// processOne evaluates a single sheet under its own timeout, turning a panic
// into a failed result.
func (bp *BatchProcessor) processOne(ctx context.Context, i int, in SheetInput) (res BatchResult) {
	res = BatchResult{Index: i, Source: in.Source}
	defer func() {
		if r := recover(); r != nil {
			res.Record = nil
			res.Err = fmt.Errorf("panic while evaluating %s: %v", in.Source, r)
		}
	}()

	if bp.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bp.timeout)
		defer cancel()
	}

	rec, err := bp.evaluator.Evaluate(ctx, in)
	if err != nil {
		res.Err = err
		return res
	}
	res.Record = rec

	if bp.recorder != nil {
		stored, err := bp.recorder.InsertResult(ctx, rec)
		if err != nil {
			res.Err = fmt.Errorf("failed to store result: %w", err)
			return res
		}
		res.Stored = stored
	}
	return res
}

func (bp *BatchProcessor) record(s *BatchSummary, res BatchResult) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	s.Results[res.Index] = res
	switch {
	case res.Err != nil:
		s.Failed++
	case res.Record != nil && res.Record.Flagged:
		s.Succeeded++
		s.Flagged++
	default:
		s.Succeeded++
	}
}
