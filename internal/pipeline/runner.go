// Package pipeline drives batch ingestion: it iterates raw property records
// from JSON sources, transforms and loads each one sequentially, and keeps
// per-run reports for the status API.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/property-etl/internal/loader"
	"github.com/ignite/property-etl/internal/pkg/logger"
	"github.com/ignite/property-etl/internal/store"
	"github.com/ignite/property-etl/internal/transform"
)

// RunReport summarizes one source document's run.
type RunReport struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"success_rate"`

	// Aggregated diagnostics: lenient drops made observable.
	UnmappedFields   int `json:"unmapped_fields"`
	CoercionFailures int `json:"coercion_failures"`
	SkippedEntities  int `json:"skipped_entities"`
}

// Runner processes sources one record at a time. Per-record failures never
// abort a batch; connection-level storage failures halt it immediately.
type Runner struct {
	transformer *transform.Transformer
	loader      *loader.Loader
	tracker     ProgressTracker // optional

	mu      sync.RWMutex
	history []*RunReport
}

// NewRunner creates a Runner. tracker may be nil.
func NewRunner(t *transform.Transformer, l *loader.Loader, tracker ProgressTracker) *Runner {
	return &Runner{transformer: t, loader: l, tracker: tracker}
}

// RunAll processes every source in order, collecting one report per source.
// It stops early only when the store becomes unavailable; a bad source
// document is logged and skipped.
func (r *Runner) RunAll(ctx context.Context, sources []Source) ([]*RunReport, error) {
	var reports []*RunReport
	for _, src := range sources {
		report, err := r.Run(ctx, src)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Run processes one source document and returns its report. An unreadable
// or malformed source is logged and yields no report; the returned error is
// non-nil only for an unavailable store, which halts the batch.
func (r *Runner) Run(ctx context.Context, src Source) (*RunReport, error) {
	records, err := src.Records(ctx)
	if err != nil {
		logger.Error("skipping unreadable source", "source", src.Name(), "error", err)
		return nil, nil
	}

	report := &RunReport{
		RunID:     uuid.New().String(),
		Source:    src.Name(),
		StartedAt: time.Now(),
		Total:     len(records),
	}
	logger.Info("starting pipeline run",
		"run_id", report.RunID, "source", report.Source, "records", report.Total)

	if r.tracker != nil {
		r.tracker.Start(ctx, report.RunID, report.Source, report.Total)
	}

	progressInterval := 10
	if report.Total > 1000 {
		progressInterval = 100
	}

	for i, raw := range records {
		if err := r.processRecord(ctx, raw, report); err != nil {
			// Connection-level failures are fatal to the run.
			r.finish(ctx, report)
			return report, err
		}

		processed := i + 1
		if processed%progressInterval == 0 || processed == report.Total {
			logger.Info("progress",
				"run_id", report.RunID,
				"processed", processed,
				"total", report.Total,
				"pct", fmt.Sprintf("%.1f", float64(processed)/float64(report.Total)*100))
			if r.tracker != nil {
				r.tracker.Update(ctx, report.RunID, processed, report.Failed)
			}
		}
	}

	r.finish(ctx, report)
	logger.Info("pipeline run complete",
		"run_id", report.RunID,
		"source", report.Source,
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"success_rate", fmt.Sprintf("%.1f", report.SuccessRate),
		"unmapped_fields", report.UnmappedFields,
		"coercion_failures", report.CoercionFailures,
		"skipped_entities", report.SkippedEntities)
	return report, nil
}

// processRecord transforms and loads one raw record, updating the report
// tallies. Only storage-unavailable errors propagate.
func (r *Runner) processRecord(ctx context.Context, raw map[string]interface{}, report *RunReport) error {
	transformed, stats := r.transformer.Transform(raw)
	report.UnmappedFields += stats.UnmappedFields
	report.CoercionFailures += stats.CoercionFailures

	entities := loader.Entities{
		Valuations:     r.transformer.ExtractValuations(raw),
		RehabEstimates: r.transformer.ExtractRehabEstimates(raw),
		HOAEntries:     r.transformer.ExtractHOAData(raw),
	}

	result, err := r.loader.Load(ctx, transformed, entities)
	if err != nil {
		if store.IsUnavailable(err) {
			logger.Error("storage unavailable, aborting batch",
				"run_id", report.RunID, "error", err)
			report.Failed++
			return fmt.Errorf("storage unavailable: %w", err)
		}
		report.Failed++
		logger.Warn("record failed", "run_id", report.RunID, "error", err)
		return nil
	}

	report.Succeeded++
	report.SkippedEntities += result.SkippedEntities
	logger.Debug("record loaded",
		"run_id", report.RunID, "property_id", result.PropertyID)
	return nil
}

func (r *Runner) finish(ctx context.Context, report *RunReport) {
	report.FinishedAt = time.Now()
	if report.Total > 0 {
		report.SuccessRate = float64(report.Succeeded) / float64(report.Total) * 100
	}
	if r.tracker != nil {
		r.tracker.Finish(ctx, report.RunID, report.Succeeded, report.Failed)
	}

	r.mu.Lock()
	r.history = append(r.history, report)
	r.mu.Unlock()
}

// LastReport returns the most recent run report, or nil before any run.
func (r *Runner) LastReport() *RunReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

// History returns all run reports, oldest first.
func (r *Runner) History() []*RunReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RunReport, len(r.history))
	copy(out, r.history)
	return out
}
