// Package pipeline orchestrates the one-shot extract-transform-load pass over
// a Pandora observation file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
)

// Extractor parses the input file into site metadata and observation rows.
type Extractor interface {
	Extract(ctx context.Context) (domain.Site, []domain.Observation, error)
}

// Transformer merges one observation with its model sample.
type Transformer interface {
	Transform(ctx context.Context, site domain.Site, obs domain.Observation) (domain.MergedRecord, error)
}

// BatchLoader writes merged records to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.MergedRecord) error
}

// MultiLoader fans each batch out to several loaders in order. The first
// failure aborts the batch.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, records []domain.MergedRecord) error {
	for _, l := range m {
		if err := l.LoadBatch(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline runs the extract-transform-load pass once and terminates.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      BatchLoader
	window      domain.Window
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l BatchLoader, window domain.Window, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		window:      window,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has written at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no merged records written yet")
	}
	return nil
}

// Run executes one complete merge pass. Extraction or load failures are
// fatal; per-row transform failures skip the row. There is no retry logic:
// the run either completes or surfaces its first unrecoverable error.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.metrics.MergeRunning.Set(1)
	defer p.metrics.MergeRunning.Set(0)

	site, observations, err := p.extractor.Extract(ctx)
	if err != nil {
		return fmt.Errorf("extract observations: %w", err)
	}
	p.metrics.ObservationsRead.Add(float64(len(observations)))

	admitted := make([]domain.Observation, 0, len(observations))
	for _, obs := range observations {
		if p.window.Contains(obs) {
			admitted = append(admitted, obs)
		}
	}
	p.logger.Info("observations extracted",
		"site", site.Name,
		"total", len(observations),
		"in_window", len(admitted),
	)

	written := 0
	for begin := 0; begin < len(admitted); begin += p.batchSize {
		if err := ctx.Err(); err != nil {
			p.logger.Info("merge interrupted", "reason", err, "records_written", written)
			return err
		}

		end := min(begin+p.batchSize, len(admitted))
		n, err := p.processBatch(ctx, site, admitted[begin:end])
		if err != nil {
			return err
		}
		written += n
	}

	p.logger.Info("merge complete",
		"site", site.Name,
		"records_written", written,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// processBatch transforms one slice of observations and loads the results.
// Returns the number of records written.
func (p *Pipeline) processBatch(ctx context.Context, site domain.Site, batch []domain.Observation) (int, error) {
	batchStart := time.Now()

	records := make([]domain.MergedRecord, 0, len(batch))
	for _, obs := range batch {
		rec, err := p.transformer.Transform(ctx, site, obs)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			p.logger.Warn("transform failed, skipping observation", "time", obs.Time, "error", err)
			p.metrics.RowsSkipped.Inc()
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return 0, nil
	}

	if err := p.loader.LoadBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("load batch: %w", err)
	}

	p.metrics.RecordsWritten.Add(float64(len(records)))
	p.metrics.BatchSize.Observe(float64(len(records)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(batchStart).Seconds())
	p.ready.Store(true)

	return len(records), nil
}
