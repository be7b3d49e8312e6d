package pipeline

import (
	"context"
	"log/slog"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
)

// MergeTransformer implements Transformer by sampling the model source and
// applying the domain conversions.
type MergeTransformer struct {
	sampler domain.ModelSampler
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a MergeTransformer.
func NewTransformer(sampler domain.ModelSampler, logger *slog.Logger, metrics *observability.Metrics) *MergeTransformer {
	return &MergeTransformer{
		sampler: sampler,
		logger:  logger,
		metrics: metrics,
	}
}

// Transform merges one observation with its GEOS-CF sample. A sampler failure
// is not fatal: the record is still produced with explicit missing values so
// the output keeps one row per observation.
func (t *MergeTransformer) Transform(ctx context.Context, site domain.Site, obs domain.Observation) (domain.MergedRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.MergedRecord{}, err
	}

	layerTopM := obs.Layer1TopKM * 1000.0

	sample, err := t.sampler.Sample(ctx, obs.Time, site, layerTopM)
	if err != nil {
		if ctx.Err() != nil {
			return domain.MergedRecord{}, err
		}
		t.logger.Warn("model sample unavailable, emitting missing values",
			"time", obs.Time, "error", err)
		t.metrics.ModelSampleErrors.Inc()
		sample = domain.MissingSample()
	}

	return domain.MergeObservation(site, obs, sample), nil
}
