package domain

import (
	"context"
	"time"
)

// ModelSampler retrieves GEOS-CF quantities for one observation time at a
// site. layerTopM is the Pandora layer-1 top height in meters, used to bound
// the partial-column integration.
type ModelSampler interface {
	Sample(ctx context.Context, ts time.Time, site Site, layerTopM float64) (ModelSample, error)
}
