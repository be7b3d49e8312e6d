package domain

import "time"

// Layer-1 top heights outside this open interval indicate a failed retrieval
// and are excluded from merging.
const (
	minLayer1TopKM = 0.0
	maxLayer1TopKM = 15.0
)

// Window bounds the observations admitted into a merge run. MinDate excludes
// early records with no model coverage; LatencyDays excludes the most recent
// days for which GEOS-CF output is not yet published.
type Window struct {
	MinDate     time.Time
	LatencyDays int
}

// MaxDate returns the latest admissible observation date: today minus
// LatencyDays, truncated to midnight UTC.
func (w Window) MaxDate() time.Time {
	cutoff := clock.Now().UTC().AddDate(0, 0, -w.LatencyDays)
	return time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether an observation falls inside the merge window and
// carries a usable layer-1 height.
func (w Window) Contains(obs Observation) bool {
	if obs.Time.Before(w.MinDate) || obs.Time.After(w.MaxDate()) {
		return false
	}
	return obs.Layer1TopKM > minLayer1TopKM && obs.Layer1TopKM < maxLayer1TopKM
}

// MergeObservation combines one observation with its model sample into the
// output record, computing the derived conversion fields. A MissingSample
// propagates NaN through every derived field.
func MergeObservation(site Site, obs Observation, sample ModelSample) MergedRecord {
	return MergedRecord{
		Site: site,
		Time: obs.Time,

		QualityFlag:        obs.QualityFlag,
		PandoraSurfaceConc: obs.SurfaceConc,
		PandoraLayer1TopKM: obs.Layer1TopKM,
		PandoraLayer1Col:   obs.Layer1Col,
		PandoraSurfaceMR: DryPPBVFromConc(
			obs.SurfaceConc,
			sample.SurfacePressure,
			sample.SurfaceTemperature,
			sample.SurfaceHumidity,
		),

		ModelSurfaceMR:   PPBVFromVV(sample.SurfaceNO2VV),
		ModelSurfaceConc: ConcFromVV(sample.SurfaceNO2VV, sample.SurfacePressure, sample.SurfaceTemperature),
		ModelLayer1Col:   sample.Layer1Col,
		ModelPBLHeight:   sample.PBLHeight,

		ProcessedAt: clock.Now(),
	}
}
