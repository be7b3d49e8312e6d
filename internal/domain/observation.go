package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// Site identifies the Pandora instrument location an observation file belongs
// to. Latitude and longitude are read from the file header.
type Site struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Observation is a single parsed Pandora L2 rnvh3p1-8 data row.
// Immutable once parsed; NaN marks fill values.
type Observation struct {
	Time        time.Time
	QualityFlag int
	SurfaceConc float64 // NO2 surface concentration [mol/m3]
	Layer1TopKM float64 // top height of layer 1 [km]
	Layer1Col   float64 // NO2 partial column in layer 1 [mol/m2]
}

// ModelSample holds the GEOS-CF quantities retrieved for one observation
// timestamp at the site grid point. NaN marks missing values.
type ModelSample struct {
	SurfaceNO2VV       float64 // NO2 volume mixing ratio at the surface [mol/mol]
	SurfacePressure    float64 // PS [Pa]
	SurfaceTemperature float64 // T at the surface level [K]
	SurfaceHumidity    float64 // specific humidity Q at the surface level [kg/kg]
	PBLHeight          float64 // ZPBL [m]
	Layer1Col          float64 // NO2 partial column within the Pandora layer 1 height [mol/m2]
}

// MissingSample returns a ModelSample with every field set to NaN. Used when
// no model data is available for an observation so the row is still emitted
// with explicit missing-value markers.
func MissingSample() ModelSample {
	nan := math.NaN()
	return ModelSample{
		SurfaceNO2VV:       nan,
		SurfacePressure:    nan,
		SurfaceTemperature: nan,
		SurfaceHumidity:    nan,
		PBLHeight:          nan,
		Layer1Col:          nan,
	}
}

// MergedRecord pairs one observation with its GEOS-CF counterparts and the
// derived conversion fields. Created once per observation, never mutated.
type MergedRecord struct {
	Site Site
	Time time.Time

	QualityFlag        int
	PandoraSurfaceConc float64 // as reported [mol/m3]
	PandoraLayer1TopKM float64 // as reported [km]
	PandoraLayer1Col   float64 // as reported [mol/m2]
	PandoraSurfaceMR   float64 // derived dry mixing ratio [ppbv]

	ModelSurfaceMR   float64 // cf_no2_sfcmr [ppbv]
	ModelSurfaceConc float64 // cf_no2_sfcconc [mol/m3]
	ModelLayer1Col   float64 // cf_no2_l1col [mol/m2]
	ModelPBLHeight   float64 // cf_no2_pbl [m]

	ProcessedAt time.Time
}

// ID produces a deterministic identifier from the site and observation time.
// Re-running a merge over the same file yields the same IDs, so downstream
// consumers can upsert idempotently.
func (r MergedRecord) ID() string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", r.Site.Name, r.Site.Lat, r.Site.Lon, r.Time.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if r.Site.Name == "" {
		return short
	}
	return r.Site.Name + "-" + short
}
