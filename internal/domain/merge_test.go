package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = Site{Name: "WashingtonDC", Lat: 38.9215, Lon: -77.0669}

func TestWindow_Contains(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 10, 18, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	w := Window{
		MinDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		LatencyDays: 3,
	}

	base := Observation{
		Time:        time.Date(2023, 6, 1, 15, 0, 0, 0, time.UTC),
		Layer1TopKM: 1.2,
	}

	t.Run("inside window", func(t *testing.T) {
		assert.True(t, w.Contains(base))
	})

	t.Run("before minimum date", func(t *testing.T) {
		obs := base
		obs.Time = time.Date(2019, 12, 31, 23, 0, 0, 0, time.UTC)
		assert.False(t, w.Contains(obs))
	})

	t.Run("inside the model latency gap", func(t *testing.T) {
		obs := base
		obs.Time = time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC)
		assert.False(t, w.Contains(obs))
	})

	t.Run("on the cutoff day", func(t *testing.T) {
		obs := base
		obs.Time = time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)
		assert.True(t, w.Contains(obs))
	})

	t.Run("zero layer height", func(t *testing.T) {
		obs := base
		obs.Layer1TopKM = 0
		assert.False(t, w.Contains(obs))
	})

	t.Run("implausible layer height", func(t *testing.T) {
		obs := base
		obs.Layer1TopKM = 15
		assert.False(t, w.Contains(obs))
	})
}

func TestMergeObservation(t *testing.T) {
	frozen := time.Date(2024, 2, 10, 18, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	obs := Observation{
		Time:        time.Date(2023, 6, 1, 15, 10, 0, 0, time.UTC),
		QualityFlag: 10,
		SurfaceConc: 4.0897e-7, // ~10 ppbv at 298 K, 101325 Pa
		Layer1TopKM: 1.2,
		Layer1Col:   5.5e-5,
	}
	sample := ModelSample{
		SurfaceNO2VV:       2.0e-8,
		SurfacePressure:    101325,
		SurfaceTemperature: 298,
		SurfaceHumidity:    0.005,
		PBLHeight:          850,
		Layer1Col:          6.1e-5,
	}

	rec := MergeObservation(testSite, obs, sample)

	assert.Equal(t, testSite, rec.Site)
	assert.Equal(t, obs.Time, rec.Time)
	assert.Equal(t, 10, rec.QualityFlag)
	assert.Equal(t, obs.SurfaceConc, rec.PandoraSurfaceConc)
	assert.Equal(t, obs.Layer1Col, rec.PandoraLayer1Col)

	assert.InEpsilon(t, 20.0, rec.ModelSurfaceMR, 1e-12)
	assert.InEpsilon(t, 8.1793e-7, rec.ModelSurfaceConc, 1e-4)
	assert.InEpsilon(t, 10.0/0.995, rec.PandoraSurfaceMR, 1e-3)
	assert.Equal(t, 850.0, rec.ModelPBLHeight)
	assert.Equal(t, 6.1e-5, rec.ModelLayer1Col)
	assert.Equal(t, frozen, rec.ProcessedAt)
}

func TestMergeObservation_MissingSample(t *testing.T) {
	obs := Observation{
		Time:        time.Date(2023, 6, 1, 15, 10, 0, 0, time.UTC),
		QualityFlag: 0,
		SurfaceConc: 4.0897e-7,
		Layer1TopKM: 1.2,
		Layer1Col:   5.5e-5,
	}

	rec := MergeObservation(testSite, obs, MissingSample())

	// Native Pandora fields survive; every derived field is an explicit NaN.
	assert.Equal(t, obs.SurfaceConc, rec.PandoraSurfaceConc)
	assert.True(t, math.IsNaN(rec.PandoraSurfaceMR))
	assert.True(t, math.IsNaN(rec.ModelSurfaceMR))
	assert.True(t, math.IsNaN(rec.ModelSurfaceConc))
	assert.True(t, math.IsNaN(rec.ModelLayer1Col))
	assert.True(t, math.IsNaN(rec.ModelPBLHeight))
}

func TestMergedRecord_ID(t *testing.T) {
	rec := MergedRecord{
		Site: testSite,
		Time: time.Date(2023, 6, 1, 15, 10, 0, 0, time.UTC),
	}

	id := rec.ID()
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.ID(), "IDs must be deterministic")
	assert.Contains(t, id, "WashingtonDC-")

	other := rec
	other.Time = other.Time.Add(time.Minute)
	assert.NotEqual(t, id, other.ID())
}
