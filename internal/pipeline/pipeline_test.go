package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
	"github.com/pandonia-tools/pandora-cf-merge/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	site domain.Site
	obs  []domain.Observation
	err  error
}

func (m *mockExtractor) Extract(context.Context) (domain.Site, []domain.Observation, error) {
	return m.site, m.obs, m.err
}

type mockTransformer struct {
	failTimes map[time.Time]bool
}

func (m *mockTransformer) Transform(_ context.Context, site domain.Site, obs domain.Observation) (domain.MergedRecord, error) {
	if m.failTimes[obs.Time] {
		return domain.MergedRecord{}, errors.New("bad observation")
	}
	return domain.MergeObservation(site, obs, domain.ModelSample{
		SurfaceNO2VV:       2e-8,
		SurfacePressure:    101325,
		SurfaceTemperature: 298,
		SurfaceHumidity:    0.005,
		PBLHeight:          850,
		Layer1Col:          6.1e-5,
	}), nil
}

type mockLoader struct {
	batches [][]domain.MergedRecord
	err     error
}

func (m *mockLoader) LoadBatch(_ context.Context, records []domain.MergedRecord) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockLoader) total() int {
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

// --- helpers ---

var testSite = domain.Site{Name: "WashingtonDC", Lat: 38.9215, Lon: -77.0669}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow() domain.Window {
	return domain.Window{
		MinDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		LatencyDays: 3,
	}
}

func makeObservations(n int) []domain.Observation {
	obs := make([]domain.Observation, n)
	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range obs {
		obs[i] = domain.Observation{
			Time:        base.Add(time.Duration(i) * 10 * time.Minute),
			QualityFlag: 10,
			SurfaceConc: 4e-7,
			Layer1TopKM: 1.2,
			Layer1Col:   5.5e-5,
		}
	}
	return obs
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	freezeClock(t)

	ext := &mockExtractor{site: testSite, obs: makeObservations(7)}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, testWindow(), discardLogger(), observability.NewMetricsForTesting(), 3)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 7, ldr.total(), "one output record per admitted observation")
	assert.Len(t, ldr.batches, 3, "7 records in batches of 3")
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, testSite, ldr.batches[0][0].Site)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: errors.New("no such file")}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, testWindow(), discardLogger(), observability.NewMetricsForTesting(), 50)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
	assert.Empty(t, ldr.batches)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadErrorIsFatal(t *testing.T) {
	freezeClock(t)

	ext := &mockExtractor{site: testSite, obs: makeObservations(5)}
	ldr := &mockLoader{err: errors.New("disk full")}
	p := pipeline.New(ext, &mockTransformer{}, ldr, testWindow(), discardLogger(), observability.NewMetricsForTesting(), 50)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPipeline_Run_SkipsFailedTransforms(t *testing.T) {
	freezeClock(t)

	obs := makeObservations(5)
	ext := &mockExtractor{site: testSite, obs: obs}
	tfm := &mockTransformer{failTimes: map[time.Time]bool{obs[1].Time: true, obs[3].Time: true}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, tfm, ldr, testWindow(), discardLogger(), metrics, 50)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 3, ldr.total(), "failed rows are skipped, the rest survive")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RowsSkipped), "skipped transforms are counted")
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RecordsWritten))
}

func TestPipeline_Run_WindowFiltering(t *testing.T) {
	freezeClock(t)

	obs := makeObservations(3)
	obs = append(obs,
		// Before the minimum date.
		domain.Observation{Time: time.Date(2019, 5, 1, 12, 0, 0, 0, time.UTC), Layer1TopKM: 1.2},
		// Inside the model latency gap.
		domain.Observation{Time: time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC), Layer1TopKM: 1.2},
		// Unusable layer height.
		domain.Observation{Time: time.Date(2023, 6, 2, 12, 0, 0, 0, time.UTC), Layer1TopKM: 0},
	)
	ext := &mockExtractor{site: testSite, obs: obs}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, testWindow(), discardLogger(), observability.NewMetricsForTesting(), 50)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 3, ldr.total(), "only in-window observations are merged")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	freezeClock(t)

	ext := &mockExtractor{site: testSite, obs: makeObservations(10)}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, testWindow(), discardLogger(), observability.NewMetricsForTesting(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ldr.batches)
}

func TestPipeline_MultiLoader(t *testing.T) {
	freezeClock(t)

	ext := &mockExtractor{site: testSite, obs: makeObservations(4)}
	first := &mockLoader{}
	second := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, pipeline.MultiLoader{first, second},
		testWindow(), discardLogger(), observability.NewMetricsForTesting(), 50)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 4, first.total())
	assert.Equal(t, 4, second.total())
}
