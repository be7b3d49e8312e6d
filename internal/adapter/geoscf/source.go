package geoscf

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
)

// chmData and metData hold the values extracted at the site grid point from
// one collection file. Profiles are ordered surface-up (GEOS-CF stores level
// 72 at the surface).
type chmData struct {
	no2 []float64 // [mol/mol]
}

type metData struct {
	ps   float64   // [Pa]
	tsfc float64   // [K]
	delp []float64 // [Pa]
	zl   []float64 // [m]
	q    []float64 // [kg/kg]
}

// Source implements domain.ModelSampler over local GEOS-CF NetCDF files.
type Source struct {
	cfTemplate  PathTemplate
	pblTemplate PathTemplate
	cache       *lruCache
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewSource creates a Source. cacheSize bounds the number of per-file site
// extracts kept in memory; observations are usually time-ordered, so a small
// cache already eliminates nearly all rereads.
func NewSource(cfTemplate, pblTemplate string, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Source {
	return &Source{
		cfTemplate:  PathTemplate(cfTemplate),
		pblTemplate: PathTemplate(pblTemplate),
		cache:       newLRUCache(cacheSize),
		logger:      logger,
		metrics:     metrics,
	}
}

// Sample retrieves the GEOS-CF quantities for one observation. The chm and
// met collections are matched on the rounded hour; the time-averaged pbl
// collection uses the unrounded observation time.
func (s *Source) Sample(ctx context.Context, ts time.Time, site domain.Site, layerTopM float64) (domain.ModelSample, error) {
	start := time.Now()
	defer func() {
		s.metrics.SampleDuration.Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return domain.ModelSample{}, err
	}

	hour := ts.Round(time.Hour)

	chm, err := s.chmAt(hour, site)
	if err != nil {
		return domain.ModelSample{}, err
	}
	met, err := s.metAt(hour, site)
	if err != nil {
		return domain.ModelSample{}, err
	}
	pbl, err := s.pblAt(ts, site)
	if err != nil {
		return domain.ModelSample{}, err
	}

	sample := domain.ModelSample{
		SurfaceNO2VV:       chm.no2[0],
		SurfacePressure:    met.ps,
		SurfaceTemperature: met.tsfc,
		SurfaceHumidity:    met.q[0],
		PBLHeight:          pbl,
	}

	col, ok := domain.PartialColumn(domain.ColumnProfile{
		NO2:       chm.no2,
		DelP:      met.delp,
		MidHeight: met.zl,
		Humidity:  met.q,
	}, layerTopM)
	if !ok {
		s.logger.Warn("layer height above model column, using full column",
			"time", ts, "height_m", layerTopM)
	}
	sample.Layer1Col = col

	return sample, nil
}

func (s *Source) chmAt(hour time.Time, site domain.Site) (chmData, error) {
	path := s.cfTemplate.Expand(hour, "chm")
	key := cacheKey("chm", path)
	if v, ok := s.cached(key); ok {
		return v.(chmData), nil
	}

	var d chmData
	err := s.withFile(path, "chm", site, func(g api.Group, iLat, iLon int) error {
		no2, err := profileAt(g, "NO2", iLat, iLon)
		if err != nil {
			return err
		}
		d = chmData{no2: no2}
		return nil
	})
	if err != nil {
		return chmData{}, err
	}
	s.cache.put(key, d)
	return d, nil
}

func (s *Source) metAt(hour time.Time, site domain.Site) (metData, error) {
	path := s.cfTemplate.Expand(hour, "met")
	key := cacheKey("met", path)
	if v, ok := s.cached(key); ok {
		return v.(metData), nil
	}

	var d metData
	err := s.withFile(path, "met", site, func(g api.Group, iLat, iLon int) error {
		ps, err := scalarAt(g, "PS", iLat, iLon)
		if err != nil {
			return err
		}
		t, err := profileAt(g, "T", iLat, iLon)
		if err != nil {
			return err
		}
		delp, err := profileAt(g, "DELP", iLat, iLon)
		if err != nil {
			return err
		}
		zl, err := profileAt(g, "ZL", iLat, iLon)
		if err != nil {
			return err
		}
		q, err := profileAt(g, "Q", iLat, iLon)
		if err != nil {
			return err
		}
		d = metData{ps: ps, tsfc: t[0], delp: delp, zl: zl, q: q}
		return nil
	})
	if err != nil {
		return metData{}, err
	}
	s.cache.put(key, d)
	return d, nil
}

func (s *Source) pblAt(ts time.Time, site domain.Site) (float64, error) {
	path := s.pblTemplate.Expand(ts, "")
	key := cacheKey("pbl", path)
	if v, ok := s.cached(key); ok {
		return v.(float64), nil
	}

	var zpbl float64
	err := s.withFile(path, "pbl", site, func(g api.Group, iLat, iLon int) error {
		var err error
		zpbl, err = scalarAt(g, "ZPBL", iLat, iLon)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.put(key, zpbl)
	return zpbl, nil
}

// cacheKey namespaces cache entries by collection. Collections may expand to
// the same path (a template without the <col> placeholder), and their cached
// extract types differ.
func cacheKey(collection, path string) string {
	return collection + "|" + path
}

func (s *Source) cached(key string) (any, bool) {
	v, ok := s.cache.get(key)
	if ok {
		s.metrics.ModelCache.WithLabelValues("hit").Inc()
	} else {
		s.metrics.ModelCache.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// withFile opens one collection file, locates the site grid point, and hands
// the open group to extract. The file is closed before returning; only the
// extracted values are retained.
func (s *Source) withFile(path, collection string, site domain.Site, extract func(g api.Group, iLat, iLon int) error) error {
	s.metrics.ModelFileReads.WithLabelValues(collection).Inc()
	s.logger.Debug("reading model file", "collection", collection, "path", path)

	g, err := netcdf.Open(path)
	if err != nil {
		return fmt.Errorf("open %s collection %s: %w", collection, path, err)
	}
	defer g.Close()

	lats, err := coordValues(g, "lat")
	if err != nil {
		return fmt.Errorf("%s collection: %w", collection, err)
	}
	lons, err := coordValues(g, "lon")
	if err != nil {
		return fmt.Errorf("%s collection: %w", collection, err)
	}

	iLat, err := nearestIndex(lats, site.Lat)
	if err != nil {
		return fmt.Errorf("%s collection lat: %w", collection, err)
	}
	iLon, err := nearestIndex(lons, site.Lon)
	if err != nil {
		return fmt.Errorf("%s collection lon: %w", collection, err)
	}

	if err := extract(g, iLat, iLon); err != nil {
		return fmt.Errorf("%s collection %s: %w", collection, path, err)
	}
	return nil
}

// coordValues reads a 1-D coordinate variable as float64.
func coordValues(g api.Group, name string) ([]float64, error) {
	vg, err := g.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", name, err)
	}
	switch vv := v.(type) {
	case []float64:
		return vv, nil
	case []float32:
		out := make([]float64, len(vv))
		for i, f := range vv {
			out[i] = float64(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("coordinate %s: unexpected type %T", name, v)
	}
}

// nearestIndex returns the index of the coordinate closest to target.
func nearestIndex(coords []float64, target float64) (int, error) {
	if len(coords) == 0 {
		return 0, fmt.Errorf("empty coordinate axis")
	}
	best := 0
	bestDist := dist(coords[0], target)
	for i := 1; i < len(coords); i++ {
		if d := dist(coords[i], target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

func dist(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// profileAt extracts a surface-up vertical profile from a [time][lev][lat][lon]
// variable at the given grid point. GEOS-CF stores the surface at the last
// level index, so the levels are reversed on extraction.
func profileAt(g api.Group, name string, iLat, iLon int) ([]float64, error) {
	vg, err := g.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return nil, fmt.Errorf("variable %s: empty time dimension", name)
	}
	levels := rv.Index(0)
	if levels.Kind() != reflect.Slice || levels.Len() == 0 {
		return nil, fmt.Errorf("variable %s: empty level dimension", name)
	}

	nlev := levels.Len()
	prof := make([]float64, 0, nlev)
	for k := nlev - 1; k >= 0; k-- {
		val, err := floatAt(levels.Index(k), iLat, iLon)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		prof = append(prof, val)
	}
	return prof, nil
}

// scalarAt extracts a single value from a [time][lat][lon] variable.
func scalarAt(g api.Group, name string, iLat, iLon int) (float64, error) {
	vg, err := g.GetVarGetter(name)
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", name, err)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return 0, fmt.Errorf("variable %s: empty time dimension", name)
	}
	val, err := floatAt(rv.Index(0), iLat, iLon)
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", name, err)
	}
	return val, nil
}

// floatAt walks the remaining slice dimensions of a value produced by the
// NetCDF reader and converts the leaf to float64.
func floatAt(rv reflect.Value, idx ...int) (float64, error) {
	for _, i := range idx {
		if rv.Kind() != reflect.Slice {
			return 0, fmt.Errorf("expected slice dimension, got %s", rv.Kind())
		}
		if i >= rv.Len() {
			return 0, fmt.Errorf("index %d out of range (len %d)", i, rv.Len())
		}
		rv = rv.Index(i)
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("expected float leaf, got %s", rv.Kind())
	}
}
