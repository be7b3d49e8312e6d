// Package pandora parses Pandora Global Network L2 rnvh3p1-8 observation
// files. See the domain package documentation for the format conventions.
package pandora

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
)

// 0-based field indices within a data row (1-based columns 1, 53, 56, 68, 69).
const (
	fieldTimestamp   = 0
	fieldQualityFlag = 52
	fieldSurfaceConc = 55
	fieldLayer1Top   = 67
	fieldLayer1Col   = 68

	minFields = 69
)

// fillThreshold: published files use -9e99 as the missing-value sentinel.
const fillThreshold = -9e98

// Reader parses one Pandora L2 file. It implements pipeline.Extractor.
type Reader struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a Reader for the given file path.
func NewReader(path string, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{path: path, logger: logger, metrics: metrics}
}

// Extract parses the file into site metadata and observation rows. Malformed
// data rows are skipped with a warning; an unreadable file or a header without
// location coordinates is an error.
func (r *Reader) Extract(ctx context.Context) (domain.Site, []domain.Observation, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.Site{}, nil, fmt.Errorf("open pandora file: %w", err)
	}
	defer f.Close()

	site := domain.Site{
		Name: strings.TrimSuffix(filepath.Base(r.path), ".txt"),
		Lat:  math.NaN(),
		Lon:  math.NaN(),
	}

	var observations []domain.Observation
	separators := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return domain.Site{}, nil, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "----") {
			separators++
			continue
		}

		// Header block: instrument metadata, then column descriptions.
		if separators < 2 {
			r.parseHeaderLine(line, &site)
			continue
		}

		obs, ok := r.parseDataRow(line, lineNo)
		if !ok {
			r.metrics.RowsSkipped.Inc()
			continue
		}
		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return domain.Site{}, nil, fmt.Errorf("read pandora file: %w", err)
	}

	if math.IsNaN(site.Lat) || math.IsNaN(site.Lon) {
		return domain.Site{}, nil, fmt.Errorf("pandora header missing location coordinates: %s", r.path)
	}

	return site, observations, nil
}

// parseHeaderLine picks the site metadata out of a "key: value" header line.
func (r *Reader) parseHeaderLine(line string, site *domain.Site) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return
	}
	value = strings.TrimSpace(value)

	switch {
	case strings.HasPrefix(key, "Short location name"):
		if value != "" {
			site.Name = value
		}
	case strings.HasPrefix(key, "Location latitude"):
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			site.Lat = v
		}
	case strings.HasPrefix(key, "Location longitude"):
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			site.Lon = v
		}
	}
}

// parseDataRow parses one space-delimited data row. Returns false when the
// row cannot be interpreted.
func (r *Reader) parseDataRow(line string, lineNo int) (domain.Observation, bool) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		r.logger.Warn("skipping short data row", "line", lineNo, "fields", len(fields))
		return domain.Observation{}, false
	}

	ts, err := parseTimestamp(fields[fieldTimestamp])
	if err != nil {
		r.logger.Warn("skipping row with bad timestamp", "line", lineNo, "value", fields[fieldTimestamp], "error", err)
		return domain.Observation{}, false
	}

	qual, err := strconv.Atoi(fields[fieldQualityFlag])
	if err != nil {
		r.logger.Warn("skipping row with bad quality flag", "line", lineNo, "value", fields[fieldQualityFlag], "error", err)
		return domain.Observation{}, false
	}

	conc, err := parseValue(fields[fieldSurfaceConc])
	if err != nil {
		r.logger.Warn("skipping row with bad surface concentration", "line", lineNo, "error", err)
		return domain.Observation{}, false
	}
	l1top, err := parseValue(fields[fieldLayer1Top])
	if err != nil {
		r.logger.Warn("skipping row with bad layer height", "line", lineNo, "error", err)
		return domain.Observation{}, false
	}
	l1col, err := parseValue(fields[fieldLayer1Col])
	if err != nil {
		r.logger.Warn("skipping row with bad layer column", "line", lineNo, "error", err)
		return domain.Observation{}, false
	}

	return domain.Observation{
		Time:        ts,
		QualityFlag: qual,
		SurfaceConc: conc,
		Layer1TopKM: l1top,
		Layer1Col:   l1col,
	}, true
}

// parseValue parses a float field, mapping fill values to NaN.
func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v <= fillThreshold {
		return math.NaN(), nil
	}
	return v, nil
}

// parseTimestamp parses the Pandora UTC timestamp format "yyyymmddThhmmss.fz",
// where the fractional seconds carry a variable number of digits and the
// trailing zone letter may be either case.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimRight(s, "zZ")

	base, frac, hasFrac := strings.Cut(s, ".")
	ts, err := time.Parse("20060102T150405", base)
	if err != nil {
		return time.Time{}, err
	}
	if !hasFrac {
		return ts, nil
	}

	f, err := strconv.ParseFloat("0."+frac, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("fractional seconds: %w", err)
	}
	return ts.Add(time.Duration(math.Round(f * float64(time.Second)))), nil
}
