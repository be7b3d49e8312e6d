// Package csvout writes merged records as a delimited table, matching the
// column layout of the published merged Pandora+GEOS-CF files.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
)

// dateLayout matches the merged file convention (minute resolution).
const dateLayout = "2006-01-02 15:04"

var header = []string{
	"date",
	"pandora_no2_qval",
	"pandora_no2_sfcconc",
	"pandora_no2_l1hgt",
	"pandora_no2_l1col",
	"pandora_no2_sfcmr",
	"cf_no2_sfcmr",
	"cf_no2_sfcconc",
	"cf_no2_l1col",
	"cf_no2_pbl",
	"lat",
	"lon",
}

// Writer appends merged records to a CSV file, or to stdout when the path is
// "-". It implements pipeline.BatchLoader. The file is created lazily on the
// first batch so that a run which fails during extraction leaves nothing
// behind.
type Writer struct {
	path   string
	logger *slog.Logger

	out io.Writer
	f   *os.File
	w   *csv.Writer
}

// NewWriter creates a CSV writer for the given path ("-" for stdout).
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// LoadBatch writes one batch of merged records, emitting the header first on
// the initial call.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.MergedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if w.w == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	for _, rec := range records {
		if err := w.w.Write(formatRecord(rec)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file. Closing a
// writer that never received a batch is a no-op.
func (w *Writer) Close() error {
	if w.w == nil {
		return nil
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	if w.f != nil {
		return w.f.Close()
	}
	return nil
}

func (w *Writer) open() error {
	if w.path == "-" {
		w.out = os.Stdout
	} else {
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		w.f = f
		w.out = f
		w.logger.Info("writing merged records", "path", w.path)
	}
	w.w = csv.NewWriter(w.out)
	if err := w.w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

func formatRecord(r domain.MergedRecord) []string {
	return []string{
		r.Time.UTC().Format(dateLayout),
		strconv.Itoa(r.QualityFlag),
		formatFloat(r.PandoraSurfaceConc),
		formatFloat(r.PandoraLayer1TopKM),
		formatFloat(r.PandoraLayer1Col),
		formatFloat(r.PandoraSurfaceMR),
		formatFloat(r.ModelSurfaceMR),
		formatFloat(r.ModelSurfaceConc),
		formatFloat(r.ModelLayer1Col),
		formatFloat(r.ModelPBLHeight),
		formatFloat(r.Site.Lat),
		formatFloat(r.Site.Lon),
	}
}

// formatFloat renders NaN as an empty cell, the conventional missing-value
// rendering in the merged files.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
