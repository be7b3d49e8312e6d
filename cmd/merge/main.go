// Command merge converts one Pandora L2 surface NO2 file into a merged
// Pandora+GEOS-CF table. It runs once and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pandonia-tools/pandora-cf-merge/internal/adapter/csvout"
	"github.com/pandonia-tools/pandora-cf-merge/internal/adapter/geoscf"
	"github.com/pandonia-tools/pandora-cf-merge/internal/adapter/httpadapter"
	kafkaadapter "github.com/pandonia-tools/pandora-cf-merge/internal/adapter/kafka"
	"github.com/pandonia-tools/pandora-cf-merge/internal/adapter/pandora"
	"github.com/pandonia-tools/pandora-cf-merge/internal/config"
	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
	"github.com/pandonia-tools/pandora-cf-merge/internal/observability"
	"github.com/pandonia-tools/pandora-cf-merge/internal/pipeline"
)

func main() {
	var (
		input       = flag.String("input", "", "Pandora L2 rnvh3p1-8 input file (required)")
		output      = flag.String("output", "", `output CSV path ("-" for stdout; default derives from -input)`)
		overwrite   = flag.Bool("overwrite", false, "regenerate the output even if it already exists")
		cfTemplate  = flag.String("cf-template", geoscf.DefaultCFTemplate, "path template for GEOS-CF chm/met collections")
		pblTemplate = flag.String("pbl-template", geoscf.DefaultPBLTemplate, "path template for the GEOS-CF PBL collection")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	if *input == "" {
		logger.Error("missing required -input flag")
		flag.Usage()
		os.Exit(2)
	}
	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(*input)
	}
	if outPath != "-" && !*overwrite {
		if _, err := os.Stat(outPath); err == nil {
			logger.Info("output already exists, skipping", "path", outPath)
			return
		}
	}

	metrics := observability.NewMetrics()

	reader := pandora.NewReader(*input, logger, metrics)
	source := geoscf.NewSource(*cfTemplate, *pblTemplate, cfg.ModelCacheSize, logger, metrics)
	transformer := pipeline.NewTransformer(source, logger, metrics)

	csvWriter := csvout.NewWriter(outPath, logger)
	loader := pipeline.MultiLoader{csvWriter}

	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		loader = append(loader, kafkaWriter)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	window := domain.Window{MinDate: cfg.MinDate, LatencyDays: cfg.LatencyDays}
	p := pipeline.New(reader, transformer, loader, window, logger, metrics, cfg.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The metrics server is optional; a plain one-shot run does not need it.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if err := csvWriter.Close(); err != nil {
		logger.Error("csv writer close error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		logger.Error("merge failed", "error", runErr)
		os.Exit(1)
	}
}

// defaultOutputPath derives the merged file name from the input file name:
// the .txt suffix is replaced with +GEOSCF.csv, the published naming
// convention for merged files.
func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(input, ".txt")
	return fmt.Sprintf("%s+GEOSCF.csv", base)
}
