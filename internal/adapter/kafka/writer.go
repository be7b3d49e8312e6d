// Package kafka publishes merged records to a sink topic for downstream
// ingestion. The sink is optional and feature-flagged via config.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/pandonia-tools/pandora-cf-merge/internal/config"
	"github.com/pandonia-tools/pandora-cf-merge/internal/domain"
)

// Writer produces merged records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes merged records to the sink topic in a
// single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.MergedRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// payload is the JSON wire form of a merged record. Derived fields are
// pointers so that NaN serializes as null instead of failing to marshal.
type payload struct {
	ID   string      `json:"id"`
	Site domain.Site `json:"site"`
	Time time.Time   `json:"time"`

	QualityFlag        int      `json:"pandora_no2_qval"`
	PandoraSurfaceConc *float64 `json:"pandora_no2_sfcconc"`
	PandoraLayer1TopKM *float64 `json:"pandora_no2_l1hgt"`
	PandoraLayer1Col   *float64 `json:"pandora_no2_l1col"`
	PandoraSurfaceMR   *float64 `json:"pandora_no2_sfcmr"`

	ModelSurfaceMR   *float64 `json:"cf_no2_sfcmr"`
	ModelSurfaceConc *float64 `json:"cf_no2_sfcconc"`
	ModelLayer1Col   *float64 `json:"cf_no2_l1col"`
	ModelPBLHeight   *float64 `json:"cf_no2_pbl"`

	ProcessedAt time.Time `json:"processed_at"`
}

// serializeToMessage marshals a merged record into a Kafka message keyed by
// the deterministic record ID.
func serializeToMessage(rec domain.MergedRecord) (kafkago.Message, error) {
	p := payload{
		ID:   rec.ID(),
		Site: rec.Site,
		Time: rec.Time,

		QualityFlag:        rec.QualityFlag,
		PandoraSurfaceConc: nullable(rec.PandoraSurfaceConc),
		PandoraLayer1TopKM: nullable(rec.PandoraLayer1TopKM),
		PandoraLayer1Col:   nullable(rec.PandoraLayer1Col),
		PandoraSurfaceMR:   nullable(rec.PandoraSurfaceMR),

		ModelSurfaceMR:   nullable(rec.ModelSurfaceMR),
		ModelSurfaceConc: nullable(rec.ModelSurfaceConc),
		ModelLayer1Col:   nullable(rec.ModelLayer1Col),
		ModelPBLHeight:   nullable(rec.ModelPBLHeight),

		ProcessedAt: rec.ProcessedAt,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize merged record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site", Value: []byte(rec.Site.Name)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
