package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// recordPayload is the JSON shape published to Kafka. Field names are stable;
// downstream compliance consumers deserialize by name.
type recordPayload struct {
	ID                 string `json:"id"`
	SessionID          string `json:"sessionId"`
	OCRConfidence      *int   `json:"ocrConfidence"`
	DocumentValidation *int   `json:"documentValidation"`
	LivenessScore      *int   `json:"livenessScore"`
	FaceMatchScore     *int   `json:"faceMatchScore"`
	Verified           bool   `json:"verified"`
	Token              *string `json:"token"`
	Reason             string `json:"reason,omitempty"`
	Timestamp          string `json:"timestamp"`
}

// Publisher fans audit records out to a Kafka topic for downstream
// compliance consumers. The store remains the durability point; publishing
// is best-effort and a nil Publisher is a no-op.
type Publisher struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// NewPublisher connects a Kafka producer. Call Close on shutdown.
func NewPublisher(brokers []string, topic string, log *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, log: log}, nil
}

// Publish serializes the record and produces it keyed by session ID, with a
// short timeout so a slow broker cannot stall the pipeline.
func (p *Publisher) Publish(ctx context.Context, record Record) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(recordPayload{
		ID:                 uuid.UUID(record.ID).String(),
		SessionID:          record.SessionID.String(),
		OCRConfidence:      record.OCRConfidence,
		DocumentValidation: record.DocumentValidation,
		LivenessScore:      record.LivenessScore,
		FaceMatchScore:     record.FaceMatchScore,
		Verified:           record.Verified,
		Token:              record.Token,
		Reason:             record.Reason,
		Timestamp:          record.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	produceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := p.client.ProduceSync(produceCtx, &kgo.Record{
		Key:   []byte(record.SessionID.String()),
		Value: payload,
	})
	if err := result.FirstErr(); err != nil {
		p.log.Warn("audit publish failed",
			slog.String("session_id", record.SessionID.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes and shuts down the producer. Safe on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}
