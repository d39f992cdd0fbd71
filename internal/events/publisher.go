// Package events provides progress event publishing to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/whisperplaud/transcription-worker/internal/domain"
	"github.com/whisperplaud/transcription-worker/internal/observability/metrics"
)

// Publisher publishes job progress events to the progress topic. Delivery
// is best effort: callers treat a publish error as non-fatal.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// New creates a new Kafka progress publisher. With no brokers or when
// disabled, events are logged instead of published.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			topic:   cfg.Topic,
			enabled: false,
			metrics: m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka progress publisher initialized")

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
	}
}

// Publish writes one progress event keyed by job id. The error return is
// informational; the pipeline swallows it because losing a progress update
// must never fail the job.
func (p *Publisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("jobId", event.JobID).Msg("Failed to marshal progress event")
		return err
	}

	log.Debug().
		Str("jobId", event.JobID).
		Str("phase", string(event.Phase)).
		Int("progress", event.Progress).
		RawJSON("payload", payload).
		Msg("Publishing progress event")

	// If Kafka is disabled, just log
	if !p.enabled || p.writer == nil {
		p.metrics.RecordPublish(nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.JobID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("job:progress")},
			{Key: "status", Value: []byte(event.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("jobId", event.JobID).
			Str("topic", p.topic).
			Msg("Failed to write progress event to Kafka")
		p.metrics.RecordPublish(err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing progress writer")
		return err
	}
	return nil
}
