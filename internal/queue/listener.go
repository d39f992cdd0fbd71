package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/whisperplaud/transcription-worker/internal/domain"
	"github.com/whisperplaud/transcription-worker/internal/observability/logging"
)

const maxBackoff = 30 * time.Second

// Runner executes a single transcription job end to end.
type Runner interface {
	Run(ctx context.Context, job domain.Job) (*domain.TranscriptResult, error)
}

// source abstracts the Kafka reader for tests.
type source interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Config holds job queue consumer settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Listener consumes job descriptors from the queue and hands each one to
// the runner. Jobs are processed one at a time per listener instance.
type Listener struct {
	source     source
	runner     Runner
	instanceID string
	log        zerolog.Logger
	failures   int
}

// NewListener creates a listener backed by a Kafka consumer group reader.
func NewListener(cfg Config, runner Runner) *Listener {
	instanceID := uuid.New().String()
	logger := logging.WithComponent("queue.listener").With().
		Str("instanceId", instanceID).Logger()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Str("topic", cfg.Topic).Msgf("reader: "+msg, args...)
		}),
	})

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("groupId", cfg.GroupID).
		Msg("Job queue listener initialized")

	return &Listener{
		source:     reader,
		runner:     runner,
		instanceID: instanceID,
		log:        logger,
	}
}

// Listen blocks, consuming and running jobs until ctx is cancelled.
// Job failures never stop the loop; malformed payloads are dropped.
func (l *Listener) Listen(ctx context.Context) error {
	l.log.Info().Msg("Waiting for jobs")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := l.source.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if waitErr := l.backoff(ctx, err); waitErr != nil {
				return waitErr
			}
			continue
		}
		l.failures = 0

		var job domain.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			l.log.Warn().
				Err(err).
				Int64("offset", msg.Offset).
				Msg("Dropping undecodable job payload")
			continue
		}

		// Run classifies and reports its own failures; a failed job only
		// gets logged here.
		if _, err := l.runner.Run(ctx, job); err != nil {
			l.log.Error().
				Err(err).
				Str("jobId", job.JobID).
				Msg("Job failed")
		}
	}
}

func (l *Listener) backoff(ctx context.Context, err error) error {
	l.failures++
	if l.failures <= 3 {
		l.log.Error().Err(err).Int("failures", l.failures).Msg("Queue read error")
	}

	wait := time.Duration(l.failures) * time.Second
	if wait > maxBackoff {
		wait = maxBackoff
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// InstanceID identifies this listener in logs and diagnostics.
func (l *Listener) InstanceID() string { return l.instanceID }

// Close shuts down the underlying reader.
func (l *Listener) Close() error {
	l.log.Info().Msg("Job queue listener closing")
	return l.source.Close()
}
