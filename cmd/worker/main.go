package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/whisperplaud/transcription-worker/internal/align"
	"github.com/whisperplaud/transcription-worker/internal/config"
	"github.com/whisperplaud/transcription-worker/internal/correction"
	"github.com/whisperplaud/transcription-worker/internal/diarize"
	"github.com/whisperplaud/transcription-worker/internal/events"
	"github.com/whisperplaud/transcription-worker/internal/observability"
	"github.com/whisperplaud/transcription-worker/internal/observability/logging"
	"github.com/whisperplaud/transcription-worker/internal/observability/metrics"
	"github.com/whisperplaud/transcription-worker/internal/pipeline"
	"github.com/whisperplaud/transcription-worker/internal/queue"
	"github.com/whisperplaud/transcription-worker/internal/store"
	"github.com/whisperplaud/transcription-worker/internal/whisper"
	"github.com/whisperplaud/transcription-worker/internal/whisper/fasterwhisper"
)

func main() {
	// Optional; production sets real environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logCfg.Format = cfg.Observability.LogFormat
	logging.Init(logCfg)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("mode", cfg.Whisper.Mode).
		Str("model", cfg.Whisper.Model).
		Msg("Starting transcription worker")

	metricsServer := observability.NewServer(cfg.Observability.MetricsAddr)
	metricsServer.Start()

	publisher := events.New(&events.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ProgressTopic,
		Enabled: cfg.Kafka.ProgressEnabled,
	})
	defer publisher.Close()

	gateway, err := newGateway(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Object store initialization failed")
	}

	corrector, err := newCorrector(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Correction.DictionaryPath).Msg("Dictionary load failed")
	}
	log.Info().Int("entries", corrector.Size()).Msg("Correction dictionary loaded")

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Backend initialization failed")
	}

	orchestrator := pipeline.New(gateway, backend, corrector, publisher, metrics.DefaultMetrics, cfg.Whisper.Language)

	listener := queue.NewListener(queue.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.JobsTopic,
		GroupID: cfg.Kafka.GroupID,
	}, orchestrator)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsServer.SetReady(true)
	if err := listener.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Listener stopped")
	}

	log.Info().Msg("Shutting down")
	metricsServer.SetReady(false)
	if err := listener.Close(); err != nil {
		log.Error().Err(err).Msg("Listener close failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics server shutdown failed")
	}
}

func newGateway(cfg *config.Config) (store.Gateway, error) {
	switch cfg.Store.Driver {
	case "filesystem":
		return store.NewFSGateway(cfg.Store.RootDir)
	case "s3":
		return store.NewS3Gateway(store.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
	default:
		return nil, errors.New("unknown store driver: " + cfg.Store.Driver)
	}
}

func newCorrector(cfg *config.Config) (*correction.Engine, error) {
	if cfg.Correction.DictionaryPath == "" {
		return correction.New(correction.DefaultDictionary()), nil
	}
	entries, err := correction.LoadDictionary(cfg.Correction.DictionaryPath)
	if err != nil {
		return nil, err
	}
	return correction.New(entries), nil
}

func newBackend(cfg *config.Config) (whisper.Backend, error) {
	client := fasterwhisper.NewClient(fasterwhisper.Config{
		BaseURL: cfg.Whisper.SidecarURL,
		Timeout: cfg.Whisper.Timeout,
	})
	cache := whisper.NewCache(cfg.Whisper.Device, client.Load)
	cache.Instrument(metrics.DefaultMetrics)

	var aligner whisper.Aligner
	var diarizer whisper.Diarizer
	switch cfg.Whisper.Mode {
	case whisper.ModeAligned:
		ac := align.NewClient(align.Config{
			BaseURL: cfg.Align.URL,
			Timeout: cfg.Align.Timeout,
		})
		probeSidecar("align", cfg.Align.URL, ac.IsAvailable)
		aligner = ac
	case whisper.ModeDiarized:
		ac := align.NewClient(align.Config{
			BaseURL: cfg.Align.URL,
			Timeout: cfg.Align.Timeout,
		})
		probeSidecar("align", cfg.Align.URL, ac.IsAvailable)
		dc := diarize.NewPyannoteClient(diarize.PyannoteConfig{
			BaseURL: cfg.Diarize.URL,
			Timeout: cfg.Diarize.Timeout,
		})
		probeSidecar("pyannote", cfg.Diarize.URL, dc.IsAvailable)
		aligner = ac
		diarizer = dc
	}

	return whisper.NewBackend(cfg.Whisper.Mode, cache, cfg.Whisper.Model, aligner, diarizer)
}

// probeSidecar warns when an optional stage service is unreachable at
// startup. Jobs that need it will fail until it comes up.
func probeSidecar(name, url string, available func(context.Context) bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !available(ctx) {
		log.Warn().Str("sidecar", name).Str("url", url).Msg("Sidecar unreachable at startup")
	}
}
