// Package pipeline drives a single job through the transcription state
// machine: download, transcribe, optional alignment and diarization,
// lexical correction, upload.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/whisperplaud/transcription-worker/internal/correction"
	"github.com/whisperplaud/transcription-worker/internal/diarize"
	"github.com/whisperplaud/transcription-worker/internal/domain"
	"github.com/whisperplaud/transcription-worker/internal/observability/logging"
	"github.com/whisperplaud/transcription-worker/internal/observability/metrics"
	"github.com/whisperplaud/transcription-worker/internal/store"
	"github.com/whisperplaud/transcription-worker/internal/whisper"
)

// Orchestrator runs one job at a time through the pipeline. It produces
// exactly one terminal outcome per job and never retries; retry policy
// belongs to the queue layer or an external supervisor.
type Orchestrator struct {
	gateway   store.Gateway
	backend   whisper.Backend
	corrector *correction.Engine
	publisher ProgressPublisher
	metrics   *metrics.Metrics
	language  string
}

// New creates an orchestrator. language is the transcription language hint
// passed to the backend.
func New(gateway store.Gateway, backend whisper.Backend, corrector *correction.Engine, publisher ProgressPublisher, m *metrics.Metrics, language string) *Orchestrator {
	return &Orchestrator{
		gateway:   gateway,
		backend:   backend,
		corrector: corrector,
		publisher: publisher,
		metrics:   m,
		language:  language,
	}
}

// Run drives job through the pipeline. On success it returns the persisted
// transcript; on failure it returns a classified *Error after publishing
// the single terminal failed event. Errors never escape unclassified.
func (o *Orchestrator) Run(ctx context.Context, job domain.Job) (*domain.TranscriptResult, error) {
	reporter := NewReporter(o.publisher, o.metrics, job.JobID)

	// Malformed descriptors produce no side effects beyond the terminal
	// failure event.
	if err := job.Validate(); err != nil {
		perr := failure(FailureMalformedJob, err)
		reporter.Failed(ctx, perr.Error())
		return nil, perr
	}

	logger := logging.WithJob(job.JobID, job.FileID)
	logger.Info().Str("sourceKey", job.SourceKey).Str("backend", o.backend.Name()).Msg("Processing job")

	start := time.Now()
	o.metrics.RecordJobStart()

	result, err := o.run(ctx, job, reporter)
	if err != nil {
		reporter.Failed(ctx, err.Error())
		o.metrics.RecordJobEnd(string(Classify(err)), time.Since(start).Seconds())
		logger.Error().Err(err).Msg("Job failed")
		return nil, err
	}

	reporter.Completed(ctx)
	o.metrics.RecordJobEnd("", time.Since(start).Seconds())
	logger.Info().
		Int("segments", len(result.Segments)).
		Int("corrections", len(result.Corrections)).
		Float64("audioSeconds", result.Duration).
		Float64("processingSeconds", result.ProcessingTimeSec).
		Msg("Job completed")
	return result, nil
}

// run executes the non-terminal phases and returns a classified error on
// the first failure.
func (o *Orchestrator) run(ctx context.Context, job domain.Job, reporter *Reporter) (*domain.TranscriptResult, error) {
	start := time.Now()
	caps := o.backend.Capabilities()

	reporter.Enter(ctx, domain.PhaseDownloading, "Downloading audio file")
	audio, err := o.gateway.Get(ctx, job.SourceKey)
	if err != nil {
		return nil, failuref(FailureDownload, "download %s: %w", job.SourceKey, err)
	}
	if len(audio) == 0 {
		return nil, failuref(FailureDownload, "source audio %s is empty", job.SourceKey)
	}
	o.metrics.RecordDownload(len(audio))

	reporter.Enter(ctx, domain.PhaseTranscribing, "Transcribing audio")
	draft, err := o.backend.Run(ctx, audio, o.language, func(segmentsDone int) {
		reporter.TranscribeProgress(ctx, segmentsDone)
	})
	if err != nil {
		if errors.Is(err, whisper.ErrModelInit) {
			return nil, failure(FailureModelInit, err)
		}
		return nil, failure(FailureTranscription, err)
	}

	if caps.Has(whisper.CapAlignment) {
		reporter.Enter(ctx, domain.PhaseAligning, "Aligning word timestamps")
		stage, ok := o.backend.(whisper.AlignStage)
		if !ok {
			return nil, failuref(FailureTranscription, "backend %s declares alignment without implementing it", o.backend.Name())
		}
		if err := stage.Align(ctx, audio, draft); err != nil {
			return nil, failure(FailureTranscription, err)
		}
	}

	if caps.Has(whisper.CapDiarization) {
		reporter.Enter(ctx, domain.PhaseDiarizing, "Identifying speakers")
		stage, ok := o.backend.(whisper.SpeakerStage)
		if !ok {
			return nil, failuref(FailureTranscription, "backend %s declares diarization without implementing it", o.backend.Name())
		}
		if err := stage.AssignSpeakers(ctx, audio, draft); err != nil {
			return nil, failure(FailureTranscription, err)
		}
	}

	reporter.Enter(ctx, domain.PhaseCorrecting, "Applying lexical corrections")
	result := assemble(draft)
	applied := o.corrector.ApplyResult(result)
	o.metrics.RecordCorrections(len(applied))
	if caps.Has(whisper.CapDiarization) {
		result.Speakers = diarize.SpeakerStats(result.Segments)
	}

	reporter.Enter(ctx, domain.PhaseUploading, "Saving transcript")
	result.ProcessingTimeSec = time.Since(start).Seconds()
	result.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, failuref(FailureUpload, "encode transcript: %w", err)
	}
	key := store.TranscriptKey(job.FileID)
	if err := o.gateway.Put(ctx, key, payload, "application/json"); err != nil {
		return nil, failuref(FailureUpload, "upload %s: %w", key, err)
	}
	o.metrics.RecordUpload(len(payload))
	o.metrics.RecordTranscript(len(result.Segments), result.Duration)

	return result, nil
}

// assemble builds the result document from the backend draft. Segment
// order mirrors the backend's output; correction must not reorder it.
func assemble(draft *whisper.Draft) *domain.TranscriptResult {
	segments := draft.Segments
	if segments == nil {
		// Empty audio is not an error; the document carries an empty list.
		segments = []domain.Segment{}
	}
	return &domain.TranscriptResult{
		Text:                draft.Text,
		Segments:            segments,
		Language:            draft.Language,
		LanguageProbability: draft.LanguageProbability,
		Duration:            draft.Duration,
		Confidence:          draft.Confidence,
		Model:               draft.Model,
	}
}
