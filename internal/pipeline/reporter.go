package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/whisperplaud/transcription-worker/internal/domain"
	"github.com/whisperplaud/transcription-worker/internal/observability/metrics"
)

// ProgressPublisher delivers progress events. Satisfied by
// events.Publisher.
type ProgressPublisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// Fixed percentage bands per phase. The schedule is a policy choice; the
// invariants are monotonicity and reaching 100 only at completion.
var phaseStart = map[domain.Phase]int{
	domain.PhaseQueued:       0,
	domain.PhaseDownloading:  0,
	domain.PhaseTranscribing: 10,
	domain.PhaseAligning:     70,
	domain.PhaseDiarizing:    80,
	domain.PhaseCorrecting:   90,
	domain.PhaseUploading:    95,
}

const (
	transcribeBandStart = 10
	transcribeBandEnd   = 70
)

// Reporter owns the percentage-mapping policy for one job. It emits events
// in phase order with monotonically non-decreasing percentages, resets to 0
// on the single terminal failure, and emits nothing after a terminal event.
// Publish failures are swallowed: losing a progress update never fails the
// job.
type Reporter struct {
	publisher ProgressPublisher
	metrics   *metrics.Metrics
	jobID     string

	percent   int
	terminal  bool
	phase     domain.Phase
	phaseFrom time.Time
}

// NewReporter creates a reporter for one job.
func NewReporter(publisher ProgressPublisher, m *metrics.Metrics, jobID string) *Reporter {
	return &Reporter{
		publisher: publisher,
		metrics:   m,
		jobID:     jobID,
		phase:     domain.PhaseQueued,
		phaseFrom: time.Now(),
	}
}

// Enter transitions into a phase and emits a processing event at the
// phase's band start.
func (r *Reporter) Enter(ctx context.Context, phase domain.Phase, message string) {
	if r.terminal {
		return
	}
	r.closePhase(phase)
	r.emit(ctx, domain.StatusProcessing, phase, phaseStart[phase], message)
}

// TranscribeProgress maps the backend's segments-done counter into the
// transcribing band.
func (r *Reporter) TranscribeProgress(ctx context.Context, segmentsDone int) {
	if r.terminal {
		return
	}
	percent := transcribeBandStart + segmentsDone*2
	if percent > transcribeBandEnd {
		percent = transcribeBandEnd
	}
	r.emit(ctx, domain.StatusProcessing, domain.PhaseTranscribing, percent, "Processing audio segments")
}

// Completed emits the terminal success event at exactly 100.
func (r *Reporter) Completed(ctx context.Context) {
	if r.terminal {
		return
	}
	r.closePhase(domain.PhaseCompleted)
	r.terminal = true
	r.percent = 100
	r.publish(ctx, domain.StatusCompleted, domain.PhaseCompleted, 100, "Completed")
}

// Failed emits the terminal failure event at 0 carrying the error text.
func (r *Reporter) Failed(ctx context.Context, message string) {
	if r.terminal {
		return
	}
	r.closePhase(domain.PhaseFailed)
	r.terminal = true
	r.percent = 0
	r.publish(ctx, domain.StatusFailed, domain.PhaseFailed, 0, message)
}

// closePhase records the duration of the phase being left.
func (r *Reporter) closePhase(next domain.Phase) {
	if r.metrics != nil && r.phase != domain.PhaseQueued {
		r.metrics.RecordPhase(string(r.phase), time.Since(r.phaseFrom).Seconds())
	}
	r.phase = next
	r.phaseFrom = time.Now()
}

// emit publishes a non-terminal event, clamping the percentage so it never
// decreases within the job.
func (r *Reporter) emit(ctx context.Context, status domain.Status, phase domain.Phase, percent int, message string) {
	if percent < r.percent {
		percent = r.percent
	}
	r.percent = percent
	r.publish(ctx, status, phase, percent, message)
}

func (r *Reporter) publish(ctx context.Context, status domain.Status, phase domain.Phase, percent int, message string) {
	event := domain.ProgressEvent{
		JobID:     r.jobID,
		Status:    status,
		Progress:  percent,
		Phase:     phase,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		// Best effort: already logged by the publisher.
		log.Debug().Err(err).Str("jobId", r.jobID).Msg("Progress event dropped")
	}
}
