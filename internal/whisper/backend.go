// Package whisper defines the capability-polymorphic transcription backend
// abstraction and the lazy engine cache shared across jobs.
package whisper

import (
	"context"
	"errors"
	"fmt"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

// Capability describes which optional pipeline stages a backend supports.
type Capability uint8

const (
	// CapSegments is segment-level transcription with confidence. Every
	// backend has it.
	CapSegments Capability = 1 << iota
	// CapAlignment is a dedicated word re-alignment pass keyed by the
	// detected language.
	CapAlignment
	// CapDiarization is per-word speaker attribution.
	CapDiarization
)

// Has reports whether c includes all bits of other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Draft is the backend output before lexical correction.
type Draft struct {
	Text                string
	Segments            []domain.Segment
	Language            string
	LanguageProbability float64
	Duration            float64
	Confidence          float64
	Model               domain.ModelInfo
}

// ProgressSink receives a monotonically increasing count of segments
// produced so far. The percentage mapping is owned by the caller.
type ProgressSink func(segmentsDone int)

// Backend converts raw audio bytes into a draft transcript. The orchestrator
// inspects Capabilities before attempting the optional stage interfaces.
type Backend interface {
	Name() string
	Capabilities() Capability

	// Run performs the transcription stage. Language is a hint; the draft
	// carries the detected language.
	Run(ctx context.Context, audio []byte, language string, sink ProgressSink) (*Draft, error)
}

// AlignStage is implemented by backends declaring CapAlignment.
type AlignStage interface {
	// Align re-times the draft's words against the audio using the
	// detected language.
	Align(ctx context.Context, audio []byte, draft *Draft) error
}

// SpeakerStage is implemented by backends declaring CapDiarization.
type SpeakerStage interface {
	// AssignSpeakers attaches a speaker label to every word of the draft.
	AssignSpeakers(ctx context.Context, audio []byte, draft *Draft) error
}

// ErrModelInit marks failures to load the underlying model. Fatal to the
// triggering job, not to the process.
var ErrModelInit = errors.New("model initialization failed")

// Engine is a loaded speech model. Implementations wrap a concrete runtime
// (HTTP sidecar, in-process bindings, test double).
type Engine interface {
	// Info identifies the model, including the device actually in use.
	Info() domain.ModelInfo

	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions, sink ProgressSink) (*Draft, error)
}

// TranscribeOptions tunes a single transcription call.
type TranscribeOptions struct {
	Language       string
	WordTimestamps bool
	VADFilter      bool
}

// Backend mode names recognized by NewBackend.
const (
	ModeBasic    = "basic"
	ModeAligned  = "aligned"
	ModeDiarized = "diarized"
)

// NewBackend builds the backend variant for the configured mode.
func NewBackend(mode string, cache *Cache, model string, aligner Aligner, diarizer Diarizer) (Backend, error) {
	switch mode {
	case ModeBasic:
		return NewBasic(cache, model), nil
	case ModeAligned:
		if aligner == nil {
			return nil, fmt.Errorf("mode %q requires an alignment service", mode)
		}
		return NewAligned(cache, model, aligner), nil
	case ModeDiarized:
		if aligner == nil || diarizer == nil {
			return nil, fmt.Errorf("mode %q requires alignment and diarization services", mode)
		}
		return NewDiarized(cache, model, aligner, diarizer), nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}
}
