package whisper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/whisperplaud/transcription-worker/internal/diarize"
	"github.com/whisperplaud/transcription-worker/internal/domain"
)

// Aligner re-times transcript words against the audio, keyed by language.
// Satisfied by align.Client.
type Aligner interface {
	Align(ctx context.Context, audio []byte, segments []domain.Segment, language string) (map[int][]domain.Word, error)
}

// Diarizer partitions audio into speaker turns. Satisfied by
// diarize.Provider implementations.
type Diarizer interface {
	Diarize(ctx context.Context, audio []byte) ([]diarize.Turn, error)
}

// BasicBackend produces segments with confidence and whatever word
// timestamps the underlying engine emits on its own.
type BasicBackend struct {
	cache *Cache
	model string
}

// NewBasic creates a segment-only backend.
func NewBasic(cache *Cache, model string) *BasicBackend {
	return &BasicBackend{cache: cache, model: model}
}

func (b *BasicBackend) Name() string { return "basic" }

func (b *BasicBackend) Capabilities() Capability { return CapSegments }

// Run loads the engine on first use and transcribes the audio.
func (b *BasicBackend) Run(ctx context.Context, audio []byte, language string, sink ProgressSink) (*Draft, error) {
	eng, err := b.cache.Get(ctx, b.model, language)
	if err != nil {
		return nil, err
	}
	draft, err := eng.Transcribe(ctx, audio, TranscribeOptions{
		Language:       language,
		WordTimestamps: true,
		VADFilter:      true,
	}, sink)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return draft, nil
}

// AlignedBackend adds the dedicated word re-alignment pass.
type AlignedBackend struct {
	BasicBackend
	aligner Aligner
}

// NewAligned creates a backend with word alignment.
func NewAligned(cache *Cache, model string, aligner Aligner) *AlignedBackend {
	return &AlignedBackend{
		BasicBackend: BasicBackend{cache: cache, model: model},
		aligner:      aligner,
	}
}

func (b *AlignedBackend) Name() string { return "aligned" }

func (b *AlignedBackend) Capabilities() Capability { return CapSegments | CapAlignment }

// Align replaces each segment's words with the aligner's timings, keyed by
// the draft's detected language. Segments the aligner could not place keep
// the engine's original word timestamps.
func (b *AlignedBackend) Align(ctx context.Context, audio []byte, draft *Draft) error {
	if len(draft.Segments) == 0 {
		return nil
	}
	aligned, err := b.aligner.Align(ctx, audio, draft.Segments, draft.Language)
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}
	replaced := 0
	for i := range draft.Segments {
		if words, ok := aligned[draft.Segments[i].ID]; ok {
			draft.Segments[i].Words = words
			replaced++
		}
	}
	log.Debug().
		Int("segments", len(draft.Segments)).
		Int("aligned", replaced).
		Str("language", draft.Language).
		Msg("Word alignment applied")
	return nil
}

// DiarizedBackend adds per-word speaker attribution on top of alignment.
type DiarizedBackend struct {
	AlignedBackend
	diarizer Diarizer
}

// NewDiarized creates a backend with alignment and speaker diarization.
func NewDiarized(cache *Cache, model string, aligner Aligner, diarizer Diarizer) *DiarizedBackend {
	return &DiarizedBackend{
		AlignedBackend: AlignedBackend{
			BasicBackend: BasicBackend{cache: cache, model: model},
			aligner:      aligner,
		},
		diarizer: diarizer,
	}
}

func (b *DiarizedBackend) Name() string { return "diarized" }

func (b *DiarizedBackend) Capabilities() Capability {
	return CapSegments | CapAlignment | CapDiarization
}

// AssignSpeakers runs the diarization pass and merges its turns onto the
// draft's word timestamps by temporal overlap.
func (b *DiarizedBackend) AssignSpeakers(ctx context.Context, audio []byte, draft *Draft) error {
	if len(draft.Segments) == 0 {
		return nil
	}
	turns, err := b.diarizer.Diarize(ctx, audio)
	if err != nil {
		return fmt.Errorf("diarize: %w", err)
	}
	diarize.AssignSpeakers(draft.Segments, turns)
	log.Debug().
		Int("turns", len(turns)).
		Int("segments", len(draft.Segments)).
		Msg("Speaker labels assigned")
	return nil
}
