package whisper

import (
	"context"
	"errors"
	"testing"

	"github.com/whisperplaud/transcription-worker/internal/diarize"
	"github.com/whisperplaud/transcription-worker/internal/domain"
)

type fakeAligner struct {
	words map[int][]domain.Word
	err   error
	calls int
}

func (f *fakeAligner) Align(ctx context.Context, audio []byte, segments []domain.Segment, language string) (map[int][]domain.Word, error) {
	f.calls++
	return f.words, f.err
}

type fakeDiarizer struct {
	turns []diarize.Turn
	err   error
	calls int
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audio []byte) ([]diarize.Turn, error) {
	f.calls++
	return f.turns, f.err
}

func singleEngineCache(eng Engine) *Cache {
	return NewCache(DeviceCPU, func(ctx context.Context, kind, language, device string) (Engine, error) {
		return eng, nil
	})
}

func sampleDraft() *Draft {
	return &Draft{
		Text:     "hello world",
		Language: "en",
		Segments: []domain.Segment{
			{
				ID: 0, Start: 0, End: 2, Text: "hello world",
				Words: []domain.Word{
					{Word: "hello", Start: 0.1, End: 0.6},
					{Word: "world", Start: 0.7, End: 1.2},
				},
			},
		},
	}
}

func TestCapabilities(t *testing.T) {
	cache := singleEngineCache(&fakeEngine{draft: sampleDraft()})
	aligner := &fakeAligner{}
	diarizer := &fakeDiarizer{}

	tests := []struct {
		name     string
		backend  Backend
		caps     Capability
		aligns   bool
		speakers bool
	}{
		{"basic", NewBasic(cache, "base"), CapSegments, false, false},
		{"aligned", NewAligned(cache, "base", aligner), CapSegments | CapAlignment, true, false},
		{"diarized", NewDiarized(cache, "base", aligner, diarizer), CapSegments | CapAlignment | CapDiarization, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.backend.Capabilities() != tt.caps {
				t.Errorf("unexpected capability set: %b", tt.backend.Capabilities())
			}
			if tt.backend.Name() != tt.name {
				t.Errorf("unexpected name %q", tt.backend.Name())
			}
			_, aligns := tt.backend.(AlignStage)
			if aligns != tt.aligns {
				t.Errorf("AlignStage implemented=%v, expected %v", aligns, tt.aligns)
			}
			_, speaks := tt.backend.(SpeakerStage)
			if speaks != tt.speakers {
				t.Errorf("SpeakerStage implemented=%v, expected %v", speaks, tt.speakers)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	cache := singleEngineCache(&fakeEngine{draft: sampleDraft()})
	aligner := &fakeAligner{}
	diarizer := &fakeDiarizer{}

	tests := []struct {
		mode     string
		aligner  Aligner
		diarizer Diarizer
		wantErr  bool
	}{
		{ModeBasic, nil, nil, false},
		{ModeAligned, aligner, nil, false},
		{ModeAligned, nil, nil, true},
		{ModeDiarized, aligner, diarizer, false},
		{ModeDiarized, aligner, nil, true},
		{"streaming", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			_, err := NewBackend(tt.mode, cache, "base", tt.aligner, tt.diarizer)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBackend(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
		})
	}
}

func TestBasicRun_ModelInitFailure(t *testing.T) {
	cache := NewCache(DeviceCPU, func(ctx context.Context, kind, language, device string) (Engine, error) {
		return nil, errors.New("download interrupted")
	})
	b := NewBasic(cache, "large-v3")

	_, err := b.Run(context.Background(), []byte("audio"), "ja", nil)
	if !errors.Is(err, ErrModelInit) {
		t.Errorf("expected ErrModelInit, got %v", err)
	}
}

func TestBasicRun_ReturnsDraft(t *testing.T) {
	eng := &fakeEngine{info: domain.ModelInfo{Name: "base", Device: "cpu"}, draft: sampleDraft()}
	b := NewBasic(singleEngineCache(eng), "base")

	draft, err := b.Run(context.Background(), []byte("audio"), "en", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Text != "hello world" || len(draft.Segments) != 1 {
		t.Errorf("unexpected draft: %+v", draft)
	}
	if draft.Model.Name != "base" {
		t.Errorf("expected model identity on draft, got %+v", draft.Model)
	}
}

func TestAlignedAlign_ReplacesWords(t *testing.T) {
	aligned := []domain.Word{
		{Word: "hello", Start: 0.2, End: 0.5, Confidence: 0.99},
		{Word: "world", Start: 0.6, End: 1.0, Confidence: 0.98},
	}
	aligner := &fakeAligner{words: map[int][]domain.Word{0: aligned}}
	b := NewAligned(singleEngineCache(&fakeEngine{}), "base", aligner)

	draft := sampleDraft()
	if err := b.Align(context.Background(), []byte("audio"), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Segments[0].Words[0].Start != 0.2 {
		t.Errorf("expected aligner timings, got %+v", draft.Segments[0].Words[0])
	}
}

func TestAlignedAlign_KeepsWordsWhenUnplaced(t *testing.T) {
	aligner := &fakeAligner{words: map[int][]domain.Word{}}
	b := NewAligned(singleEngineCache(&fakeEngine{}), "base", aligner)

	draft := sampleDraft()
	if err := b.Align(context.Background(), []byte("audio"), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Segments[0].Words[0].Start != 0.1 {
		t.Errorf("expected original timings preserved, got %+v", draft.Segments[0].Words[0])
	}
}

func TestAlignedAlign_EmptyDraftSkipsSidecar(t *testing.T) {
	aligner := &fakeAligner{err: errors.New("should not be called")}
	b := NewAligned(singleEngineCache(&fakeEngine{}), "base", aligner)

	if err := b.Align(context.Background(), nil, &Draft{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aligner.calls != 0 {
		t.Errorf("expected no aligner call for empty draft, got %d", aligner.calls)
	}
}

func TestDiarizedAssignSpeakers(t *testing.T) {
	diarizer := &fakeDiarizer{turns: []diarize.Turn{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 0.65},
		{Speaker: "SPEAKER_01", Start: 0.65, End: 2.0},
	}}
	b := NewDiarized(singleEngineCache(&fakeEngine{}), "base", &fakeAligner{}, diarizer)

	draft := sampleDraft()
	if err := b.AssignSpeakers(context.Background(), []byte("audio"), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := draft.Segments[0].Words
	if words[0].Speaker != "SPEAKER_00" {
		t.Errorf("expected SPEAKER_00 for first word, got %q", words[0].Speaker)
	}
	if words[1].Speaker != "SPEAKER_01" {
		t.Errorf("expected SPEAKER_01 for second word, got %q", words[1].Speaker)
	}
}

func TestDiarizedAssignSpeakers_Error(t *testing.T) {
	diarizer := &fakeDiarizer{err: errors.New("sidecar down")}
	b := NewDiarized(singleEngineCache(&fakeEngine{}), "base", &fakeAligner{}, diarizer)

	if err := b.AssignSpeakers(context.Background(), []byte("audio"), sampleDraft()); err == nil {
		t.Error("expected error from diarizer failure")
	}
}
