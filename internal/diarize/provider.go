// Package diarize defines the speaker-diarization provider interface and
// the merge that attributes diarized speaker turns to transcript words.
package diarize

import (
	"context"
	"math"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

// UnknownSpeaker labels words no diarized turn overlaps.
const UnknownSpeaker = "UNKNOWN"

// Turn is one speaker-attributed time range from the diarization pass.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Provider is the interface diarization backends implement.
type Provider interface {
	Name() string

	// Diarize partitions the audio into speaker turns.
	Diarize(ctx context.Context, audio []byte) ([]Turn, error)
}

// AssignSpeakers attaches a speaker label to every word in every segment.
// A word gets the speaker whose turn overlaps it; when several turns
// overlap, the one with the greatest overlap duration wins. Words no turn
// overlaps are labelled UnknownSpeaker.
func AssignSpeakers(segments []domain.Segment, turns []Turn) {
	for i := range segments {
		words := segments[i].Words
		for j := range words {
			words[j].Speaker = speakerFor(words[j].Start, words[j].End, turns)
		}
	}
}

func speakerFor(start, end float64, turns []Turn) string {
	speaker := UnknownSpeaker
	best := 0.0
	for _, t := range turns {
		overlap := math.Min(end, t.End) - math.Max(start, t.Start)
		if overlap > best {
			best = overlap
			speaker = t.Speaker
		}
	}
	return speaker
}

// SpeakerStats aggregates per-speaker word lists, counts and speaking time
// from labelled segments.
func SpeakerStats(segments []domain.Segment) map[string]domain.SpeakerStats {
	stats := make(map[string]domain.SpeakerStats)
	for _, seg := range segments {
		for _, w := range seg.Words {
			if w.Speaker == "" {
				continue
			}
			s := stats[w.Speaker]
			s.Words = append(s.Words, w.Word)
			s.WordCount++
			s.Duration += w.End - w.Start
			stats[w.Speaker] = s
		}
	}
	if len(stats) == 0 {
		return nil
	}
	return stats
}
