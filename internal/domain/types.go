// Package domain defines the data structures shared across the worker:
// job descriptors, pipeline phases, progress events and transcript results.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Phase tracks each pipeline stage for a single transcription job.
type Phase string

const (
	PhaseQueued       Phase = "queued"
	PhaseDownloading  Phase = "downloading"
	PhaseTranscribing Phase = "transcribing"
	PhaseAligning     Phase = "aligning"
	PhaseDiarizing    Phase = "diarizing"
	PhaseCorrecting   Phase = "correcting"
	PhaseUploading    Phase = "uploading"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// Terminal reports whether the phase ends the job lifecycle.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Status is the externally visible job state carried on progress events.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is the immutable descriptor received on the jobs topic.
type Job struct {
	JobID     string `json:"jobId"`
	FileID    string `json:"fileId"`
	SourceKey string `json:"sourceKey"`
}

// ErrMissingField is returned by Validate for incomplete descriptors.
var ErrMissingField = errors.New("missing required field")

// Validate checks that all descriptor fields are present.
func (j Job) Validate() error {
	var missing []string
	if j.JobID == "" {
		missing = append(missing, "jobId")
	}
	if j.FileID == "" {
		missing = append(missing, "fileId")
	}
	if j.SourceKey == "" {
		missing = append(missing, "sourceKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// ProgressEvent is published on the progress topic after every phase
// transition plus one terminal message per job.
type ProgressEvent struct {
	JobID     string `json:"jobId"`
	Status    Status `json:"status"`
	Progress  int    `json:"progress"`
	Phase     Phase  `json:"phase"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Word is a single transcribed word with timing. Speaker is populated only
// under diarization.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Segment is a time-bounded span of transcript text. Words is populated
// only when the backend supports word alignment.
type Segment struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text,omitempty"`
	Confidence   float64 `json:"confidence"`
	NoSpeechProb float64 `json:"no_speech_prob"`
	Words        []Word  `json:"words,omitempty"`
}

// CorrectionRecord is one dictionary entry that was actually applied.
type CorrectionRecord struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// String renders the record in the "from → to" form used in logs.
func (c CorrectionRecord) String() string {
	return c.From + " → " + c.To
}

// SpeakerStats aggregates the words attributed to one speaker.
type SpeakerStats struct {
	Words     []string `json:"words"`
	WordCount int      `json:"word_count"`
	Duration  float64  `json:"duration"`
}

// ModelInfo identifies the model that produced a transcript, including the
// device actually used after any fallback.
type ModelInfo struct {
	Name        string `json:"name"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

// TranscriptResult is the final document persisted to the object store at
// transcripts/{fileId}.json.
type TranscriptResult struct {
	Text                string                  `json:"text"`
	OriginalText        string                  `json:"original_text"`
	Segments            []Segment               `json:"segments"`
	Speakers            map[string]SpeakerStats `json:"speakers,omitempty"`
	Corrections         []CorrectionRecord      `json:"corrections"`
	Language            string                  `json:"language"`
	LanguageProbability float64                 `json:"language_probability"`
	Duration            float64                 `json:"duration"`
	Confidence          float64                 `json:"confidence"`
	Model               ModelInfo               `json:"model_info"`
	ProcessingTimeSec   float64                 `json:"processing_time_sec"`
	Timestamp           string                  `json:"timestamp"`
}
