// Package correction applies a static lexical substitution table to
// transcript text and records which entries actually changed something.
package correction

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

// Entry is one from→to substitution. Entries are applied in slice order.
type Entry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Engine performs deterministic text normalization against a fixed table.
// Replacements are sequential and cumulative: a later entry sees the output
// of earlier entries, so a To value containing another entry's From will be
// replaced again. That order-dependent behavior is intentional.
type Engine struct {
	entries []Entry
}

// New creates an engine over the given table. The slice is copied; the
// engine never mutates it.
func New(entries []Entry) *Engine {
	table := make([]Entry, len(entries))
	copy(table, entries)
	return &Engine{entries: table}
}

// Apply replaces every occurrence of each table entry in order and returns
// the corrected text plus the entries that actually matched. Entries whose
// From never appears produce no record.
func (e *Engine) Apply(text string) (string, []domain.CorrectionRecord) {
	corrected := text
	var applied []domain.CorrectionRecord

	for _, entry := range e.entries {
		if entry.From == "" {
			continue
		}
		n := strings.Count(corrected, entry.From)
		if n == 0 {
			continue
		}
		corrected = strings.ReplaceAll(corrected, entry.From, entry.To)
		applied = append(applied, domain.CorrectionRecord{
			From:  entry.From,
			To:    entry.To,
			Count: n,
		})
	}

	return corrected, applied
}

// ApplyResult corrects the aggregate text and each segment in place so that
// segment-level text stays consistent with the aggregate. The returned
// records come from the aggregate pass only; per-segment matches of the
// same entries are not double counted.
func (e *Engine) ApplyResult(result *domain.TranscriptResult) []domain.CorrectionRecord {
	corrected, applied := e.Apply(result.Text)
	result.OriginalText = result.Text
	result.Text = corrected

	for i := range result.Segments {
		seg := &result.Segments[i]
		segCorrected, segApplied := e.Apply(seg.Text)
		if len(segApplied) > 0 {
			seg.OriginalText = seg.Text
			seg.Text = segCorrected
		}
	}

	if applied == nil {
		applied = []domain.CorrectionRecord{}
	}
	result.Corrections = applied
	if len(applied) > 0 {
		log.Debug().Int("corrections", len(applied)).Msg("Applied lexical corrections")
	}
	return applied
}

// Size returns the number of table entries.
func (e *Engine) Size() int {
	return len(e.entries)
}

// LoadDictionary reads a substitution table from a JSON array of
// {"from","to"} objects. Array form keeps the application order stable;
// a JSON object would lose it.
func LoadDictionary(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	for i, entry := range entries {
		if entry.From == "" {
			return nil, fmt.Errorf("dictionary %s: entry %d has empty \"from\"", path, i)
		}
	}
	return entries, nil
}

// DefaultDictionary returns the built-in medical vocabulary table used when
// no dictionary file is configured.
func DefaultDictionary() []Entry {
	return []Entry{
		{From: "オゼンビック", To: "オゼンピック"},
		{From: "おぜんびっく", To: "オゼンピック"},
		{From: "セマグルタイド", To: "セマグルチド"},
		{From: "マンジャロー", To: "マンジャロ"},
		{From: "チルゼパタイド", To: "チルゼパチド"},
		{From: "トルシティ", To: "トルリシティ"},
		{From: "えーわんしー", To: "HbA1c"},
		{From: "ヘモグロビンA1C", To: "HbA1c"},
		{From: "じーえるぴーわん", To: "GLP-1"},
		{From: "えすじーえるてぃーつー", To: "SGLT2"},
	}
}
