package correction

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

func TestApply_SingleMatch(t *testing.T) {
	e := New([]Entry{{From: "AAA", To: "BBB"}})

	corrected, applied := e.Apply("xAAAy")

	if corrected != "xBBBy" {
		t.Errorf("expected 'xBBBy', got %q", corrected)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied correction, got %d", len(applied))
	}
	if applied[0].From != "AAA" || applied[0].To != "BBB" || applied[0].Count != 1 {
		t.Errorf("unexpected record: %+v", applied[0])
	}
	if applied[0].String() != "AAA → BBB" {
		t.Errorf("unexpected record string: %q", applied[0].String())
	}
}

func TestApply_NoMatch(t *testing.T) {
	e := New([]Entry{{From: "AAA", To: "BBB"}})

	corrected, applied := e.Apply("xCCCy")

	if corrected != "xCCCy" {
		t.Errorf("expected text unchanged, got %q", corrected)
	}
	if len(applied) != 0 {
		t.Errorf("expected no applied corrections, got %v", applied)
	}
}

func TestApply_ReplacesAllOccurrences(t *testing.T) {
	e := New([]Entry{{From: "AAA", To: "BBB"}})

	corrected, applied := e.Apply("AAA and AAA and AAA")

	if corrected != "BBB and BBB and BBB" {
		t.Errorf("expected all occurrences replaced, got %q", corrected)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 record, got %d", len(applied))
	}
	if applied[0].Count != 3 {
		t.Errorf("expected count 3, got %d", applied[0].Count)
	}
}

func TestApply_TableOrderAndChaining(t *testing.T) {
	// The second entry's From appears only after the first replacement.
	// Order-dependent chaining is accepted behavior.
	e := New([]Entry{
		{From: "abc", To: "xyz"},
		{From: "xyz", To: "final"},
	})

	corrected, applied := e.Apply("say abc")

	if corrected != "say final" {
		t.Errorf("expected chained replacement 'say final', got %q", corrected)
	}
	if len(applied) != 2 {
		t.Errorf("expected both entries applied, got %v", applied)
	}
}

func TestApply_IdempotentReporting(t *testing.T) {
	// Re-running over already-corrected text for a table with no chained
	// substitutions must report nothing.
	e := New([]Entry{
		{From: "オゼンビック", To: "オゼンピック"},
		{From: "えーわんしー", To: "HbA1c"},
	})

	first, applied := e.Apply("オゼンビックとえーわんしーの値")
	if len(applied) != 2 {
		t.Fatalf("expected 2 corrections on first pass, got %d", len(applied))
	}

	second, again := e.Apply(first)
	if second != first {
		t.Errorf("expected second pass to be a no-op, got %q", second)
	}
	if len(again) != 0 {
		t.Errorf("expected empty applied list on second pass, got %v", again)
	}
}

func TestApply_TableNotMutated(t *testing.T) {
	entries := []Entry{{From: "AAA", To: "BBB"}}
	e := New(entries)

	entries[0].From = "mutated"

	corrected, _ := e.Apply("xAAAy")
	if corrected != "xBBBy" {
		t.Errorf("engine should hold its own copy of the table, got %q", corrected)
	}
}

func TestApplyResult_SegmentsConsistentWithAggregate(t *testing.T) {
	e := New([]Entry{{From: "AAA", To: "BBB"}})

	result := &domain.TranscriptResult{
		Text: "AAA then CCC",
		Segments: []domain.Segment{
			{ID: 0, Start: 0, End: 1, Text: "AAA then"},
			{ID: 1, Start: 1, End: 2, Text: "CCC"},
		},
	}

	applied := e.ApplyResult(result)

	if result.Text != "BBB then CCC" {
		t.Errorf("unexpected aggregate text: %q", result.Text)
	}
	if result.OriginalText != "AAA then CCC" {
		t.Errorf("original text not preserved: %q", result.OriginalText)
	}
	if result.Segments[0].Text != "BBB then" {
		t.Errorf("segment 0 not corrected: %q", result.Segments[0].Text)
	}
	if result.Segments[0].OriginalText != "AAA then" {
		t.Errorf("segment 0 original not kept: %q", result.Segments[0].OriginalText)
	}
	if result.Segments[1].Text != "CCC" {
		t.Errorf("segment 1 should be untouched: %q", result.Segments[1].Text)
	}
	if len(applied) != 1 || !reflect.DeepEqual(result.Corrections, applied) {
		t.Errorf("unexpected corrections: %v", result.Corrections)
	}
}

func TestApplyResult_PreservesSegmentOrder(t *testing.T) {
	e := New(DefaultDictionary())

	result := &domain.TranscriptResult{
		Text: "",
		Segments: []domain.Segment{
			{ID: 0, Start: 0.0, End: 1.5, Text: "first"},
			{ID: 1, Start: 1.5, End: 3.0, Text: "second"},
			{ID: 2, Start: 3.0, End: 4.0, Text: "third"},
		},
	}

	e.ApplyResult(result)

	for i, seg := range result.Segments {
		if seg.ID != i {
			t.Errorf("segment order changed at index %d: id=%d", i, seg.ID)
		}
	}
}

func TestLoadDictionary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.json")
	content := `[{"from":"AAA","to":"BBB"},{"from":"CCC","to":"DDD"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].From != "AAA" || entries[1].To != "DDD" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLoadDictionary_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"AAA":"BBB"}`},
		{"empty from", `[{"from":"","to":"BBB"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadDictionary(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := LoadDictionary(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultDictionary(t *testing.T) {
	entries := DefaultDictionary()
	if len(entries) == 0 {
		t.Fatal("expected non-empty default dictionary")
	}

	e := New(entries)
	corrected, applied := e.Apply("現在オゼンビックを使用、えーわんしーは7.2%")
	if corrected != "現在オゼンピックを使用、HbA1cは7.2%" {
		t.Errorf("unexpected corrected text: %q", corrected)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 corrections, got %d", len(applied))
	}
}
