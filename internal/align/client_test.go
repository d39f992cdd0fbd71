package align

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"healthy", http.StatusOK, true},
		{"unhealthy", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL})
			if got := c.IsAvailable(context.Background()); got != tt.want {
				t.Errorf("IsAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlign_DecodesWordMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/align" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"segments": []map[string]interface{}{
				{
					"id": 0,
					"words": []map[string]interface{}{
						{"word": "hello", "start": 0.1, "end": 0.4, "confidence": 0.97},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	segments := []domain.Segment{{ID: 0, Start: 0, End: 1, Text: "hello"}}

	words, err := c.Align(context.Background(), []byte("audio"), segments, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(words[0]) != 1 || words[0][0].Word != "hello" {
		t.Errorf("unexpected aligned words: %v", words)
	}
	if words[0][0].Start != 0.1 || words[0][0].End != 0.4 {
		t.Errorf("timestamps not decoded: %+v", words[0][0])
	}
}
