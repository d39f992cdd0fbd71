// Package align provides a client for the phoneme-based word-alignment
// sidecar that re-times transcript words against the source audio.
package align

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/whisperplaud/transcription-worker/internal/domain"
)

const (
	defaultBaseURL = "http://localhost:8389"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the alignment sidecar client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the alignment sidecar over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a client for the alignment sidecar.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsAvailable checks if the sidecar is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type alignSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type alignResponse struct {
	Segments []struct {
		ID    int           `json:"id"`
		Words []domain.Word `json:"words"`
	} `json:"segments"`
}

// Align sends the audio and the draft segments to the sidecar and returns
// word timings per segment id. Segments the aligner produced no words for
// are absent from the map.
func (c *Client) Align(ctx context.Context, audio []byte, segments []domain.Segment, language string) (map[int][]domain.Word, error) {
	req := make([]alignSegment, len(segments))
	for i, seg := range segments {
		req[i] = alignSegment{ID: seg.ID, Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	segmentsJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("segments", string(segmentsJSON))
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/align", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("align request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("align failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed alignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode align response: %w", err)
	}

	words := make(map[int][]domain.Word, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		if len(seg.Words) > 0 {
			words[seg.ID] = seg.Words
		}
	}
	return words, nil
}
