package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	defaultPyannoteURL     = "http://localhost:8388"
	defaultPyannoteTimeout = 300 * time.Second
)

// PyannoteConfig holds configuration for the Pyannote sidecar client.
type PyannoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PyannoteClient implements Provider against the Pyannote HTTP sidecar.
type PyannoteClient struct {
	cfg    PyannoteConfig
	client *http.Client
}

// NewPyannoteClient creates a client for the Pyannote diarization sidecar.
func NewPyannoteClient(cfg PyannoteConfig) *PyannoteClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPyannoteURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPyannoteTimeout
	}
	return &PyannoteClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (p *PyannoteClient) Name() string { return "pyannote" }

// IsAvailable checks if the sidecar is reachable.
func (p *PyannoteClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type pyannoteResponse struct {
	Segments    []Turn `json:"segments"`
	NumSpeakers int    `json:"num_speakers"`
}

// Diarize sends audio to the sidecar and returns the speaker turns.
func (p *PyannoteClient) Diarize(ctx context.Context, audio []byte) ([]Turn, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("diarize failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode diarize response: %w", err)
	}
	return parsed.Segments, nil
}
