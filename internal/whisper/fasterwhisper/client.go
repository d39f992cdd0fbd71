// Package fasterwhisper provides a whisper.Engine backed by a
// faster-whisper HTTP sidecar.
package fasterwhisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/whisperplaud/transcription-worker/internal/domain"
	"github.com/whisperplaud/transcription-worker/internal/whisper"
)

const (
	defaultBaseURL = "http://localhost:8390"
	// Transcription of long recordings can take a while.
	defaultTimeout = 30 * time.Minute
)

// Config holds configuration for the faster-whisper sidecar client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the faster-whisper sidecar. One client serves every
// model the sidecar can load.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the faster-whisper sidecar.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsAvailable checks if the sidecar is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
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

type loadRequest struct {
	Model       string `json:"model"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

type loadResponse struct {
	Name        string `json:"name"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

// Load asks the sidecar to load the model on the given device and returns
// an Engine bound to it. Intended as the whisper.Cache load function.
// The sidecar is health-probed before the load request is sent.
func (c *Client) Load(ctx context.Context, model, language, device string) (whisper.Engine, error) {
	if !c.IsAvailable(ctx) {
		return nil, fmt.Errorf("sidecar at %s is not available", c.baseURL)
	}

	payload, err := json.Marshal(loadRequest{
		Model:       model,
		Device:      device,
		ComputeType: computeTypeFor(device),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal load request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/load", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load model %s on %s: %w", model, device, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("load model %s on %s: status %d: %s", model, device, resp.StatusCode, string(body))
	}

	var parsed loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode load response: %w", err)
	}
	if parsed.Name == "" {
		parsed.Name = model
	}

	return &engine{
		client: c,
		info: domain.ModelInfo{
			Name:        parsed.Name,
			Device:      parsed.Device,
			ComputeType: parsed.ComputeType,
		},
	}, nil
}

// computeTypeFor picks float16 on GPU for speed, int8 on CPU for memory.
func computeTypeFor(device string) string {
	if device == whisper.DeviceCUDA {
		return "float16"
	}
	return "int8"
}

// engine is a loaded model on the sidecar.
type engine struct {
	client *Client
	info   domain.ModelInfo
}

func (e *engine) Info() domain.ModelInfo { return e.info }

type transcribeResponse struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Segments            []struct {
		ID           int     `json:"id"`
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		AvgLogprob   float64 `json:"avg_logprob"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		Words        []struct {
			Word        string  `json:"word"`
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe uploads the audio and converts the sidecar response into a
// draft. The sink is fed every 10 segments, matching the cadence the
// orchestrator's percentage mapping expects.
func (e *engine) Transcribe(ctx context.Context, audio []byte, opts whisper.TranscribeOptions, sink whisper.ProgressSink) (*whisper.Draft, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", e.info.Name)
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	_ = writer.WriteField("word_timestamps", strconv.FormatBool(opts.WordTimestamps))
	_ = writer.WriteField("vad_filter", strconv.FormatBool(opts.VADFilter))
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.client.baseURL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("transcribe failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcribe response: %w", err)
	}

	draft := &whisper.Draft{
		Language:            parsed.Language,
		LanguageProbability: parsed.LanguageProbability,
		Duration:            parsed.Duration,
		Model:               e.info,
	}

	var textParts []string
	var totalConfidence float64
	for i, seg := range parsed.Segments {
		words := make([]domain.Word, len(seg.Words))
		for j, w := range seg.Words {
			words[j] = domain.Word{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Probability,
			}
		}
		text := strings.TrimSpace(seg.Text)
		draft.Segments = append(draft.Segments, domain.Segment{
			ID:           i,
			Start:        seg.Start,
			End:          seg.End,
			Text:         text,
			Confidence:   seg.AvgLogprob,
			NoSpeechProb: seg.NoSpeechProb,
			Words:        words,
		})
		textParts = append(textParts, text)
		totalConfidence += seg.AvgLogprob

		if i%10 == 0 && sink != nil {
			sink(i)
		}
	}

	if n := len(draft.Segments); n > 0 {
		draft.Confidence = totalConfidence / float64(n)
	}
	draft.Text = parsed.Text
	if draft.Text == "" {
		draft.Text = strings.Join(textParts, "\n")
	}

	return draft, nil
}
