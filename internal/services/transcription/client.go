// Package transcription calls the hosted speech-to-text service and decodes
// its word-level timing payload.
package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/services"
	"mixdown/internal/transcript"
)

// Transcriber defines the transcription operation the worker depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcript.Transcript, error)
}

// Client provides access to the transcription API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Transcriber = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a transcription client.
func New(cfg config.Transcription, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("transcription base url required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type wordPayload struct {
	Text      string `json:"text"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

type transcribeResponse struct {
	Words []wordPayload `json:"words"`
}

// Transcribe uploads the audio file and returns its validated word-level
// transcript. Connection failures classify as transient so the caller can
// retry without failing the episode.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*transcript.Transcript, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio for transcription: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", pr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientConnection, "transcription", "transcribe",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrValidation
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransientConnection
		}
		return nil, services.Wrap(marker, "transcription", "transcribe",
			fmt.Sprintf("transcription returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	words := make([]transcript.WordToken, len(payload.Words))
	for i, w := range payload.Words {
		words[i] = transcript.WordToken{
			Text:      w.Text,
			StartMs:   w.StartMs,
			EndMs:     w.EndMs,
			SpeakerID: w.SpeakerID,
		}
	}
	tr, err := transcript.New(words)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe",
			"transcription service returned inconsistent word timings", err)
	}
	return tr, nil
}
