// Package speech calls the hosted text-to-speech service used to render
// template segments that carry text instead of a stored asset.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/services"
)

// Client provides access to the speech synthesis API.
type Client struct {
	apiKey       string
	baseURL      string
	defaultVoice string
	httpClient   *http.Client
}

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

// New creates a speech synthesis client.
func New(cfg config.Synthesis, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("synthesis base url required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := &Client{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultVoice: strings.TrimSpace(cfg.DefaultVoice),
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// Synthesize renders text as WAV audio using the requested voice, falling
// back to the configured default voice when none is given.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("synthesis text must not be empty")
	}
	if strings.TrimSpace(voice) == "" {
		voice = c.defaultVoice
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice, Format: "wav"})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientConnection, "speech", "synthesize",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrValidation
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransientConnection
		}
		return nil, services.Wrap(marker, "speech", "synthesize",
			fmt.Sprintf("synthesis returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	return audio, nil
}
