// Package llm obtains structured persona analyses from a local Ollama server.
//
// The Client is a thin transport over the two endpoints used (/api/tags for
// health and model listing, /api/generate for completions). The Analyzer
// layers model selection, request composition, bounded retries, and strict
// response validation on top of it.
package llm

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

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the loopback address of a stock Ollama install.
const DefaultBaseURL = "http://localhost:11434"

// healthTimeout bounds a single model-listing call.
const healthTimeout = 10 * time.Second

var (
	// ErrBackendUnavailable is returned when the inference server cannot be reached.
	ErrBackendUnavailable = errors.New("llm: backend unavailable")
	// ErrNoModel is returned when neither the primary nor fallback model is loaded.
	ErrNoModel = errors.New("llm: no configured model available")
	// ErrRetriesExhausted wraps the last failure once the retry ceiling is hit.
	ErrRetriesExhausted = errors.New("llm: retries exhausted")
)

// Client talks to an Ollama-compatible server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	healthGroup singleflight.Group
}

// NewClient creates a client for baseURL. Request deadlines come from the
// caller's context; the HTTP timeout is only a backstop.
func NewClient(baseURL string, backstop time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: backstop,
		},
	}
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Models checks the server is up and returns the names of the loaded models.
// Concurrent calls share one request.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	// singleflight hands the first caller's result to every waiter, so the
	// request must not die with that caller's cancellation.
	v, err, _ := c.healthGroup.Do("tags", func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healthTimeout)
		defer cancel()
		return c.fetchModels(callCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (c *Client) fetchModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrBackendUnavailable, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w at %s: status %d: %s", ErrBackendUnavailable, c.baseURL, resp.StatusCode, string(body))
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("ollama: decode tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		names = append(names, name)
	}
	return names, nil
}

// GenerateRequest is one completion request.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Images      []string // base64-encoded, only for vision models
	Temperature float64
	MaxTokens   int
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format"`
	Options ollamaOptions `json:"options"`
	Images  []string      `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate runs a single non-streaming, JSON-constrained completion and
// returns the raw response text.
func (c *Client) Generate(ctx context.Context, in GenerateRequest) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  in.Model,
		Prompt: in.Prompt,
		Stream: false,
		Format: "json",
		Options: ollamaOptions{
			Temperature: in.Temperature,
			NumPredict:  in.MaxTokens,
		},
		Images: in.Images,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	return result.Response, nil
}
