// Package llm wraps the Gemini generateContent REST API behind a single
// GenerateText call. Each call is one attempt, bounded by a timeout; the
// caller decides what to do with a failure.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Gemini API model endpoint prefix.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultModel is the model used when the config leaves it empty.
	DefaultModel = "gemini-2.0-flash"

	// defaultGenerateTimeout bounds generation and correction calls,
	// which return large bodies.
	defaultGenerateTimeout = 60 * time.Second
	// defaultQuickTimeout bounds lightweight calls such as Ping.
	defaultQuickTimeout = 15 * time.Second

	// maxLoggedBody caps how much of a response body goes into logs.
	maxLoggedBody = 2048
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("llm: API key is required (set QUIZFORGE_API_KEY)")

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	// ErrTransport means no response arrived (network error or timeout).
	ErrTransport ErrorKind = "transport_failure"
	// ErrStatus means the remote answered with a non-2xx status.
	ErrStatus ErrorKind = "non_success_status"
	// ErrEnvelope means the response body had no generated text in it.
	ErrEnvelope ErrorKind = "malformed_envelope"
)

// GatewayError is a typed per-call failure from the gateway.
type GatewayError struct {
	Kind   ErrorKind
	Status int // HTTP status, set for ErrStatus
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm gateway %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("llm gateway %s", e.Kind)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Config holds the immutable gateway configuration, resolved once at
// construction.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	GenerateTimeout time.Duration
	QuickTimeout    time.Duration
}

// CallOptions are the per-call sampling parameters.
type CallOptions struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	// RelaxSafety disables the API's content filters. Grading calls set
	// this so legitimate student answers are not blocked.
	RelaxSafety bool
	// Timeout overrides the configured generate timeout when positive.
	Timeout time.Duration
}

// GenerationOptions returns the sampling parameters for quiz generation:
// low creativity, default safety filters.
func GenerationOptions() CallOptions {
	return CallOptions{
		Temperature:     0.3,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

// CorrectionOptions returns the sampling parameters for answer grading:
// moderate determinism, safety filters fully relaxed.
func CorrectionOptions() CallOptions {
	return CallOptions{
		Temperature:     0.4,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 4096,
		RelaxSafety:     true,
	}
}

// Client is the gateway to the text-generation service.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a gateway client. A missing API key is a construction
// error, not a per-call one.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaultGenerateTimeout
	}
	if cfg.QuickTimeout <= 0 {
		cfg.QuickTimeout = defaultQuickTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{}}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Request/response envelopes for the generateContent API.

type generateRequest struct {
	Contents         []content       `json:"contents"`
	GenerationConfig generationCfg   `json:"generationConfig"`
	SafetySettings   []safetySetting `json:"safetySettings,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationCfg struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var relaxedSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// GenerateText sends a single prompt and returns the generated text.
// One attempt, no retry. Failures come back as *GatewayError.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.GenerateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationCfg{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}
	if opts.RelaxSafety {
		reqBody.SafetySettings = relaxedSafetySettings
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.cfg.BaseURL + "/" + c.cfg.Model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header so the URL stays safe to log.
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("llm request failed", "url", url, "error", err)
		return "", &GatewayError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("llm response read failed", "url", url, "status", resp.StatusCode, "error", err)
		return "", &GatewayError{Kind: ErrTransport, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("llm returned error status",
			"url", url, "status", resp.StatusCode, "body", truncate(string(body), maxLoggedBody))
		return "", &GatewayError{
			Kind:   ErrStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var env generateResponse
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Error("llm envelope not JSON", "url", url, "body", truncate(string(body), maxLoggedBody), "error", err)
		return "", &GatewayError{Kind: ErrEnvelope, Err: err}
	}
	if len(env.Candidates) == 0 || len(env.Candidates[0].Content.Parts) == 0 {
		slog.Error("llm envelope has no generated text", "url", url, "body", truncate(string(body), maxLoggedBody))
		return "", &GatewayError{Kind: ErrEnvelope, Err: errors.New("no candidates in response")}
	}

	return env.Candidates[0].Content.Parts[0].Text, nil
}

// Ping issues a minimal generation call to verify the endpoint and key,
// using the short timeout.
func (c *Client) Ping(ctx context.Context) error {
	opts := CallOptions{
		Temperature:     0,
		MaxOutputTokens: 8,
		Timeout:         c.cfg.QuickTimeout,
	}
	_, err := c.GenerateText(ctx, "Reply with the single word OK.", opts)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
