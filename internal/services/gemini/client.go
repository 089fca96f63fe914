package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

var (
	// ErrBlocked marks generations rejected by the provider's safety
	// filters. Retrying the same prompt will not help.
	ErrBlocked = errors.New("gemini: content blocked by safety filters")
	// ErrEmpty marks responses with no usable text.
	ErrEmpty = errors.New("gemini: empty response")
)

// Config captures the runtime settings required to talk to the Gemini API.
type Config struct {
	APIKey string
	Model  string
}

// Client wraps the Gemini generate-content API behind the same Complete and
// CompleteJSON surface as the OpenAI-compatible client, so callers can treat
// providers interchangeably.
type Client struct {
	client *genai.Client
	model  string

	maxRetries int
	baseDelay  time.Duration
	sleeper    func(time.Duration)
	rng        *rand.Rand

	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithMaxRetries overrides the transient-error retry count (defaults to 3).
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		c.maxRetries = retries
	}
}

// WithBaseDelay overrides the backoff base delay.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithEndpoint points the client at an alternate API endpoint (useful for
// tests).
func WithEndpoint(baseURL string, httpClient *http.Client) Option {
	return func(c *Client) {
		c.baseURL = baseURL
		c.httpClient = httpClient
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	model := strings.TrimSpace(cfg.Model)
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	if model == "" {
		return nil, errors.New("gemini: model required")
	}

	client := &Client{
		model:      model,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(client)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if client.httpClient != nil {
		clientConfig.HTTPClient = client.httpClient
	}
	if client.baseURL != "" {
		clientConfig.HTTPOptions.BaseURL = client.baseURL
	}

	genaiClient, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	client.client = genaiClient
	return client, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete issues a free-form generation with the supplied prompts and
// returns the model's text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("gemini complete: user prompt required")
	}
	return c.generateWithRetry(ctx, systemPrompt, userPrompt, false)
}

// CompleteJSON issues a JSON-only generation with the supplied prompts and
// returns the raw JSON payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("gemini complete: user prompt required")
	}
	return c.generateWithRetry(ctx, systemPrompt, userPrompt, true)
}

// HealthCheck issues a minimal generation to verify the API key and model
// are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.generateWithRetry(ctx, "", "Reply with the single word: ok", false)
	return err
}

// apiCallError wraps transport-level failures from the generate call.
// The provider gives little structure to work with, so call failures are
// assumed transient and retried.
type apiCallError struct {
	err error
}

func (e *apiCallError) Error() string {
	return fmt.Sprintf("gemini: api call: %v", e.err)
}

func (e *apiCallError) Unwrap() error {
	return e.err
}

// IsRetryable reports whether the failure is worth repeating. Safety blocks
// and malformed responses are permanent; transport failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var call *apiCallError
	return errors.As(err, &call)
}

func (c *Client) generateWithRetry(ctx context.Context, systemPrompt, userPrompt string, jsonOnly bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		text, err := c.generateOnce(ctx, systemPrompt, userPrompt, jsonOnly)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == c.maxRetries {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err := c.sleep(ctx, c.backoffDelay(attempt)); err != nil {
			return "", err
		}
	}
	if IsRetryable(lastErr) {
		return "", fmt.Errorf("gemini: failed after %d attempts: %w", c.maxRetries+1, lastErr)
	}
	return "", lastErr
}

func (c *Client) generateOnce(ctx context.Context, systemPrompt, userPrompt string, jsonOnly bool) (string, error) {
	config := &genai.GenerateContentConfig{}
	if systemPrompt = strings.TrimSpace(systemPrompt); systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if jsonOnly {
		config.ResponseMIMEType = "application/json"
		config.Temperature = genai.Ptr[float32](0)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &apiCallError{err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmpty
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", ErrBlocked
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// backoffDelay computes exponential backoff with jitter:
// base * 2^attempt * (0.5 + rand[0, 0.5)).
func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.baseDelay <= 0 {
		return 0
	}
	backoff := float64(c.baseDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + c.rng.Float64()*0.5
	return time.Duration(backoff * jitter)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
