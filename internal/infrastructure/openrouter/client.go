package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/presswire-api/internal/domain"
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewClient creates a client. timeout bounds each completion call.
func NewClient(apiKey, model, baseURL, referer string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		referer: referer,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// Complete sends a system+user prompt and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("openrouter api key not set: %w", domain.ErrUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", "PressWire.ie")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("openrouter request timed out: %w", domain.ErrUnavailable)
		}
		return "", fmt.Errorf("openrouter request: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %v: %w", err, domain.ErrUpstream)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter error (%d): %w", resp.StatusCode, domain.ErrUpstream)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %v: %w", err, domain.ErrUpstream)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", domain.ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
