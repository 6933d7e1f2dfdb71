// Package assistant forwards preparedness questions to a generative-AI
// generateContent endpoint.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/i474232898/quake-proxy/internal/upstream"
)

const maxResponseBytes = 4 << 20

// apiKeyHeader carries the key; request URLs stay credential-free.
const apiKeyHeader = "x-goog-api-key"

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("assistant: API key not configured")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("assistant: question is required")
)

// UpstreamError means the AI service could not produce an answer.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assistant upstream failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client calls the generateContent API.
type Client struct {
	api      *upstream.Client
	endpoint string
	apiKey   string
}

// New creates a Client. A "{model}" placeholder in endpoint is replaced with model.
func New(httpClient *http.Client, endpoint, apiKey, model string) *Client {
	return &Client{
		api:      upstream.New("assistant", httpClient, upstream.NoRetry),
		endpoint: strings.ReplaceAll(endpoint, "{model}", url.PathEscape(model)),
		apiKey:   apiKey,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Ask sends question and returns the text of the first candidate.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: question}}}},
	})
	if err != nil {
		return "", err
	}

	resp, err := c.api.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)
		return req, nil
	})
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Candidates) == 0 {
		return "", &UpstreamError{Err: errors.New("no candidates in response")}
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", &UpstreamError{Err: errors.New("empty answer")}
	}
	return answer, nil
}
