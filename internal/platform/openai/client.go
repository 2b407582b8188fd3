// Package openai is a minimal client for OpenAI-compatible chat-completions
// and embeddings endpoints. Extraction runs at temperature 0 with a bounded
// token budget; transport failures surface to the caller unretried.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docugraph/docugraph-backend/internal/platform/envutil"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

// Client is the LLM gateway used by the extraction pipeline.
type Client interface {
	// Complete sends a system+user chat completion and returns the raw
	// message content.
	Complete(ctx context.Context, system string, user string) (string, error)

	// Embed returns one embedding vector per input string.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	maxTokens  int
	httpClient *http.Client
}

// NewClient builds a client from OPENAI_* environment variables. The API key
// is optional so local OpenAI-compatible servers work without auth.
func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("openai: logger required")
	}

	baseURL := envutil.Str("OPENAI_BASE_URL", "https://api.openai.com/v1")
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	timeoutSec := envutil.Int("OPENAI_TIMEOUT_SECONDS", 120)

	return &client{
		log:        log.With("client", "OpenAI"),
		baseURL:    baseURL,
		apiKey:     envutil.Str("OPENAI_API_KEY", ""),
		model:      envutil.Str("OPENAI_MODEL", "gpt-4"),
		embedModel: envutil.Str("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		maxTokens:  envutil.Int("OPENAI_MAX_TOKENS", 4096),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Complete(ctx context.Context, system string, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		// Deterministic extraction.
		Temperature: 0,
		MaxTokens:   c.maxTokens,
	}

	var out chatResponse
	if err := c.post(ctx, "/chat/completions", req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in completion response")
	}
	return out.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	var out embedResponse
	if err := c.post(ctx, "/embeddings", embedRequest{Model: c.embedModel, Input: inputs}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("openai: embeddings count mismatch: want %d got %d", len(inputs), len(out.Data))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	c.log.Debug("llm call ok", "path", path, "elapsed_ms", time.Since(start).Milliseconds(), "response_bytes", len(raw))

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
