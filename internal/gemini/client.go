package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// EnvAPIKey names the environment variable carrying the API key.
	EnvAPIKey = "GEMINI_API_KEY"
)

// Client calls the Gemini generateContent API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Gemini client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logging.WithComponent(slog.Default(), "gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model binds a model name to this client, satisfying runtime.Model.
func (c *Client) Model(name string) runtime.Model {
	return &model{client: c, name: name}
}

type model struct {
	client *Client
	name   string
}

// Name returns the bound model name.
func (m *model) Name() string {
	return m.name
}

// GenerateStream posts the request to the streaming endpoint and decodes
// the SSE response into chunks. The channel closes when the stream ends or
// ctx is cancelled; a decode or transport failure mid-stream arrives as a
// final chunk with Err set.
func (m *model) GenerateStream(ctx context.Context, req *runtime.Request) (<-chan *runtime.Chunk, error) {
	body, err := json.Marshal(toWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", m.client.baseURL, m.name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", m.client.apiKey)

	resp, err := m.client.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call model %s: %w", m.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model %s returned %s: %s", m.name, resp.Status, strings.TrimSpace(string(data)))
	}

	out := make(chan *runtime.Chunk)
	go m.stream(ctx, resp.Body, out)
	return out, nil
}

func (m *model) stream(ctx context.Context, body io.ReadCloser, out chan<- *runtime.Chunk) {
	defer close(out)
	defer body.Close()

	logger := m.client.logger.With("model", m.name)

	scanner := bufio.NewScanner(body)
	// SSE data lines carry whole JSON chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			logger.Warn("undecodable stream chunk", logging.Err(err))
			m.send(ctx, out, &runtime.Chunk{Err: fmt.Errorf("failed to decode stream chunk: %w", err)})
			return
		}
		if c := toChunk(&chunk); c != nil {
			if !m.send(ctx, out, c) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		m.send(ctx, out, &runtime.Chunk{Err: fmt.Errorf("stream read failed: %w", err)})
	}
}

func (m *model) send(ctx context.Context, out chan<- *runtime.Chunk, c *runtime.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
