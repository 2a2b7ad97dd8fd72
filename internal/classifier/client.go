// Package classifier is a thin client for an OpenAI-compatible
// chat-completions gateway. The extraction and verification adapters build
// requests on top of it; this package only handles transport, auth, and
// response decoding.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dErrors "idproof/pkg/domain-errors"
	"idproof/pkg/platform/circuit"

	"idproof/internal/platform/config"
)

// ChatRequest is the chat-completions request body. Tools and ToolChoice are
// omitted from the wire form when unset.
type ChatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Tools       []Tool     `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data URL or remote URL.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolChoice forces the model to call a named function.
type ToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// ForceTool returns a tool_choice that requires the named function.
func ForceTool(name string) *ToolChoice {
	tc := &ToolChoice{Type: "function"}
	tc.Function.Name = name
	return tc
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

type ToolCall struct {
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Client calls the classifier gateway. A circuit breaker guards the gateway:
// sustained transport failures short-circuit subsequent calls instead of
// holding every session for the full timeout.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *circuit.Breaker
	log        *slog.Logger
}

func NewClient(cfg config.ClassifierConfig, log *slog.Logger) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: circuit.New("classifier"),
		log:     log,
	}
}

// Model reports the configured model identifier, for adapters building
// requests.
func (c *Client) Model() string { return c.model }

// Complete posts a chat-completions request and returns the decoded response.
// Transport failures, non-2xx statuses, and undecodable bodies all come back
// as internal errors; the caller decides whether that is an extraction or a
// verification failure.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, dErrors.New(dErrors.CodeInternal, "classifier unavailable")
	}
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal classifier request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create classifier request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "classifier request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("classifier returned non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		c.recordFailure()
		return nil, dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("classifier returned status %d", resp.StatusCode))
	}
	c.recordSuccess()

	var decoded ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "decode classifier response")
	}
	if len(decoded.Choices) == 0 {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "classifier returned no choices")
	}
	return &decoded, nil
}

// Breaker outcomes are logged only on transitions to keep steady-state noise
// out of the logs.
func (c *Client) recordFailure() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.log.Warn("classifier circuit opened", slog.String("breaker", c.breaker.Name()))
	}
}

func (c *Client) recordSuccess() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.log.Info("classifier circuit closed", slog.String("breaker", c.breaker.Name()))
	}
}
