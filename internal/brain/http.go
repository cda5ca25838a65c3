package brain

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

	"github.com/kurahq/kura/internal/reliability"
)

const maxReplyTokens = 2000

// HTTPClient talks to an OpenAI-compatible chat-completions gateway.
type HTTPClient struct {
	gateway string
	apiKey  string
	model   string
	client  *http.Client
}

type HTTPConfig struct {
	Gateway string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		gateway: strings.TrimRight(cfg.Gateway, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	MaxTokens      int            `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the assembled prompt as a single user message and returns
// the first choice's content.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat{Type: "json_object"},
		MaxTokens:      maxReplyTokens,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", &ServiceError{Provider: "chat", Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gateway+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &ServiceError{Provider: "chat", Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Provider: "chat", Retryable: true, Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &ServiceError{
			Provider:  "chat",
			Status:    res.StatusCode,
			Retryable: reliability.IsRetryableHTTPStatus(res.StatusCode),
			Err:       fmt.Errorf("gateway returned %q", strings.TrimSpace(string(body))),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", &ServiceError{Provider: "chat", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ServiceError{Provider: "chat", Err: errors.New("response carried no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}
