package vision

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

const describeInstruction = "Describe this image in detail: the scene, people, objects and actions, and what it likely conveys."

const maxDescriptionTokens = 1000

// HTTPDescriber requests image descriptions from an OpenAI-compatible
// multimodal gateway.
type HTTPDescriber struct {
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

func NewHTTPDescriber(cfg HTTPConfig) *HTTPDescriber {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPDescriber{
		gateway: strings.TrimRight(cfg.Gateway, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDescriber) Describe(ctx context.Context, imageBase64 string) (string, error) {
	payload := map[string]any{
		"model": d.model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{
						"type": "image_url",
						"image_url": map[string]any{
							"url":    "data:image/jpeg;base64," + imageBase64,
							"detail": "high",
						},
					},
					map[string]any{"type": "text", "text": describeInstruction},
				},
			},
		},
		"max_tokens": maxDescriptionTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gateway+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send vision request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return "", fmt.Errorf("vision gateway busy (status %d): %s", res.StatusCode, strings.TrimSpace(string(detail)))
		}
		return "", fmt.Errorf("vision gateway status %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("vision response carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
