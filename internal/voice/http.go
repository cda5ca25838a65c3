package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// HTTPSynthesizer calls an OpenAI-compatible speech gateway.
type HTTPSynthesizer struct {
	gateway string
	apiKey  string
	model   string
	client  *http.Client
	logger  *log.Logger
}

type HTTPConfig struct {
	Gateway string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewHTTPSynthesizer(cfg HTTPConfig, logger *log.Logger) *HTTPSynthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSynthesizer{
		gateway: strings.TrimRight(cfg.Gateway, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Synthesize renders text as MP3 bytes. speed values outside (0, 4] fall back
// to 1.0.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID string, speed float64) ([]byte, error) {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	if speed <= 0 || speed > 4 {
		speed = 1.0
	}
	payload := map[string]any{
		"model":           s.model,
		"voice":           voiceID,
		"input":           text,
		"response_format": "mp3",
		"speed":           speed,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gateway+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send speech request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("speech gateway status %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}
	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}

// ListVoices merges the fixed presets with the gateway's custom-voice
// listing. A listing failure degrades to presets only.
func (s *HTTPSynthesizer) ListVoices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, len(PresetVoices))
	copy(voices, PresetVoices)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gateway+"/audio/voice/list", nil)
	if err != nil {
		return voices, nil
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	res, err := s.client.Do(req)
	if err != nil {
		s.logger.Printf("voice: custom voice listing failed: %v", err)
		return voices, nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		s.logger.Printf("voice: custom voice listing status %d", res.StatusCode)
		return voices, nil
	}

	var parsed struct {
		Result []struct {
			URI        string `json:"uri"`
			CustomName string `json:"customName"`
		} `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		s.logger.Printf("voice: custom voice listing decode failed: %v", err)
		return voices, nil
	}
	for _, v := range parsed.Result {
		if v.URI == "" {
			continue
		}
		name := v.CustomName
		if name == "" {
			name = v.URI
		}
		voices = append(voices, Voice{ID: v.URI, Name: name, Custom: true})
	}
	return voices, nil
}
