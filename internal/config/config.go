package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// None is the sentinel for an unset preference field.
const None = "none"

// ConfigFileName is the durable configuration document inside the data directory.
const ConfigFileName = "config.json"

// Preferences is the static user-preference snapshot included in every prompt.
type Preferences struct {
	Profession     string `json:"profession"`
	PreferredTitle string `json:"preferred_title"`
	ReplyStyle     string `json:"reply_style"`
	AdditionalInfo string `json:"additional_info"`
	LastUpdated    string `json:"last_updated,omitempty"`
}

// IsEmpty reports whether every preference field carries the sentinel value.
func (p Preferences) IsEmpty() bool {
	return normalize(p.Profession) == None &&
		normalize(p.PreferredTitle) == None &&
		normalize(p.ReplyStyle) == None &&
		normalize(p.AdditionalInfo) == None
}

// Normalize maps empty fields to the sentinel so downstream code only has one
// "unset" spelling to check.
func (p Preferences) Normalize() Preferences {
	p.Profession = normalize(p.Profession)
	p.PreferredTitle = normalize(p.PreferredTitle)
	p.ReplyStyle = normalize(p.ReplyStyle)
	p.AdditionalInfo = normalize(p.AdditionalInfo)
	return p
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, None) {
		return None
	}
	return v
}

// Document is the durable config.json schema: service credentials, gateways
// and the user preference snapshot.
type Document struct {
	ChatKey      string      `json:"chat_key"`
	ChatGateway  string      `json:"chat_gateway"`
	MediaKey     string      `json:"media_key"`
	MediaGateway string      `json:"media_gateway"`
	Preferences  Preferences `json:"preferences"`
}

// Config contains all runtime settings for the assistant.
type Config struct {
	Document

	DataDir          string
	BindAddr         string
	DatabaseURL      string
	MetricsNamespace string
	AllowAnyOrigin   bool

	ChatModel   string
	VisionModel string
	TTSModel    string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

const (
	defaultChatGateway  = "https://api.openai.com/v1"
	defaultMediaGateway = "https://api.siliconflow.cn/v1"
	defaultChatModel    = "gpt-4o"
	defaultVisionModel  = "Qwen/Qwen2.5-VL-72B-Instruct"
	defaultTTSModel     = "FunAudioLLM/CosyVoice2-0.5B"
)

// Load reads the config document from dataDir (missing file means first run),
// applies environment overrides and safe defaults, and validates.
func Load(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		dataDir = envOrDefault("KURA_DATA_DIR", ".")
	}

	doc, err := LoadDocument(dataDir)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Document:         doc,
		DataDir:          dataDir,
		BindAddr:         envOrDefault("KURA_BIND_ADDR", ":8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("KURA_DATABASE_URL")),
		MetricsNamespace: envOrDefault("KURA_METRICS_NAMESPACE", "kura"),
		ChatModel:        envOrDefault("KURA_CHAT_MODEL", defaultChatModel),
		VisionModel:      envOrDefault("KURA_VISION_MODEL", defaultVisionModel),
		TTSModel:         envOrDefault("KURA_TTS_MODEL", defaultTTSModel),
		RequestTimeout:   60 * time.Second,
		ShutdownTimeout:  15 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("KURA_CHAT_GATEWAY")); v != "" {
		cfg.ChatGateway = v
	}
	if v := strings.TrimSpace(os.Getenv("KURA_MEDIA_GATEWAY")); v != "" {
		cfg.MediaGateway = v
	}
	if v := strings.TrimSpace(os.Getenv("KURA_CHAT_KEY")); v != "" {
		cfg.ChatKey = v
	}
	if v := strings.TrimSpace(os.Getenv("KURA_MEDIA_KEY")); v != "" {
		cfg.MediaKey = v
	}
	if cfg.ChatGateway == "" {
		cfg.ChatGateway = defaultChatGateway
	}
	if cfg.MediaGateway == "" {
		cfg.MediaGateway = defaultMediaGateway
	}
	cfg.Preferences = cfg.Preferences.Normalize()

	cfg.RequestTimeout, err = durationFromEnv("KURA_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("KURA_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("KURA_ALLOW_ANY_ORIGIN", false)
	if err != nil {
		return Config{}, err
	}

	if cfg.RequestTimeout < time.Second {
		return Config{}, fmt.Errorf("KURA_REQUEST_TIMEOUT must be at least 1s")
	}
	if !strings.HasPrefix(cfg.ChatGateway, "http://") && !strings.HasPrefix(cfg.ChatGateway, "https://") {
		return Config{}, fmt.Errorf("chat gateway %q is not an HTTP URL", cfg.ChatGateway)
	}
	if !strings.HasPrefix(cfg.MediaGateway, "http://") && !strings.HasPrefix(cfg.MediaGateway, "https://") {
		return Config{}, fmt.Errorf("media gateway %q is not an HTTP URL", cfg.MediaGateway)
	}

	return cfg, nil
}

// FirstRun reports whether interactive setup is still required.
func (c Config) FirstRun() bool {
	return strings.TrimSpace(c.ChatKey) == ""
}

// LoadDocument reads config.json from dataDir. A missing file yields an empty
// document and no error.
func LoadDocument(dataDir string) (Document, error) {
	path := filepath.Join(dataDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("read config document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse config document: %w", err)
	}
	doc.Preferences = doc.Preferences.Normalize()
	return doc, nil
}

// SaveDocument writes the config document atomically (tmp file + rename).
func SaveDocument(dataDir string, doc Document) error {
	doc.Preferences = doc.Preferences.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config document: %w", err)
	}
	path := filepath.Join(dataDir, ConfigFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config document: %w", err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
