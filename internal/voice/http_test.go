package voice

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSynthesizeSendsSpeechRequest(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer ts.Close()

	s := NewHTTPSynthesizer(HTTPConfig{Gateway: ts.URL, APIKey: "k", Model: "FunAudioLLM/CosyVoice2-0.5B"}, testLogger())
	audio, err := s.Synthesize(context.Background(), "hello", "FunAudioLLM/CosyVoice2-0.5B:anna", 1.25)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if gotBody["voice"] != "FunAudioLLM/CosyVoice2-0.5B:anna" {
		t.Fatalf("voice = %v", gotBody["voice"])
	}
	if gotBody["response_format"] != "mp3" {
		t.Fatalf("response_format = %v", gotBody["response_format"])
	}
	if gotBody["speed"] != 1.25 {
		t.Fatalf("speed = %v", gotBody["speed"])
	}
}

func TestSynthesizeDefaultsVoiceAndSpeed(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte("x"))
	}))
	defer ts.Close()

	s := NewHTTPSynthesizer(HTTPConfig{Gateway: ts.URL}, testLogger())
	if _, err := s.Synthesize(context.Background(), "hi", "", -2); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if gotBody["voice"] != DefaultVoiceID {
		t.Fatalf("voice = %v, want default", gotBody["voice"])
	}
	if gotBody["speed"] != 1.0 {
		t.Fatalf("speed = %v, want 1.0", gotBody["speed"])
	}
}

func TestSynthesizeGatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such voice", http.StatusBadRequest)
	}))
	defer ts.Close()

	s := NewHTTPSynthesizer(HTTPConfig{Gateway: ts.URL}, testLogger())
	if _, err := s.Synthesize(context.Background(), "hi", "bogus", 1); err == nil {
		t.Fatalf("Synthesize() accepted gateway error")
	}
}

func TestListVoicesMergesCustomAfterPresets(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/voice/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"uri": "speech:custom-1", "customName": "My Voice"},
				{"customName": "no uri, dropped"},
			},
		})
	}))
	defer ts.Close()

	s := NewHTTPSynthesizer(HTTPConfig{Gateway: ts.URL}, testLogger())
	voices, err := s.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != len(PresetVoices)+1 {
		t.Fatalf("ListVoices() = %d voices, want %d", len(voices), len(PresetVoices)+1)
	}
	last := voices[len(voices)-1]
	if !last.Custom || last.ID != "speech:custom-1" || last.Name != "My Voice" {
		t.Fatalf("custom voice = %+v", last)
	}
}

func TestListVoicesDegradesToPresets(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := NewHTTPSynthesizer(HTTPConfig{Gateway: ts.URL}, testLogger())
	voices, err := s.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != len(PresetVoices) {
		t.Fatalf("ListVoices() = %d voices, want presets only", len(voices))
	}
}
