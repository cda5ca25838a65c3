package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kurahq/kura/internal/voice"
)

type listVoicesResponse struct {
	DefaultVoiceID string        `json:"default_voice_id"`
	Voices         []voice.Voice `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "speech is not configured"})
		return
	}
	voices, err := s.synth.ListVoices(r.Context())
	if err != nil {
		s.logger.Printf("httpapi: list voices failed: %v", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "voice listing failed"})
		return
	}
	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoiceID: voice.DefaultVoiceID,
		Voices:         voices,
	})
}

type previewTTSRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
}

func (s *Server) handlePreviewTTS(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "speech is not configured"})
		return
	}
	var req previewTTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preview payload"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	audio, err := s.synth.Synthesize(r.Context(), text, req.VoiceID, req.Speed)
	if err != nil {
		s.logger.Printf("httpapi: tts preview failed: %v", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "speech synthesis failed"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
