package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/engine"
	"github.com/kurahq/kura/internal/observability"
	"github.com/kurahq/kura/internal/voice"
)

// Server exposes the GUI shell: an embedded chat page, a websocket turn
// stream and small JSON endpoints for memory, history, voices and
// preferences.
type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	synth    voice.Synthesizer
	metrics  *observability.Metrics
	logger   *log.Logger
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, eng *engine.Engine, synth voice.Synthesizer, metrics *observability.Metrics, logger *log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		synth:   synth,
		metrics: metrics,
		logger:  logger,
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections may drive the chat
				// unless explicitly opened up; other sites must not be able
				// to submit turns if the GUI is ever exposed beyond
				// localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/memory", s.handleListMemory)
	r.Delete("/v1/history", s.handleClearHistory)
	r.Get("/v1/voices", s.handleListVoices)
	r.Post("/v1/tts/preview", s.handlePreviewTTS)
	r.Get("/v1/preferences", s.handleGetPreferences)
	r.Put("/v1/preferences", s.handlePutPreferences)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"busy":   s.engine.Busy(),
	})
}

type memoryListResponse struct {
	Records []memoryRecordView `json:"records"`
}

type memoryRecordView struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

const recordTimeLayout = "2006-01-02 15:04:05"

func (s *Server) handleListMemory(w http.ResponseWriter, _ *http.Request) {
	records := s.engine.Memory().Records()
	out := memoryListResponse{Records: make([]memoryRecordView, len(records))}
	for i, rec := range records {
		out.Records[i] = memoryRecordView{
			ID:       rec.ID,
			Content:  rec.Content,
			Created:  rec.CreatedAt.Format(recordTimeLayout),
			Modified: rec.ModifiedAt.Format(recordTimeLayout),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if s.engine.Busy() {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "a turn is in flight"})
		return
	}
	s.engine.History().Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Preferences())
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs config.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid preferences payload"})
		return
	}
	prefs = prefs.Normalize()
	s.engine.SetPreferences(prefs)

	doc := s.cfg.Document
	doc.Preferences = prefs
	if err := config.SaveDocument(s.cfg.DataDir, doc); err != nil {
		s.logger.Printf("httpapi: persist preferences failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "preferences applied but not persisted"})
		return
	}
	s.cfg.Document = doc
	respondJSON(w, http.StatusOK, prefs)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
