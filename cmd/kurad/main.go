package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kurahq/kura/internal/brain"
	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/engine"
	"github.com/kurahq/kura/internal/history"
	"github.com/kurahq/kura/internal/httpapi"
	"github.com/kurahq/kura/internal/memory"
	"github.com/kurahq/kura/internal/observability"
	"github.com/kurahq/kura/internal/reply"
	"github.com/kurahq/kura/internal/store"
	"github.com/kurahq/kura/internal/vision"
	"github.com/kurahq/kura/internal/voice"
)

const historyRetention = 20

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.FirstRun() {
		log.Fatalf("no chat key configured: run the kura console once for setup, or set KURA_CHAT_KEY")
	}

	logger := log.Default()
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	docs, err := store.New(ctx, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("document store init failed: %v", err)
	}
	defer docs.Close()

	memoryStore, err := memory.New(docs, logger)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	historyWindow, err := history.New(docs, logger, historyRetention)
	if err != nil {
		log.Fatalf("history init failed: %v", err)
	}
	interpreter, err := reply.NewInterpreter(memoryStore, logger)
	if err != nil {
		log.Fatalf("reply interpreter init failed: %v", err)
	}

	chatClient := brain.NewHTTPClient(brain.HTTPConfig{
		Gateway: cfg.ChatGateway,
		APIKey:  cfg.ChatKey,
		Model:   cfg.ChatModel,
		Timeout: cfg.RequestTimeout,
	})

	var enricher *vision.Enricher
	var synth voice.Synthesizer
	if strings.TrimSpace(cfg.MediaKey) != "" {
		enricher = vision.NewEnricher(vision.NewHTTPDescriber(vision.HTTPConfig{
			Gateway: cfg.MediaGateway,
			APIKey:  cfg.MediaKey,
			Model:   cfg.VisionModel,
			Timeout: cfg.RequestTimeout,
		}), logger)
		synth = voice.NewHTTPSynthesizer(voice.HTTPConfig{
			Gateway: cfg.MediaGateway,
			APIKey:  cfg.MediaKey,
			Model:   cfg.TTSModel,
			Timeout: cfg.RequestTimeout,
		}, logger)
	} else {
		log.Printf("no media key configured: image analysis and speech are disabled")
	}

	eng := engine.New(engine.Options{
		Logger:      logger,
		Client:      chatClient,
		Enricher:    enricher,
		Memory:      memoryStore,
		History:     historyWindow,
		Interpreter: interpreter,
		Metrics:     metrics,
		Preferences: cfg.Preferences,
	})

	api := httpapi.New(cfg, eng, synth, metrics, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
