package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kurahq/kura/internal/brain"
	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/engine"
	"github.com/kurahq/kura/internal/history"
	"github.com/kurahq/kura/internal/memory"
	"github.com/kurahq/kura/internal/reply"
	"github.com/kurahq/kura/internal/store"
	"github.com/kurahq/kura/internal/vision"
	"github.com/kurahq/kura/internal/voice"
)

// The console keeps a shorter prompt window backlog than the GUI server.
const historyRetention = 8

const logFileName = "app.log"

func main() {
	if err := run(); err != nil {
		log.Fatalf("kura: %v", err)
	}
}

func run() error {
	dataDir := strings.TrimSpace(os.Getenv("KURA_DATA_DIR"))
	if dataDir == "" {
		dataDir = "."
	}

	logger, closeLog := newLogger(dataDir)
	defer closeLog()

	rl, err := readline.New("You: ")
	if err != nil {
		return err
	}
	defer rl.Close()

	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}
	if cfg.FirstRun() {
		if err := firstRunSetup(rl, dataDir); err != nil {
			return err
		}
		cfg, err = config.Load(dataDir)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	docs, err := store.New(ctx, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer docs.Close()

	memoryStore, err := memory.New(docs, logger)
	if err != nil {
		return err
	}
	historyWindow, err := history.New(docs, logger, historyRetention)
	if err != nil {
		return err
	}
	interpreter, err := reply.NewInterpreter(memoryStore, logger)
	if err != nil {
		return err
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
	}

	eng := engine.New(engine.Options{
		Logger:      logger,
		Client:      chatClient,
		Enricher:    enricher,
		Memory:      memoryStore,
		History:     historyWindow,
		Interpreter: interpreter,
		Preferences: cfg.Preferences,
	})

	fmt.Println("Kura is ready. Type a message, or /menu for commands.")

	session := consoleSession{
		rl:      rl,
		engine:  eng,
		synth:   synth,
		logger:  logger,
		dataDir: dataDir,
		voiceID: voice.DefaultVoiceID,
	}
	return session.loop(ctx)
}

// newLogger keeps diagnostics out of the conversation: everything goes to
// app.log in the data directory, with stderr as the fallback sink.
func newLogger(dataDir string) (*log.Logger, func()) {
	f, err := os.OpenFile(filepath.Join(dataDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}
	}
	return log.New(f, "", log.LstdFlags), func() { _ = f.Close() }
}

type consoleSession struct {
	rl      *readline.Instance
	engine  *engine.Engine
	synth   voice.Synthesizer
	logger  *log.Logger
	dataDir string

	speak   bool
	voiceID string
}

func (s *consoleSession) loop(ctx context.Context) error {
	for {
		s.rl.SetPrompt("You: ")
		line, err := s.rl.Readline()
		if err != nil { // io.EOF or interrupt
			return nil
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/menu":
			if done := s.menu(ctx); done {
				return nil
			}
		default:
			s.turn(ctx, line)
		}
	}
}

func (s *consoleSession) turn(ctx context.Context, input string) {
	ch, err := s.engine.Submit(ctx, input)
	if errors.Is(err, engine.ErrTurnInFlight) {
		fmt.Println("(still thinking about the previous message)")
		return
	}
	if err != nil {
		fmt.Printf("Turn failed: %v\n", err)
		return
	}

	res := <-ch
	if res.Err != nil {
		var se *brain.ServiceError
		if errors.As(res.Err, &se) && se.Retryable {
			fmt.Printf("The AI service is unavailable right now (%v). Please try again.\n", res.Err)
		} else {
			fmt.Printf("Turn failed: %v\n", res.Err)
		}
		return
	}

	fmt.Printf("Kura: %s\n", res.DisplayText)
	for _, cmd := range res.Applied {
		fmt.Printf("  (memory %s: [%s] %s)\n", cmd.Action, cmd.ID, cmd.Content)
	}

	if s.speak && s.synth != nil {
		s.speakReply(ctx, res.DisplayText)
	}
}

func (s *consoleSession) speakReply(ctx context.Context, text string) {
	audio, err := s.synth.Synthesize(ctx, text, s.voiceID, 1.0)
	if err != nil {
		s.logger.Printf("speech synthesis failed: %v", err)
		fmt.Println("(speech synthesis failed, see the log)")
		return
	}
	path := filepath.Join(s.dataDir, "output.mp3")
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		s.logger.Printf("write audio file: %v", err)
		fmt.Println("(could not write the audio file, see the log)")
		return
	}
	fmt.Printf("(audio saved to %s)\n", path)
}

// menu returns true when the user chose to exit.
func (s *consoleSession) menu(ctx context.Context) bool {
	for {
		fmt.Println()
		fmt.Println("1) back to the conversation")
		fmt.Println("2) show permanent memory")
		fmt.Println("3) clear chat history")
		fmt.Println("4) toggle voice replies (currently " + onOff(s.speak) + ")")
		fmt.Println("5) pick a voice")
		fmt.Println("6) exit")
		choice := s.prompt("> ")
		switch choice {
		case "1", "":
			return false
		case "2":
			s.showMemory()
		case "3":
			s.engine.History().Clear()
			fmt.Println("Chat history cleared.")
		case "4":
			if s.synth == nil {
				fmt.Println("Speech is not configured: set a media key in config.json.")
				break
			}
			s.speak = !s.speak
			fmt.Println("Voice replies are now " + onOff(s.speak) + ".")
		case "5":
			s.pickVoice(ctx)
		case "6":
			fmt.Println("Bye.")
			return true
		default:
			fmt.Println("Unknown choice.")
		}
	}
}

func (s *consoleSession) showMemory() {
	text := s.engine.Memory().RenderText()
	if text == "" {
		fmt.Println("Permanent memory is empty.")
		return
	}
	fmt.Println(text)
}

func (s *consoleSession) pickVoice(ctx context.Context) {
	if s.synth == nil {
		fmt.Println("Speech is not configured: set a media key in config.json.")
		return
	}
	voices, err := s.synth.ListVoices(ctx)
	if err != nil || len(voices) == 0 {
		fmt.Println("Could not list voices right now.")
		return
	}
	for i, v := range voices {
		marker := " "
		if v.ID == s.voiceID {
			marker = "*"
		}
		label := v.Name
		if v.Custom {
			label += " (custom)"
		}
		fmt.Printf("%s %2d) %s\n", marker, i+1, label)
	}
	choice := s.prompt("voice> ")
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(voices) {
		fmt.Println("Keeping the current voice.")
		return
	}
	s.voiceID = voices[n-1].ID
	fmt.Printf("Voice set to %s.\n", voices[n-1].Name)
}

func (s *consoleSession) prompt(p string) string {
	s.rl.SetPrompt(p)
	line, err := s.rl.Readline()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// firstRunSetup collects credentials and the preference snapshot interactively
// and writes the initial config document.
func firstRunSetup(rl *readline.Instance, dataDir string) error {
	fmt.Println("First run: let's set Kura up. Press enter to accept a default.")

	ask := func(prompt string) string {
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(line)
	}

	var doc config.Document
	for doc.ChatKey == "" {
		doc.ChatKey = ask("Chat service API key (required): ")
		if doc.ChatKey == "" {
			fmt.Println("A chat key is required.")
		}
	}
	doc.ChatGateway = ask("Chat gateway URL (default OpenAI): ")
	doc.MediaKey = ask("Media service API key (enter to skip image/speech): ")
	if doc.MediaKey != "" {
		doc.MediaGateway = ask("Media gateway URL (default SiliconFlow): ")
	}

	fmt.Println("A few optional preferences; enter \"none\" or nothing to skip.")
	doc.Preferences.Profession = ask("Your profession: ")
	doc.Preferences.PreferredTitle = ask("How should Kura address you: ")
	doc.Preferences.ReplyStyle = ask("Preferred reply style: ")
	doc.Preferences.AdditionalInfo = ask("Anything else Kura should know: ")

	if err := config.SaveDocument(dataDir, doc); err != nil {
		return err
	}
	fmt.Printf("Saved %s.\n", filepath.Join(dataDir, config.ConfigFileName))
	return nil
}
