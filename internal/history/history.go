// Package history keeps the append-only log of conversation turns. The
// running session sees the full in-memory log; the durable document is bounded
// by a caller-configured retention (the console persists 8 turns, the GUI 20).
package history

import (
	"fmt"
	"log"
	"time"

	"github.com/kurahq/kura/internal/store"
)

// DefaultPromptWindow is how many trailing turns the prompt includes.
const DefaultPromptWindow = 4

// Turn is one user input paired with the assistant's display text. Immutable
// once appended.
type Turn struct {
	User      string
	AI        string
	Timestamp time.Time
}

// Window is the conversation log with write-through persistence.
type Window struct {
	docs      store.Documents
	logger    *log.Logger
	retention int
	turns     []Turn
}

// New loads the durable history document. retention bounds how many trailing
// turns each persist keeps; older turns are dropped permanently, never
// archived.
func New(docs store.Documents, logger *log.Logger, retention int) (*Window, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("history retention must be positive, got %d", retention)
	}
	loaded, err := docs.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("load history document: %w", err)
	}
	w := &Window{docs: docs, logger: logger, retention: retention}
	for _, t := range loaded {
		w.turns = append(w.turns, Turn{User: t.User, AI: t.AI, Timestamp: t.Timestamp})
	}
	return w, nil
}

// Append adds a turn and persists synchronously before returning. A
// persistence failure is logged; the in-memory log always reflects the append.
func (w *Window) Append(t Turn) {
	w.turns = append(w.turns, t)
	w.persist()
}

// RecentForPrompt returns the last limit turns, oldest first. A non-positive
// limit uses DefaultPromptWindow.
func (w *Window) RecentForPrompt(limit int) []Turn {
	if limit <= 0 {
		limit = DefaultPromptWindow
	}
	return w.tail(limit)
}

// RecentForPersistence returns the last limit turns, oldest first, as the
// persistence layer would keep them.
func (w *Window) RecentForPersistence(limit int) []Turn {
	return w.tail(limit)
}

// Clear empties the log and persists the empty document.
func (w *Window) Clear() {
	w.turns = nil
	w.persist()
}

// Len reports the number of in-memory turns for this session.
func (w *Window) Len() int { return len(w.turns) }

func (w *Window) tail(limit int) []Turn {
	if limit <= 0 || len(w.turns) == 0 {
		return nil
	}
	if limit > len(w.turns) {
		limit = len(w.turns)
	}
	out := make([]Turn, limit)
	copy(out, w.turns[len(w.turns)-limit:])
	return out
}

func (w *Window) persist() {
	kept := w.tail(w.retention)
	doc := make([]store.HistoryTurn, len(kept))
	for i, t := range kept {
		doc[i] = store.HistoryTurn{User: t.User, AI: t.AI, Timestamp: t.Timestamp}
	}
	if err := w.docs.SaveHistory(doc); err != nil {
		w.logger.Printf("history: persist failed, in-memory log retained: %v", err)
	}
}
