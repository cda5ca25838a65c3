package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/kurahq/kura/internal/brain"
	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/history"
	"github.com/kurahq/kura/internal/memory"
	"github.com/kurahq/kura/internal/reply"
	"github.com/kurahq/kura/internal/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine(t *testing.T, client brain.Client) *Engine {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	logger := testLogger()
	clock := func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }

	mem, err := memory.New(fs, logger, memory.WithClock(clock))
	if err != nil {
		t.Fatalf("memory.New() error = %v", err)
	}
	hist, err := history.New(fs, logger, 8)
	if err != nil {
		t.Fatalf("history.New() error = %v", err)
	}
	interp, err := reply.NewInterpreter(mem, logger)
	if err != nil {
		t.Fatalf("reply.NewInterpreter() error = %v", err)
	}
	return New(Options{
		Logger:      logger,
		Client:      client,
		Memory:      mem,
		History:     hist,
		Interpreter: interp,
		Preferences: config.Preferences{},
		Clock:       clock,
	})
}

func await(t *testing.T, ch <-chan TurnResult) TurnResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatalf("turn did not complete")
		return TurnResult{}
	}
}

func TestTurnAppliesAddAndAppendsHistory(t *testing.T) {
	client := &brain.Mock{Reply: `{"response":"R","memory_operations":[{"action":"add","content":"C"}]}`}
	e := newTestEngine(t, client)

	ch, err := e.Submit(context.Background(), "remember C please")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	res := await(t, ch)

	if res.Err != nil {
		t.Fatalf("turn error = %v", res.Err)
	}
	if res.DisplayText != "R" {
		t.Fatalf("DisplayText = %q, want %q", res.DisplayText, "R")
	}
	if len(res.Applied) != 1 || res.Applied[0].ID != "1" {
		t.Fatalf("Applied = %+v, want one add with id 1", res.Applied)
	}
	recs := e.Memory().Records()
	if len(recs) != 1 || recs[0].Content != "C" {
		t.Fatalf("memory records = %+v", recs)
	}

	turns := e.History().RecentForPrompt(4)
	if len(turns) != 1 {
		t.Fatalf("history has %d turns, want 1", len(turns))
	}
	if turns[0].User != "remember C please" || turns[0].AI != "R" {
		t.Fatalf("history turn = %+v", turns[0])
	}
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	client := &blockingClient{started: make(chan struct{}), release: release}
	e := newTestEngine(t, client)

	ch, err := e.Submit(context.Background(), "first")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-client.started

	if _, err := e.Submit(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("second Submit() error = %v, want ErrTurnInFlight", err)
	}
	if !e.Busy() {
		t.Fatalf("Busy() = false while turn outstanding")
	}

	close(release)
	await(t, ch)

	// The gate reopens once the completion has been delivered.
	ch2, err := e.Submit(context.Background(), "third")
	if err != nil {
		t.Fatalf("Submit() after completion error = %v", err)
	}
	await(t, ch2)
}

func TestServiceFailureProducesErrorResultWithoutStateChange(t *testing.T) {
	client := &brain.Mock{Err: &brain.ServiceError{Provider: "chat", Status: 503, Retryable: true, Err: errors.New("down")}}
	e := newTestEngine(t, client)

	ch, err := e.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	res := await(t, ch)

	if res.Err == nil {
		t.Fatalf("turn error = nil, want service failure")
	}
	if e.Memory().Len() != 0 {
		t.Fatalf("memory mutated on failed turn")
	}
	if e.History().Len() != 0 {
		t.Fatalf("history appended on failed turn")
	}
}

func TestMalformedReplyShownVerbatim(t *testing.T) {
	client := &brain.Mock{Reply: "plain text, no JSON"}
	e := newTestEngine(t, client)

	ch, err := e.Submit(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	res := await(t, ch)

	if !res.Malformed {
		t.Fatalf("Malformed = false")
	}
	if res.DisplayText != "plain text, no JSON" {
		t.Fatalf("DisplayText = %q", res.DisplayText)
	}
	// The degraded turn still lands in history.
	if e.History().Len() != 1 {
		t.Fatalf("history has %d turns, want 1", e.History().Len())
	}
}

func TestSetPreferencesAffectsLaterTurns(t *testing.T) {
	e := newTestEngine(t, &brain.Mock{})
	e.SetPreferences(config.Preferences{Profession: "botanist"})

	if got := e.Preferences().Profession; got != "botanist" {
		t.Fatalf("Profession = %q", got)
	}
}

// blockingClient holds the turn open until released, to exercise the
// one-in-flight gate.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
	once    bool
}

func (b *blockingClient) Complete(ctx context.Context, _ string) (string, error) {
	if !b.once {
		b.once = true
		close(b.started)
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return `{"response":"done","memory_operations":[]}`, nil
}
