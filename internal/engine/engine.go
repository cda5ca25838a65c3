// Package engine runs one conversational turn end to end: vision enrichment,
// prompt assembly, the blocking model call, reply interpretation and history
// persistence. The blocking work happens on a worker goroutine per turn; the
// caller's interactive loop consumes the completion from a channel before
// touching any UI-facing state.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kurahq/kura/internal/brain"
	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/history"
	"github.com/kurahq/kura/internal/memory"
	"github.com/kurahq/kura/internal/observability"
	"github.com/kurahq/kura/internal/prompt"
	"github.com/kurahq/kura/internal/reply"
	"github.com/kurahq/kura/internal/vision"
)

// ErrTurnInFlight is returned while a previous turn is still outstanding.
// There is at most one in-flight turn; shells disable input submission until
// the outstanding turn completes.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// TurnResult is the completion message delivered for one submitted turn.
type TurnResult struct {
	TurnID      string
	DisplayText string
	Applied     []reply.Command
	NoOps       int
	Skipped     int
	Malformed   bool
	Err         error
}

// Engine owns the per-turn pipeline. MemoryStore and HistoryWindow are only
// ever touched from the single in-flight worker, so the busy gate is the only
// synchronization they need.
type Engine struct {
	logger   *log.Logger
	client   brain.Client
	enricher *vision.Enricher
	memory   *memory.Store
	history  *history.Window
	interp   *reply.Interpreter
	metrics  *observability.Metrics
	now      func() time.Time

	prefsMu sync.RWMutex
	prefs   config.Preferences

	busy atomic.Bool
}

// Options carries the engine's collaborators. Enricher and Metrics may be nil.
type Options struct {
	Logger      *log.Logger
	Client      brain.Client
	Enricher    *vision.Enricher
	Memory      *memory.Store
	History     *history.Window
	Interpreter *reply.Interpreter
	Metrics     *observability.Metrics
	Preferences config.Preferences
	Clock       func() time.Time
}

func New(opts Options) *Engine {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logger:   opts.Logger,
		client:   opts.Client,
		enricher: opts.Enricher,
		memory:   opts.Memory,
		history:  opts.History,
		interp:   opts.Interpreter,
		metrics:  opts.Metrics,
		prefs:    opts.Preferences.Normalize(),
		now:      now,
	}
}

// Memory exposes the store for read-only surfaces (memory listing).
func (e *Engine) Memory() *memory.Store { return e.memory }

// History exposes the window for read-only surfaces and explicit clears.
func (e *Engine) History() *history.Window { return e.history }

// Preferences returns the current preference snapshot.
func (e *Engine) Preferences() config.Preferences {
	e.prefsMu.RLock()
	defer e.prefsMu.RUnlock()
	return e.prefs
}

// SetPreferences swaps the snapshot used by subsequent turns.
func (e *Engine) SetPreferences(p config.Preferences) {
	e.prefsMu.Lock()
	e.prefs = p.Normalize()
	e.prefsMu.Unlock()
}

// Busy reports whether a turn is outstanding.
func (e *Engine) Busy() bool { return e.busy.Load() }

// Submit starts one turn on a worker goroutine and returns the channel its
// completion will be delivered on. It fails fast with ErrTurnInFlight while a
// previous turn is outstanding.
func (e *Engine) Submit(ctx context.Context, input string) (<-chan TurnResult, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	ch := make(chan TurnResult, 1)
	go e.run(ctx, input, ch)
	return ch, nil
}

func (e *Engine) run(ctx context.Context, input string, ch chan<- TurnResult) {
	defer e.busy.Store(false)

	turnID := uuid.NewString()
	started := time.Now()

	enriched := e.enricher.EnrichInput(ctx, input)
	p := prompt.Assemble(e.Preferences(), e.memory.RenderText(), e.history.RecentForPrompt(history.DefaultPromptWindow), enriched, e.now())

	raw, err := e.client.Complete(ctx, p)
	if err != nil {
		e.logger.Printf("turn %s: model call failed: %v", turnID, err)
		e.countProviderError(err)
		e.countTurn("error")
		ch <- TurnResult{TurnID: turnID, Err: err}
		return
	}

	res := e.interp.Interpret(raw)
	// History keeps the user's literal input, not the vision-enriched form.
	e.history.Append(history.Turn{User: input, AI: res.DisplayText, Timestamp: e.now()})

	e.recordReplyMetrics(res)
	e.countTurn("ok")
	if e.metrics != nil {
		e.metrics.ObserveTurnDuration(time.Since(started))
	}

	ch <- TurnResult{
		TurnID:      turnID,
		DisplayText: res.DisplayText,
		Applied:     res.Applied,
		NoOps:       res.NoOps,
		Skipped:     res.Skipped,
		Malformed:   res.Malformed,
	}
}

func (e *Engine) countTurn(outcome string) {
	if e.metrics != nil {
		e.metrics.Turns.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) countProviderError(err error) {
	if e.metrics == nil {
		return
	}
	provider := "chat"
	var se *brain.ServiceError
	if errors.As(err, &se) && se.Provider != "" {
		provider = se.Provider
	}
	e.metrics.ProviderErrors.WithLabelValues(provider).Inc()
}

func (e *Engine) recordReplyMetrics(res reply.Result) {
	if e.metrics == nil {
		return
	}
	for _, cmd := range res.Applied {
		e.metrics.MemoryOperations.WithLabelValues(string(cmd.Action)).Inc()
	}
	if res.Malformed {
		e.metrics.ReplyFailures.WithLabelValues("malformed").Inc()
	}
	if res.Skipped > 0 {
		e.metrics.ReplyFailures.WithLabelValues("validation").Add(float64(res.Skipped))
	}
	if res.NoOps > 0 {
		e.metrics.ReplyFailures.WithLabelValues("unknown_id").Add(float64(res.NoOps))
	}
}
