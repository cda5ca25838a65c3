package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/history"
)

var testNow = time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)

func TestAssembleEmptyEverything(t *testing.T) {
	got := Assemble(config.Preferences{}, "", nil, "hello there", testNow)

	for _, want := range []string{
		PlaceholderPreferences,
		PlaceholderMemory,
		PlaceholderHistory,
		"Current user input: hello there",
		"Current time: 2026-08-28 15:04:05",
		`"memory_operations"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Assemble() missing %q in:\n%s", want, got)
		}
	}
}

func TestAssembleSectionOrderIsFixed(t *testing.T) {
	turns := []history.Turn{{User: "hi", AI: "hello", Timestamp: testNow}}
	got := Assemble(
		config.Preferences{Profession: "chef"},
		"[1] prefers basil (created: 2026-08-28 12:00:00, modified: 2026-08-28 12:00:00)",
		turns,
		"what should I cook",
		testNow,
	)

	order := []string{
		"You are a personal assistant.",
		"Current time:",
		"User profession: chef",
		"Permanent memory:",
		"[1] prefers basil",
		"Recent conversation:",
		"user: hi",
		"assistant: hello",
		"Current user input: what should I cook",
		"Reply with exactly one JSON object",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(got, marker)
		if idx < 0 {
			t.Fatalf("Assemble() missing marker %q in:\n%s", marker, got)
		}
		if idx <= last {
			t.Fatalf("marker %q out of order (index %d after %d)", marker, idx, last)
		}
		last = idx
	}
}

func TestAssembleOmitsSentinelPreferences(t *testing.T) {
	prefs := config.Preferences{
		Profession:     "none",
		PreferredTitle: "Captain",
		ReplyStyle:     "",
		AdditionalInfo: "none",
	}
	got := Assemble(prefs, "", nil, "x", testNow)

	if strings.Contains(got, "User profession") {
		t.Fatalf("Assemble() rendered sentinel profession:\n%s", got)
	}
	if !strings.Contains(got, "Preferred title: Captain") {
		t.Fatalf("Assemble() missing preferred title:\n%s", got)
	}
	if strings.Contains(got, PlaceholderPreferences) {
		t.Fatalf("Assemble() used placeholder despite a set preference:\n%s", got)
	}
}

func TestAssembleRendersHistoryPairs(t *testing.T) {
	turns := []history.Turn{
		{User: "first q", AI: "first a", Timestamp: testNow},
		{User: "second q", AI: "second a", Timestamp: testNow},
	}
	got := Assemble(config.Preferences{}, "", turns, "x", testNow)

	wantBlock := "user: first q\nassistant: first a\n\nuser: second q\nassistant: second a"
	if !strings.Contains(got, wantBlock) {
		t.Fatalf("Assemble() history block mismatch, want %q in:\n%s", wantBlock, got)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	prefs := config.Preferences{Profession: "pilot"}
	turns := []history.Turn{{User: "a", AI: "b", Timestamp: testNow}}

	first := Assemble(prefs, "[1] x (created: c, modified: m)", turns, "input", testNow)
	second := Assemble(prefs, "[1] x (created: c, modified: m)", turns, "input", testNow)
	if first != second {
		t.Fatalf("Assemble() not deterministic")
	}
}
