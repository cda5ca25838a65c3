package vision

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubDescriber struct {
	desc string
	err  error
}

func (s *stubDescriber) Describe(_ context.Context, _ string) (string, error) {
	return s.desc, s.err
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestIsImagePath(t *testing.T) {
	for _, path := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp"} {
		if !IsImagePath(path) {
			t.Fatalf("IsImagePath(%q) = false", path)
		}
	}
	for _, path := range []string{"a.txt", "b.pdf", "noext"} {
		if IsImagePath(path) {
			t.Fatalf("IsImagePath(%q) = true", path)
		}
	}
}

func TestEnrichInputAppendsDescription(t *testing.T) {
	img := writeImage(t, "cat.png")
	e := NewEnricher(&stubDescriber{desc: "a cat on a sofa"}, testLogger())

	got := e.EnrichInput(context.Background(), "look at "+img+" please")

	if !strings.HasPrefix(got, "look at ") {
		t.Fatalf("original input not preserved: %q", got)
	}
	if !strings.Contains(got, "Image description ("+img+"): a cat on a sofa") {
		t.Fatalf("description block missing: %q", got)
	}
}

func TestEnrichInputWithoutImagesIsUnchanged(t *testing.T) {
	e := NewEnricher(&stubDescriber{desc: "unused"}, testLogger())
	in := "no files mentioned here"
	if got := e.EnrichInput(context.Background(), in); got != in {
		t.Fatalf("EnrichInput() = %q, want unchanged", got)
	}
}

func TestEnrichInputDegradesOnDescribeFailure(t *testing.T) {
	img := writeImage(t, "dog.jpg")
	e := NewEnricher(&stubDescriber{err: errors.New("gateway down")}, testLogger())

	got := e.EnrichInput(context.Background(), img)

	if !strings.Contains(got, "image analysis failed") {
		t.Fatalf("failure not inlined: %q", got)
	}
	if !strings.Contains(got, "gateway down") {
		t.Fatalf("failure detail missing: %q", got)
	}
}

func TestEnrichInputIgnoresNonImageFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e := NewEnricher(&stubDescriber{desc: "should not appear"}, testLogger())

	in := "read " + path
	if got := e.EnrichInput(context.Background(), in); got != in {
		t.Fatalf("EnrichInput() = %q, want unchanged for non-image file", got)
	}
}

func TestNilEnricherPassesThrough(t *testing.T) {
	var e *Enricher
	if got := e.EnrichInput(context.Background(), "hello"); got != "hello" {
		t.Fatalf("nil enricher changed input: %q", got)
	}
}
