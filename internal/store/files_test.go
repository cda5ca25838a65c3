package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreLoadsEmptyDocuments(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	mem, err := fs.LoadMemory()
	if err != nil {
		t.Fatalf("LoadMemory() error = %v", err)
	}
	if len(mem) != 0 {
		t.Fatalf("LoadMemory() = %d records, want 0", len(mem))
	}

	turns, err := fs.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("LoadHistory() = %d turns, want 0", len(turns))
	}
}

func TestFileStoreRoundTripsMemory(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	created := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	doc := MemoryDocument{
		"1": {Content: "likes green tea", CreatedTime: created, LastModified: created},
		"2": {Content: "works night shifts", CreatedTime: created, LastModified: created.Add(time.Hour)},
	}
	if err := fs.SaveMemory(doc); err != nil {
		t.Fatalf("SaveMemory() error = %v", err)
	}

	loaded, err := fs.LoadMemory()
	if err != nil {
		t.Fatalf("LoadMemory() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadMemory() = %d records, want 2", len(loaded))
	}
	rec, ok := loaded["2"]
	if !ok {
		t.Fatalf("record 2 missing after round trip")
	}
	if rec.Content != "works night shifts" {
		t.Fatalf("record 2 content = %q", rec.Content)
	}
	if !rec.LastModified.Equal(created.Add(time.Hour)) {
		t.Fatalf("record 2 last_modified = %v", rec.LastModified)
	}
}

func TestFileStoreRoundTripsHistory(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	ts := time.Date(2026, 8, 28, 11, 30, 0, 0, time.UTC)
	turns := []HistoryTurn{
		{User: "hello", AI: "hi there", Timestamp: ts},
		{User: "what did I say", AI: "you said hello", Timestamp: ts.Add(time.Minute)},
	}
	if err := fs.SaveHistory(turns); err != nil {
		t.Fatalf("SaveHistory() error = %v", err)
	}

	loaded, err := fs.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadHistory() = %d turns, want 2", len(loaded))
	}
	if loaded[0].User != "hello" || loaded[1].AI != "you said hello" {
		t.Fatalf("history order not preserved: %+v", loaded)
	}
}

func TestFileStoreWritesLeaveNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := fs.SaveMemory(MemoryDocument{}); err != nil {
		t.Fatalf("SaveMemory() error = %v", err)
	}
	if err := fs.SaveHistory(nil); err != nil {
		t.Fatalf("SaveHistory() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}

func TestFactoryPicksFileStoreWithoutDatabaseURL(t *testing.T) {
	docs, err := New(context.Background(), t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer docs.Close()
	if _, ok := docs.(*FileStore); !ok {
		t.Fatalf("New() = %T, want *FileStore", docs)
	}
}
