package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	memoryFileName  = "memory.json"
	historyFileName = "chat_history.json"
)

// FileStore keeps each document as a JSON file in a data directory. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadMemory() (MemoryDocument, error) {
	doc := MemoryDocument{}
	if err := s.readJSON(memoryFileName, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *FileStore) SaveMemory(doc MemoryDocument) error {
	if doc == nil {
		doc = MemoryDocument{}
	}
	return s.writeJSON(memoryFileName, doc)
}

func (s *FileStore) LoadHistory() ([]HistoryTurn, error) {
	var turns []HistoryTurn
	if err := s.readJSON(historyFileName, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *FileStore) SaveHistory(turns []HistoryTurn) error {
	if turns == nil {
		turns = []HistoryTurn{}
	}
	return s.writeJSON(historyFileName, turns)
}

func (s *FileStore) Close() error { return nil }

// readJSON leaves v untouched when the file does not exist yet.
func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
