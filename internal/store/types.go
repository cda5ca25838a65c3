package store

import "time"

// MemoryRecord is the wire form of one memory entry inside the memory
// document, keyed by its id string.
type MemoryRecord struct {
	Content      string    `json:"content"`
	CreatedTime  time.Time `json:"created_time"`
	LastModified time.Time `json:"last_modified"`
}

// MemoryDocument is the full durable memory document: id -> record.
type MemoryDocument map[string]MemoryRecord

// HistoryTurn is the wire form of one conversation turn inside the history
// document.
type HistoryTurn struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	Timestamp time.Time `json:"timestamp"`
}

// Documents persists the durable memory and history documents. Every save
// writes the whole document back; there are no partial or delta writes.
type Documents interface {
	LoadMemory() (MemoryDocument, error)
	SaveMemory(MemoryDocument) error
	LoadHistory() ([]HistoryTurn, error)
	SaveHistory([]HistoryTurn) error
	Close() error
}
