package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	memoryDocName  = "memory"
	historyDocName = "chat_history"

	pgOpTimeout = 5 * time.Second
)

// PostgresStore persists each document as one JSONB row, keeping the same
// whole-document write-through contract as the file store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS kura_documents (
		name TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadMemory() (MemoryDocument, error) {
	doc := MemoryDocument{}
	if err := s.load(memoryDocName, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) SaveMemory(doc MemoryDocument) error {
	if doc == nil {
		doc = MemoryDocument{}
	}
	return s.save(memoryDocName, doc)
}

func (s *PostgresStore) LoadHistory() ([]HistoryTurn, error) {
	var turns []HistoryTurn
	if err := s.load(historyDocName, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *PostgresStore) SaveHistory(turns []HistoryTurn) error {
	if turns == nil {
		turns = []HistoryTurn{}
	}
	return s.save(historyDocName, turns)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) load(name string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgOpTimeout)
	defer cancel()

	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM kura_documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document %s: %w", name, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse document %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) save(name string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgOpTimeout)
	defer cancel()

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO kura_documents (name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, body)
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	return nil
}
