// Package memory holds the durable, model-editable memory records of the
// assistant. Records carry monotonic decimal ids that are never reused within
// a store lifetime, so a stale id in a model reply can never collide with a
// freshly added record.
package memory

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kurahq/kura/internal/store"
)

// Record is one durable memory entry.
type Record struct {
	ID         string
	Content    string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

const renderTimeLayout = "2006-01-02 15:04:05"

// Store is the in-memory working set of memory records, flushed whole to the
// document store after every mutation. Records keep insertion order; since ids
// grow monotonically, insertion order and numeric id order coincide.
type Store struct {
	docs   store.Documents
	logger *log.Logger
	now    func() time.Time

	records []*Record
	index   map[string]*Record
	nextID  int
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New loads the full memory document and computes the next id as
// max(numeric ids, 0)+1, matching the durable id-allocation contract.
func New(docs store.Documents, logger *log.Logger, opts ...Option) (*Store, error) {
	doc, err := docs.LoadMemory()
	if err != nil {
		return nil, fmt.Errorf("load memory document: %w", err)
	}

	s := &Store{
		docs:   docs,
		logger: logger,
		now:    time.Now,
		index:  make(map[string]*Record, len(doc)),
	}
	for _, opt := range opts {
		opt(s)
	}

	ids := make([]int, 0, len(doc))
	for id := range doc {
		n, err := strconv.Atoi(id)
		if err != nil {
			s.logger.Printf("memory: skipping record with non-numeric id %q", id)
			continue
		}
		ids = append(ids, n)
	}
	sort.Ints(ids)

	maxID := 0
	for _, n := range ids {
		id := strconv.Itoa(n)
		rec := doc[id]
		r := &Record{
			ID:         id,
			Content:    rec.Content,
			CreatedAt:  rec.CreatedTime,
			ModifiedAt: rec.LastModified,
		}
		s.records = append(s.records, r)
		s.index[id] = r
		if n > maxID {
			maxID = n
		}
	}
	s.nextID = maxID + 1
	return s, nil
}

// Add creates a new record and returns its id. The store is persisted before
// returning; a persistence failure is logged and the in-memory state stands.
func (s *Store) Add(content string) string {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	now := s.now()
	r := &Record{ID: id, Content: content, CreatedAt: now, ModifiedAt: now}
	s.records = append(s.records, r)
	s.index[id] = r
	s.persist()
	return id
}

// Delete removes a record. Unknown ids are a no-op returning false.
func (s *Store) Delete(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	s.persist()
	return true
}

// Modify replaces a record's content and stamps its modification time.
// Unknown ids leave the store unchanged and return false.
func (s *Store) Modify(id, content string) bool {
	r, ok := s.index[id]
	if !ok {
		return false
	}
	r.Content = content
	r.ModifiedAt = s.now()
	s.persist()
	return true
}

// RenderText serializes every record, insertion ordered, for prompt inclusion.
// The output is stable between mutations.
func (s *Store) RenderText() string {
	if len(s.records) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range s.records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s (created: %s, modified: %s)",
			r.ID, r.Content,
			r.CreatedAt.Format(renderTimeLayout),
			r.ModifiedAt.Format(renderTimeLayout))
	}
	return b.String()
}

// Records returns a copy of all records in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = *r
	}
	return out
}

// Len reports the number of currently-held records.
func (s *Store) Len() int { return len(s.records) }

func (s *Store) persist() {
	doc := make(store.MemoryDocument, len(s.records))
	for _, r := range s.records {
		doc[r.ID] = store.MemoryRecord{
			Content:      r.Content,
			CreatedTime:  r.CreatedAt,
			LastModified: r.ModifiedAt,
		}
	}
	if err := s.docs.SaveMemory(doc); err != nil {
		s.logger.Printf("memory: persist failed, in-memory state retained: %v", err)
	}
}
