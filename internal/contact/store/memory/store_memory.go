package memory

import (
	"context"
	"fmt"
	"sync"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/pkg/platform/sentinel"
)

// InMemory keeps documents in process memory, in insertion order.
type InMemory struct {
	mu     sync.RWMutex
	docs   map[models.RecordID]models.Document
	order  []models.RecordID
	nextID models.RecordID
	closed bool
}

// New returns an empty in-memory document store.
func New() *InMemory {
	return &InMemory{
		docs:   make(map[models.RecordID]models.Document),
		nextID: 1,
	}
}

// NewFromDocuments seeds a store with previously persisted documents. The next
// identifier continues after the highest one seen.
func NewFromDocuments(docs []models.StoredDocument) *InMemory {
	s := New()
	for _, d := range docs {
		if _, dup := s.docs[d.ID]; dup {
			continue
		}
		s.docs[d.ID] = d.Fields.Clone()
		s.order = append(s.order, d.ID)
		if d.ID >= s.nextID {
			s.nextID = d.ID + 1
		}
	}
	return s
}

func (s *InMemory) Insert(_ context.Context, doc models.Document) (models.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, sentinel.ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.docs[id] = doc.Clone()
	s.order = append(s.order, id)
	return id, nil
}

func (s *InMemory) Update(_ context.Context, id models.RecordID, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	current, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	merged := current.Clone()
	for k, v := range doc {
		merged[k] = v
	}
	s.docs[id] = merged
	return nil
}

func (s *InMemory) Remove(_ context.Context, id models.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemory) Get(_ context.Context, id models.RecordID) (*models.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sentinel.ErrClosed
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, sentinel.ErrNotFound)
	}
	return &models.StoredDocument{ID: id, Fields: doc.Clone()}, nil
}

func (s *InMemory) Find(_ context.Context, where store.Where) ([]models.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sentinel.ErrClosed
	}
	return s.collect(where), nil
}

func (s *InMemory) All(_ context.Context) ([]models.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sentinel.ErrClosed
	}
	return s.collect(nil), nil
}

// Snapshot returns every document in insertion order, for persistence by
// wrapping stores.
func (s *InMemory) Snapshot() []models.StoredDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(nil)
}

func (s *InMemory) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	s.docs = make(map[models.RecordID]models.Document)
	s.order = nil
	s.nextID = 1
	return nil
}

// Close marks the store unusable; later calls return sentinel.ErrClosed.
func (s *InMemory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// collect must be called with the lock held.
func (s *InMemory) collect(where store.Where) []models.StoredDocument {
	out := make([]models.StoredDocument, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		if !where.Matches(doc) {
			continue
		}
		out = append(out, models.StoredDocument{ID: id, Fields: doc.Clone()})
	}
	return out
}
