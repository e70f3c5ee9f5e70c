// Package memory holds an in-memory record store used by tests and local
// development runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensify/internal/core"
	"expensify/internal/records"
)

type Store struct {
	mu    sync.Mutex
	next  int
	items []core.Record
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Create assigns a synthetic id and keeps a copy of the record.
func (s *Store) Create(_ context.Context, r core.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	r.ID = fmt.Sprintf("mem:%d", s.next)
	s.items = append(s.items, r)
	return r.ID, nil
}

func (s *Store) ListMonth(_ context.Context, month core.Month) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, r := range s.items {
		added := r.DateAdded
		if added.IsZero() {
			added = r.Date
		}
		if month.Contains(added) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("record %s not found", id)
}
