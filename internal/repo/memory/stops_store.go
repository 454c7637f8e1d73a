package memory

import (
	"context"
	"sync"

	"github.com/devonwhite/dbmaint/internal/domain/stop"
)

type StopsStore struct {
	mu    sync.RWMutex
	items []stop.Stop

	// CreateErr, when set, fails every Create call. CreateErrFor fails a
	// single address.
	CreateErr    error
	CreateErrFor map[string]error
}

func NewStopsStore() *StopsStore {
	return &StopsStore{
		CreateErrFor: make(map[string]error),
	}
}

func (s *StopsStore) Create(ctx context.Context, st stop.Stop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return s.CreateErr
	}

	if err, ok := s.CreateErrFor[st.Address]; ok {
		return err
	}

	s.items = append(s.items, st)

	return nil
}

func (s *StopsStore) All() []stop.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stop.Stop, len(s.items))
	copy(out, s.items)

	return out
}

func (s *StopsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
