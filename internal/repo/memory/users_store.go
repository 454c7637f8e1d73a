package memory

import (
	"context"
	"sync"

	"github.com/devonwhite/dbmaint/internal/domain/user"
)

// UsersStore is a mutex-guarded in-memory stand-in for the postgres users
// repo. Tests drive the resolver and seeder against it without a database.
type UsersStore struct {
	mu    sync.RWMutex
	items []user.User

	// DeleteErrs injects a failure for specific IDs, exercising the
	// continue-and-collect path.
	DeleteErrs map[string]error
}

func NewUsersStore(seed ...user.User) *UsersStore {
	s := &UsersStore{
		DeleteErrs: make(map[string]error),
	}
	s.items = append(s.items, seed...)

	return s
}

func (s *UsersStore) FetchAll(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, len(s.items))
	copy(out, s.items)

	return out, nil
}

func (s *UsersStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.DeleteErrs[id]; ok {
		return err
	}

	for i, u := range s.items {
		if u.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}

	return user.ErrNotFound
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := user.NormalizeEmail(email)

	for _, u := range s.items {
		if user.NormalizeEmail(u.Email) == want {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (s *UsersStore) Create(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, u)

	return nil
}

func (s *UsersStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
