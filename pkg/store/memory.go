package store

import (
	"sync"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
)

// MemoryStore is an in-memory Store for tests. It copies sessions on the way
// in and out so callers cannot mutate stored state in place, matching the
// snapshot semantics of FileStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

// EnsureDirectory is a no-op.
func (m *MemoryStore) EnsureDirectory() error {
	return nil
}

// Save stores a copy of the session keyed by id.
func (m *MemoryStore) Save(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "refusing to save invalid session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

// LoadAll returns copies of all stored sessions.
func (m *MemoryStore) LoadAll() ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := s
		result = append(result, &copied)
	}
	return result, nil
}

// LoadByBranch finds the stored session for a branch.
func (m *MemoryStore) LoadByBranch(branch string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Branch == branch {
			copied := s
			return &copied, nil
		}
	}
	return nil, errors.SessionNotFound(branch)
}

// Remove deletes a session by id. Idempotent.
func (m *MemoryStore) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
