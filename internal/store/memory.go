// internal/store/memory.go
//
// In-memory session store for running games.
// Game state is never persisted: a session lives only as long as the process
// and is dropped once it has been idle for longer than the sweep threshold.
//
// Characteristics:
//   - Stores *Session values keyed by ID in a map.
//   - Concurrency-safe via RWMutex.
//   - Removing a session closes its engine so no timer outlives it.
//   - Get returns ErrNotFound for unknown IDs.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/colormatch/internal/game"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Session is one player's game inside the server.
type Session struct {
	ID        string       // random UUID, assigned by Save when empty
	Mode      string       // "normal" | "daily"
	Date      string       // daily boards only: YYYY-MM-DD the seed was taken from
	Player    string       // optional display name supplied by the client
	Engine    *game.Engine // the game itself
	CreatedAt time.Time

	lastSeen time.Time
}

// Store defines the session persistence interface.
type Store interface {
	// Save adds or replaces a session, assigning an ID if it has none.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID and marks it as recently used.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes sessions unused for longer than idle.
	// Returns the number removed.
	Sweep(ctx context.Context, idle time.Duration) int

	// Len reports the number of live sessions.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session), now: time.Now}
}

func (m *memory) Save(ctx context.Context, s *Session) error {
	if s == nil || s.Engine == nil {
		return errors.New("store: session without engine")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.lastSeen = now
	if old, ok := m.sessions[s.ID]; ok && old != s {
		old.Engine.Close()
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Engine.Close()
	return nil
}

func (m *memory) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	var stale []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Engine.Close()
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
