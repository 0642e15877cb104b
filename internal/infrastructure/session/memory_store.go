package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradein/backend/internal/domain/wizard"
)

// defaultCleanupInterval is how often expired sessions are swept
const defaultCleanupInterval = 5 * time.Minute

// entry is a stored session snapshot
type entry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

// MemoryStore implements wizard.SessionRepository using an in-memory map.
// Sessions are stored as JSON so callers never share state with the store.
// This is suitable for single-instance deployments and testing.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]entry
	now       func() time.Time
	interval  time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock sets the time source used for expiry
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCleanupInterval sets how often expired sessions are swept
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewMemoryStore creates a new in-memory session store.
// It starts a background goroutine to clean up expired sessions; call Close to stop it.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		entries:  make(map[uuid.UUID]entry),
		now:      time.Now,
		interval: defaultCleanupInterval,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Create stores a new session
func (s *MemoryStore) Create(ctx context.Context, sess *wizard.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[sess.ID]; exists && s.now().Before(e.expiresAt) {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.entries[sess.ID] = entry{data: data, version: sess.Version, expiresAt: sess.ExpiresAt}
	return nil
}

// Get returns a copy of the session, or wizard.ErrSessionNotFound when it is missing or expired
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*wizard.Session, error) {
	s.mu.RLock()
	e, exists := s.entries[id]
	s.mu.RUnlock()

	if !exists || !s.now().Before(e.expiresAt) {
		return nil, wizard.ErrSessionNotFound
	}

	var sess wizard.Session
	if err := json.Unmarshal(e.data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Save stores sess when the stored version matches sess.Version, then increments it
func (s *MemoryStore) Save(ctx context.Context, sess *wizard.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[sess.ID]
	if !exists || !s.now().Before(e.expiresAt) {
		return wizard.ErrSessionNotFound
	}
	if e.version != sess.Version {
		return wizard.ErrSessionConflict
	}

	next := *sess
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.entries[sess.ID] = entry{data: data, version: next.Version, expiresAt: next.ExpiresAt}
	sess.Version = next.Version
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored sessions, expired ones included until swept
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes expired sessions
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
