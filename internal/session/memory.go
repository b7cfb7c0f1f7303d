package session

import (
	"context"
	"sync"
	"time"

	"github.com/tailortalk/tailortalk/internal/dialog"
)

// MemoryStore is the default single-process Store. Each session has its
// own mutex, so long turns in one session never block another.
type MemoryStore struct {
	mu       sync.Mutex
	closed   bool
	sessions map[string]*memorySession
	now      func() time.Time
}

type memorySession struct {
	mu      sync.Mutex
	state   dialog.State
	touched time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface assertion.
var _ Store = (*MemoryStore)(nil)

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(st *dialog.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &memorySession{touched: s.now()}
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The callback works on a copy so a failed turn leaves the stored
	// state untouched.
	working := sess.state
	if err := fn(&working); err != nil {
		return err
	}
	sess.state = working
	sess.touched = s.now()
	return nil
}

// End implements Store.
func (s *MemoryStore) End(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.sessions, id)
	return nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(_ context.Context, maxIdle time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	cutoff := s.now().Add(-maxIdle)
	var dropped int
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped, nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sessions = nil
	return nil
}
