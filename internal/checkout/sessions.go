package checkout

import (
	"sync"
	"time"

	"github.com/4o31/shop/internal/domain"
)

const (
	// SessionTTL is how long an unconfirmed checkout stays open
	SessionTTL = 30 * time.Minute

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

// SessionStore holds in-progress checkout sessions in memory. Abandoned
// sessions expire in the background; confirmed sessions stay until expiry so
// late duplicate confirms still get a clean ErrInvalidState.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CheckoutSession

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{
		sessions:    make(map[string]*domain.CheckoutSession),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *SessionStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

// expireSessions marks reviewing sessions past their TTL as expired and
// drops sessions that were already terminal before this sweep. A session
// expired by this sweep is kept until the next one, so a late request on it
// still sees ErrInvalidState instead of ErrSessionNotFound.
func (s *SessionStore) expireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if session.Status == domain.CheckoutStatusReviewing && now.After(session.ExpiresAt) {
			session.Status = domain.CheckoutStatusExpired
		} else if session.Status.IsTerminal() && now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) Put(session *domain.CheckoutSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *SessionStore) Get(id string) (*domain.CheckoutSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Update runs fn on the session under the store lock, so session mutations
// are serialized with status transitions.
func (s *SessionStore) Update(id string, fn func(*domain.CheckoutSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(session)
}

// Transition compare-and-swaps the session status. It is the re-entrancy
// guard for Confirm: the session leaves Reviewing before any slow work
// starts, so a concurrent confirm observes the new status and fails.
func (s *SessionStore) Transition(id string, from, to domain.CheckoutStatus) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != from || !domain.CanTransitionTo(from, to) {
		return nil, ErrInvalidState
	}

	session.Status = to
	return session, nil
}

// Close stops the background cleanup and waits for it to finish
func (s *SessionStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
