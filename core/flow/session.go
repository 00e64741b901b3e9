package flow

import "sync"

// PendingPayment marks that the session is awaiting a receipt attachment.
// It exists only between a payment-intent answer and either a receipt upload
// or an admin decision.
type PendingPayment struct {
	OrderTag string
	Method   string
}

// Session is the per-user mutable flow state. It lives in memory for the
// process lifetime only; a session is logically owned by the handling task
// of its user, the transport is expected not to deliver two messages from
// the same user concurrently.
type Session struct {
	Flow              string
	StepID            string
	Meta              Meta
	PendingPayment    *PendingPayment
	AwaitingBroadcast bool
}

// Reset moves the session to the given flow position and drops all
// accumulated meta, including any pending payment.
func (s *Session) Reset(flow, stepID string) {
	s.Flow = flow
	s.StepID = stepID
	s.Meta = Meta{}
	s.PendingPayment = nil
}

// Store hands out sessions keyed by user id.
type Store interface {
	// Get returns the session for a user, creating an empty one on first use.
	Get(userID int64) *Session
	// Peek returns the session without creating it.
	Peek(userID int64) (*Session, bool)
	// Clear removes the session entirely.
	Clear(userID int64)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs the in-memory Store implementation.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[int64]*Session)}
}

func (m *memoryStore) Get(userID int64) *Session {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess
	}
	sess = &Session{Meta: Meta{}}
	m.sessions[userID] = sess
	return sess
}

func (m *memoryStore) Peek(userID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

func (m *memoryStore) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
