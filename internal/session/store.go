// Package session keeps the per-user calendar selection in memory.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/m3rciful/datepoll/internal/calendar"
)

// ErrNotFound is returned when the user has no session.
var ErrNotFound = errors.New("session: not found")

// Session is one user's calendar state.
type Session struct {
	// Seq identifies this session among all sessions the store has started.
	Seq           uint64
	UserID        int64
	ChatID        int64
	Cursor        calendar.Cursor
	Selected      calendar.Selection
	AwaitingTitle bool
	// Publishing is set while the poll for this session is being sent.
	Publishing bool
	StartedAt  time.Time
	UpdatedAt  time.Time
}

func (s *Session) clone() Session {
	out := *s
	out.Selected = s.Selected.Clone()
	return out
}

// Store maps user ids to sessions. Callers receive copies; mutation goes
// through Update so concurrent updates for one user are serialized.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	seq      uint64
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{sessions: make(map[int64]*Session), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start creates or replaces the user's session at cursor with no selection.
func (s *Store) Start(userID, chatID int64, cursor calendar.Cursor) Session {
	now := s.now()
	sess := &Session{
		UserID:    userID,
		ChatID:    chatID,
		Cursor:    cursor,
		Selected:  calendar.NewSelection(),
		StartedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.seq++
	sess.Seq = s.seq
	s.sessions[userID] = sess
	s.mu.Unlock()
	return sess.clone()
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Update applies fn to the user's session under the store lock. If fn
// returns an error the session is left unchanged.
func (s *Store) Update(userID int64, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[userID]
	if !ok {
		return Session{}, ErrNotFound
	}
	next := cur.clone()
	if err := fn(&next); err != nil {
		return cur.clone(), err
	}
	next.UpdatedAt = s.now()
	s.sessions[userID] = &next
	return next.clone(), nil
}

// Delete removes the user's session and reports whether one existed.
func (s *Store) Delete(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// DeleteIf removes the user's session only when match accepts it.
func (s *Store) DeleteIf(userID int64, match func(Session) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[userID]
	if !ok || !match(cur.clone()) {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions not updated within idle and returns how many were
// dropped. A non-positive idle keeps everything.
func (s *Store) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
