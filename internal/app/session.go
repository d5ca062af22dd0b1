package app

import (
	"sync"
	"time"
)

// SessionKey identifies a learner's navigation session in a course.
type SessionKey struct {
	CourseID string
	UserID   string
}

func (k SessionKey) String() string {
	return k.CourseID + ":" + k.UserID
}

// Session serializes access to a Tracker and fans snapshots out to subscribers.
type Session struct {
	key         SessionKey
	now         func() time.Time
	mu          sync.RWMutex
	tracker     *Tracker
	lastActive  time.Time
	refs        int
	subscribers map[chan Snapshot]struct{}
}

// NewSession wraps a tracker. It is exported for infrastructure layers that seed sessions.
func NewSession(key SessionKey, tracker *Tracker) *Session {
	return newSessionWithClock(key, tracker, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(key SessionKey, tracker *Tracker, now func() time.Time) *Session {
	return &Session{
		key:         key,
		now:         now,
		tracker:     tracker,
		lastActive:  now(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Key returns the session's identity.
func (s *Session) Key() SessionKey {
	return s.key
}

// Update runs fn against the tracker and broadcasts the resulting snapshot. The
// error from fn is returned as is; the snapshot is broadcast either way.
func (s *Session) Update(fn func(t *Tracker) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.tracker)
	s.lastActive = s.now()
	return s.broadcastLocked(), err
}

// Snapshot returns the current state without notifying subscribers.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Snapshot()
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// InUse reports whether any connection still holds the session.
func (s *Session) InUse() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs > 0
}

func (s *Session) acquire() {
	s.mu.Lock()
	s.refs++
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) release() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs--
	}
	return s.refs
}

// Subscribe returns a channel of snapshots starting with the current one. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.tracker.Snapshot()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.tracker.Snapshot()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: replace its oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
