package state

import (
	"sync"

	"github.com/tomikjetu/vpwa26/internal/protocol"
)

// User is the local user's profile as the session tracks it.
type User struct {
	ID        int
	Nick      string
	Email     string
	FirstName string
	LastName  string
	Status    protocol.UserStatus
}

// Session holds the local user identity and presence for one engine
// instance. There are no process-wide singletons; tests run several
// isolated sessions side by side.
type Session struct {
	mu   sync.RWMutex
	user *User
}

// NewSession creates an empty, logged-out session.
func NewSession() *Session {
	return &Session{}
}

// SetUser installs the local user profile, typically from the profile event
// delivered on (re)connect.
func (s *Session) SetUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == "" {
		u.Status = protocol.StatusActive
	}
	s.user = &u
}

// User returns the local user, if logged in.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// UserID returns the local user id, zero when logged out.
func (s *Session) UserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

// SetStatus updates the local presence status.
func (s *Session) SetStatus(status protocol.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user.Status = status
	}
}

// Status returns the local presence status; a logged-out session is active.
func (s *Session) Status() protocol.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return protocol.StatusActive
	}
	return s.user.Status
}

// DND reports whether the local user is in do-not-disturb.
func (s *Session) DND() bool {
	return s.Status() == protocol.StatusDND
}

// Clear logs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}
