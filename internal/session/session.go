// Package session holds the signed-in user of a client process.
//
// A [Session] lives in memory only; nothing is persisted or refreshed.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

// Authenticator exchanges credentials for a user.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
}

// Listener is called with the new user (nil after logout).
type Listener func(*models.User)

// Session tracks the current user and notifies listeners when it changes.
type Session struct {
	auth Authenticator

	mu        sync.RWMutex
	user      *models.User
	listeners map[int]Listener
	nextID    int
}

// New creates a signed-out session.
func New(auth Authenticator) *Session {
	return &Session{auth: auth, listeners: make(map[int]Listener)}
}

// Login validates the credentials locally, authenticates and stores the user.
//
// An invalid email or empty password yields [shared.ErrInvalidInput] without a request.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required", shared.ErrInvalidInput)
	}

	user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.set(user)
	return user, nil
}

// Logout clears the current user.
func (s *Session) Logout() {
	s.set(nil)
}

// User returns the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// UserID returns the signed-in user's id, or "".
func (s *Session) UserID() string {
	if u := s.User(); u != nil {
		return u.ID
	}
	return ""
}

// Subscribe registers fn for changes and returns a function that removes it.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(user *models.User) {
	s.mu.Lock()
	s.user = user
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
}
