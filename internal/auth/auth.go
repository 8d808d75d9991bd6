// Package auth exposes the signed-in shopper to the services that need it.
package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/remedy-radar/backend/internal/apperr"
)

// User is the current shopper.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Provider resolves the current user, if any.
type Provider interface {
	CurrentUser() (User, bool)
}

// Session holds the user signed into one browser session.
type Session struct {
	mu   sync.RWMutex
	user *User
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// CurrentUser implements Provider.
func (s *Session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Login signs user in, replacing any previous user. Name and email are
// required; an ID is generated when absent.
func (s *Session) Login(user User) (User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	if user.Name == "" {
		return User{}, fmt.Errorf("name is required: %w", apperr.ErrInvalidInput)
	}
	if !strings.Contains(user.Email, "@") {
		return User{}, fmt.Errorf("a valid email is required: %w", apperr.ErrInvalidInput)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

// Logout signs the current user out.
func (s *Session) Logout() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// Static is a Provider that always reports the same answer.
type Static struct {
	User     User
	LoggedIn bool
}

// CurrentUser implements Provider.
func (s Static) CurrentUser() (User, bool) {
	return s.User, s.LoggedIn
}
