// Package auth provides the capability checks the editing flows depend on:
// whether a request carries an authenticated user, and whether that user may
// re-synchronize content that already has validated lyrics.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"rubato/internal/config"
)

// Service provides authentication functionality
type Service struct {
	config         *config.AuthConfig
	userStore      *UserStore
	sessionManager *SessionManager
	enabled        bool
}

// NewService creates a new authentication service
func NewService(config *config.AuthConfig) (*Service, error) {
	if !config.Enabled {
		return &Service{
			config:  config,
			enabled: false,
		}, nil
	}

	// Parse session duration
	duration, err := time.ParseDuration(config.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration: %w", err)
	}

	// Create user store
	userStore, err := NewUserStore(config.UsersFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}

	// Create session manager
	sessionManager := NewSessionManager(duration, config.SecureCookies)

	return &Service{
		config:         config,
		userStore:      userStore,
		sessionManager: sessionManager,
		enabled:        true,
	}, nil
}

// IsEnabled returns whether authentication is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Login attempts to authenticate a user and create a session
func (s *Service) Login(username, password string) (*Session, error) {
	if !s.enabled {
		return nil, fmt.Errorf("authentication is disabled")
	}

	if !s.userStore.Authenticate(username, password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	role := RoleUser
	if user := s.userStore.GetUser(username); user != nil {
		role = user.Role
	}

	session, err := s.sessionManager.CreateSession(username, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout invalidates a session
func (s *Service) Logout(sessionID string) {
	if !s.enabled {
		return
	}

	s.sessionManager.DeleteSession(sessionID)
}

// RefreshSession extends a session's expiration
func (s *Service) RefreshSession(sessionID string) bool {
	if !s.enabled {
		return true
	}

	return s.sessionManager.RefreshSession(sessionID)
}

// GetSessionManager returns the session manager (for middleware)
func (s *Service) GetSessionManager() *SessionManager {
	return s.sessionManager
}

// IsAuthenticated reports whether the request carries a valid session. With
// auth disabled every request counts as authenticated.
func (s *Service) IsAuthenticated(r *http.Request) bool {
	if !s.enabled {
		return true
	}
	_, valid := s.sessionManager.GetSessionFromRequest(r)
	return valid
}

// IsAdmin reports whether the request belongs to an admin account. With auth
// disabled every request counts as admin; a single-user install has no
// separate editorial gate.
func (s *Service) IsAdmin(r *http.Request) bool {
	if !s.enabled {
		return true
	}
	session, valid := s.sessionManager.GetSessionFromRequest(r)
	if !valid {
		return false
	}
	return session.Role == RoleAdmin
}

// CurrentUsername returns the username tied to the request session, or ""
// when unauthenticated.
func (s *Service) CurrentUsername(r *http.Request) string {
	if !s.enabled {
		return ""
	}
	session, valid := s.sessionManager.GetSessionFromRequest(r)
	if !valid {
		return ""
	}
	return session.Username
}
