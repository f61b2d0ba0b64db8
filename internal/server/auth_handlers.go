package server

import (
	"encoding/json"
	"net/http"
)

// handleAuthLogin handles login API requests
func (ls *LyricServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ls.authService.IsEnabled() {
		ls.respondWithError(w, r, http.StatusBadRequest, "Authentication is disabled", nil)
		return
	}

	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		ls.respondWithValidationError(w, r, []ValidationError{{
			Field:   "credentials",
			Message: "Username and password required",
			Code:    "MISSING_CREDENTIALS",
		}})
		return
	}

	session, err := ls.authService.Login(credentials.Username, credentials.Password)
	if err != nil {
		ls.logger.WithError(err).WithField("username", credentials.Username).Warn("Failed login attempt")
		ls.respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	sessionManager := ls.authService.GetSessionManager()
	sessionManager.SetSessionCookie(w, session)

	ls.logger.WithField("username", credentials.Username).Info("User logged in successfully")

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]string{
		"status":   "success",
		"username": session.Username,
		"role":     session.Role,
	})
}

// handleAuthLogout handles logout requests
func (ls *LyricServer) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ls.authService.IsEnabled() {
		w.Header().Set("Content-Type", "application/json")
		ls.respondJSON(w, map[string]string{"status": "success"})
		return
	}

	sessionManager := ls.authService.GetSessionManager()
	session, valid := sessionManager.GetSessionFromRequest(r)
	if valid {
		ls.authService.Logout(session.ID)
		ls.logger.WithField("username", session.Username).Info("User logged out")
	}

	sessionManager.ClearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]string{"status": "success"})
}

// handleAuthSession reports who the request belongs to, refreshing the
// session on the way.
func (ls *LyricServer) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !ls.authService.IsEnabled() {
		ls.respondJSON(w, map[string]interface{}{
			"authenticated": true,
			"authEnabled":   false,
		})
		return
	}

	sessionManager := ls.authService.GetSessionManager()
	session, valid := sessionManager.GetSessionFromRequest(r)
	if !valid {
		w.WriteHeader(http.StatusUnauthorized)
		ls.respondJSON(w, map[string]interface{}{
			"authenticated": false,
			"authEnabled":   true,
		})
		return
	}

	ls.authService.RefreshSession(session.ID)

	ls.respondJSON(w, map[string]interface{}{
		"authenticated": true,
		"authEnabled":   true,
		"username":      session.Username,
		"role":          session.Role,
	})
}
