package server

import (
	"errors"
	"net/http"

	"drifttapes/internal/auth"
	"drifttapes/internal/database"

	"github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// requireAuthEnabled answers 404 when accounts are switched off
func (ms *StoreServer) requireAuthEnabled(w http.ResponseWriter, r *http.Request) bool {
	if !ms.authService.IsEnabled() {
		ms.respondWithError(w, r, http.StatusNotFound, "Accounts are disabled", auth.ErrDisabled)
		return false
	}
	return true
}

// authSessionID returns the account session cookie value, if any
func (ms *StoreServer) authSessionID(r *http.Request) string {
	session, ok := ms.authService.GetSessionManager().GetSessionFromRequest(r)
	if !ok {
		return ""
	}
	return session.ID
}

// handleSignup creates an account and logs it in
func (ms *StoreServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !ms.requireAuthEnabled(w, r) {
		return
	}

	var req credentialsRequest
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	user, err := ms.authService.Signup(req.Email, req.Password, sanitizeInput(req.DisplayName))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRegistrationDisabled):
			ms.respondWithError(w, r, http.StatusForbidden, "Registration is closed", err)
		case errors.Is(err, auth.ErrEmailTaken):
			ms.respondWithError(w, r, http.StatusConflict, "Email is already registered", err)
		case errors.Is(err, auth.ErrInvalidEmail):
			ms.respondWithValidationError(w, r, []ValidationError{{
				Field:   "email",
				Message: err.Error(),
				Code:    "INVALID_EMAIL",
			}})
		case errors.Is(err, auth.ErrWeakPassword):
			ms.respondWithValidationError(w, r, []ValidationError{{
				Field:   "password",
				Message: err.Error(),
				Code:    "WEAK_PASSWORD",
			}})
		default:
			ms.respondWithError(w, r, http.StatusInternalServerError, "Signup failed", err)
		}
		return
	}

	session, _, err := ms.authService.Login(req.Email, req.Password)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Signup succeeded but login failed", err)
		return
	}
	ms.authService.GetSessionManager().SetSessionCookie(w, session)

	ms.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// handleLogin checks credentials and sets the account session cookie
func (ms *StoreServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !ms.requireAuthEnabled(w, r) {
		return
	}

	var req credentialsRequest
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	if req.Email == "" || req.Password == "" {
		ms.respondWithValidationError(w, r, []ValidationError{{
			Field:   "credentials",
			Message: "Email and password required",
			Code:    "MISSING_CREDENTIALS",
		}})
		return
	}

	session, user, err := ms.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			ms.logger.WithFields(logrus.Fields{
				"remote": clientAddress(r),
			}).Warn("Failed login attempt")
			ms.respondWithError(w, r, http.StatusUnauthorized, "Invalid email or password", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Login failed", err)
		return
	}

	ms.authService.GetSessionManager().SetSessionCookie(w, session)
	ms.logger.WithField("user_id", user.ID).Info("User logged in")

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// handleLogout ends the account session. Logging out twice is not an error.
func (ms *StoreServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !ms.requireAuthEnabled(w, r) {
		return
	}

	if id := ms.authSessionID(r); id != "" {
		ms.authService.Logout(id)
	}
	ms.authService.GetSessionManager().ClearSessionCookie(w)

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (ms *StoreServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if !ms.requireAuthEnabled(w, r) {
		return
	}

	user, err := ms.authService.Profile(ms.authSessionID(r))
	if err != nil {
		ms.respondWithProfileError(w, r, err)
		return
	}
	ms.authService.RefreshSession(ms.authSessionID(r))

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

func (ms *StoreServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !ms.requireAuthEnabled(w, r) {
		return
	}

	var req struct {
		DisplayName string `json:"displayName"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	user, err := ms.authService.UpdateProfile(ms.authSessionID(r), sanitizeInput(req.DisplayName))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidDisplayName) {
			ms.respondWithValidationError(w, r, []ValidationError{{
				Field:   "displayName",
				Message: err.Error(),
				Code:    "INVALID_DISPLAY_NAME",
			}})
			return
		}
		ms.respondWithProfileError(w, r, err)
		return
	}

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (ms *StoreServer) respondWithProfileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrSessionNotFound):
		ms.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
	case errors.Is(err, database.ErrUserNotFound):
		ms.respondWithError(w, r, http.StatusNotFound, "Account not found", err)
	default:
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to load profile", err)
	}
}
