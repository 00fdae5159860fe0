package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"drifttapes/internal/config"
	"drifttapes/internal/database"
	"drifttapes/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrDisabled             = errors.New("authentication is disabled")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrWeakPassword         = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrSessionNotFound      = errors.New("session not found or expired")
	ErrInvalidDisplayName   = fmt.Errorf("display name must be 1 to %d characters", maxDisplayNameLength)
)

const maxDisplayNameLength = 64

// Service provides account signup, login and profile management
type Service struct {
	config         config.AuthConfig
	users          UserStore
	sessionManager *SessionManager
	logger         *logrus.Logger
	enabled        bool
	cost           int
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithHashCost overrides the bcrypt cost
func WithHashCost(cost int) ServiceOption {
	return func(s *Service) { s.cost = cost }
}

// NewService creates a new authentication service
func NewService(cfg config.AuthConfig, users UserStore, logger *logrus.Logger, opts ...ServiceOption) (*Service, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		config:  cfg,
		users:   users,
		logger:  logger,
		enabled: cfg.Enabled,
		cost:    12,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !cfg.Enabled {
		return s, nil
	}

	duration, err := time.ParseDuration(cfg.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration: %w", err)
	}
	s.sessionManager = NewSessionManager(duration, cfg.SecureCookies)

	return s, nil
}

// IsEnabled returns whether authentication is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// IsRegistrationAllowed returns whether signup is open
func (s *Service) IsRegistrationAllowed() bool {
	return s.enabled && s.config.AllowRegistration
}

// GetSessionManager returns the session manager (for middleware)
func (s *Service) GetSessionManager() *SessionManager {
	return s.sessionManager
}

// Signup creates an account. The display name defaults to the local part
// of the email.
func (s *Service) Signup(email, password, displayName string) (*models.User, error) {
	if !s.IsRegistrationAllowed() {
		return nil, ErrRegistrationDisabled
	}

	normalized, ok := normalizeEmail(email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = defaultDisplayName(normalized)
	}
	if len(displayName) > maxDisplayNameLength {
		displayName = displayName[:maxDisplayNameLength]
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        normalized,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Account created")
	return &user, nil
}

// Login checks credentials and starts a session
func (s *Service) Login(email, password string) (*Session, *models.User, error) {
	if !s.enabled {
		return nil, nil, ErrDisabled
	}

	normalized, ok := normalizeEmail(email)
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(normalized)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.sessionManager.CreateSession(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// ValidateSession checks if a session ID is valid
func (s *Service) ValidateSession(sessionID string) (*Session, bool) {
	if !s.enabled {
		return nil, false
	}
	return s.sessionManager.GetSession(sessionID)
}

// RefreshSession extends a session's expiration
func (s *Service) RefreshSession(sessionID string) bool {
	if !s.enabled {
		return false
	}
	return s.sessionManager.RefreshSession(sessionID)
}

// Logout invalidates a session
func (s *Service) Logout(sessionID string) {
	if !s.enabled {
		return
	}
	s.sessionManager.DeleteSession(sessionID)
}

// Profile returns the account behind a session
func (s *Service) Profile(sessionID string) (*models.User, error) {
	session, ok := s.ValidateSession(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.users.GetUserByID(session.UserID)
}

// UpdateProfile changes the display name of the session's account
func (s *Service) UpdateProfile(sessionID, displayName string) (*models.User, error) {
	session, ok := s.ValidateSession(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > maxDisplayNameLength {
		return nil, ErrInvalidDisplayName
	}

	if err := s.users.UpdateUserProfile(session.UserID, displayName); err != nil {
		return nil, err
	}
	return s.users.GetUserByID(session.UserID)
}
