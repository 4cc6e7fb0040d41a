package services

import (
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
	"github.com/fady17/garagehub-go/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// UserAuthService handles storefront account authentication.
type UserAuthService struct {
	repo        *anonymous.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewUserAuthService creates a new user auth service
func NewUserAuthService(repo *anonymous.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *UserAuthService {
	return &UserAuthService{
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// LoginResult holds authentication result data
type LoginResult struct {
	Token   string `json:"token,omitempty"`
	UserID  string `json:"-"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Login verifies the credentials and mints a user session token.
func (s *UserAuthService) Login(email, password string) *LoginResult {
	marker := s.perfTracker.StartOperation("auth:login")
	defer marker.Complete()

	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		marker.SetError(err)
		s.logger.Auth().Error("Failed to look up user", "error", err.Error())
		return &LoginResult{Success: false, Error: "login failed"}
	}
	if user == nil {
		return &LoginResult{Success: false, Error: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return &LoginResult{Success: false, Error: "invalid credentials"}
	}

	token, err := security.GenerateUserToken(user.ID, config.JWTSecret, config.TokenTTL)
	if err != nil {
		marker.SetError(err)
		s.logger.Auth().Error("Failed to sign user token", "error", err.Error())
		return &LoginResult{Success: false, Error: "login failed"}
	}

	marker.SetSuccess(true)
	s.logger.Auth().Info("User logged in", "userId", logging.SanitizeID(user.ID))

	return &LoginResult{Token: token, UserID: user.ID, Success: true}
}

// Register creates a storefront account with a bcrypt password hash.
func (s *UserAuthService) Register(email, password string) *LoginResult {
	marker := s.perfTracker.StartOperation("auth:register")
	defer marker.Complete()

	existing, err := s.repo.FindUserByEmail(email)
	if err != nil {
		marker.SetError(err)
		return &LoginResult{Success: false, Error: "registration failed"}
	}
	if existing != nil {
		return &LoginResult{Success: false, Error: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		marker.SetError(err)
		return &LoginResult{Success: false, Error: "registration failed"}
	}

	user := &anonymous.User{
		ID:           security.GenerateULID(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(user); err != nil {
		marker.SetError(err)
		s.logger.Auth().Error("Failed to create user", "error", err.Error())
		return &LoginResult{Success: false, Error: "registration failed"}
	}

	token, err := security.GenerateUserToken(user.ID, config.JWTSecret, config.TokenTTL)
	if err != nil {
		marker.SetError(err)
		return &LoginResult{Success: false, Error: "registration failed"}
	}

	marker.SetSuccess(true)
	s.logger.Auth().Info("User registered", "userId", logging.SanitizeID(user.ID))

	return &LoginResult{Token: token, UserID: user.ID, Success: true}
}
