package services

import (
	"fmt"

	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
	"github.com/fady17/garagehub-go/pkg/config"
)

// SessionIssueService mints anonymous session tokens for new visitors.
type SessionIssueService struct {
	repo        *anonymous.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSessionIssueService creates a new session issue service
func NewSessionIssueService(repo *anonymous.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SessionIssueService {
	return &SessionIssueService{
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// IssueResult holds the outcome of minting an anonymous session
type IssueResult struct {
	Token   string `json:"anonymousSessionToken"`
	AnonID  string `json:"-"`
	Success bool   `json:"-"`
	Error   string `json:"-"`
}

// IssueAnonymousSession mints a fresh anonymous identity and a signed
// token bound to it. Every call produces a new anon_id; identities are
// never reused across issues.
func (s *SessionIssueService) IssueAnonymousSession() *IssueResult {
	marker := s.perfTracker.StartOperation("session:issue")
	defer marker.Complete()

	anonID := security.GenerateAnonymousID()

	token, err := security.GenerateAnonymousSessionToken(
		anonID,
		config.TokenIssuer,
		config.TokenAudience,
		config.JWTSecret,
		config.TokenTTL,
	)
	if err != nil {
		marker.SetError(err)
		s.logger.Session().Error("Failed to sign anonymous session token", "error", err.Error())
		return &IssueResult{Success: false, Error: "token generation failed"}
	}

	if err := s.repo.CreateIdentity(anonID); err != nil {
		marker.SetError(err)
		s.logger.Session().Error("Failed to register anonymous identity",
			"anonId", logging.SanitizeID(anonID), "error", err.Error())
		return &IssueResult{Success: false, Error: "identity registration failed"}
	}

	marker.SetSuccess(true)
	s.logger.Session().Info("Issued anonymous session", "anonId", logging.SanitizeID(anonID))

	return &IssueResult{Token: token, AnonID: anonID, Success: true}
}

// VerifyAnonymousToken validates a presented token's signature, expiry,
// and subject type, and confirms the identity has not been retired by a
// merge. Returns the anon_id on success.
func (s *SessionIssueService) VerifyAnonymousToken(tokenString string) (string, error) {
	mapClaims, err := security.ValidateJWT(tokenString, config.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("invalid anonymous token: %w", err)
	}

	claims := security.AnonymousClaimsFromMap(mapClaims)
	if claims == nil {
		return "", fmt.Errorf("token is not an anonymous session token")
	}

	active, err := s.repo.IdentityActive(claims.AnonID)
	if err != nil {
		return "", fmt.Errorf("failed to check identity: %w", err)
	}
	if !active {
		return "", fmt.Errorf("anonymous identity retired")
	}

	return claims.AnonID, nil
}
