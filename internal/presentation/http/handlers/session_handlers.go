// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"net/http"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// SessionHandlers handles anonymous session endpoints
type SessionHandlers struct {
	issueService *services.SessionIssueService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewSessionHandlers creates session handlers with injected dependencies
func NewSessionHandlers(issueService *services.SessionIssueService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SessionHandlers {
	return &SessionHandlers{
		issueService: issueService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// CreateSession handles POST /api/anonymous/sessions
func (h *SessionHandlers) CreateSession(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:create-session")
	defer marker.Complete()

	result := h.issueService.IssueAnonymousSession()
	if !result.Success {
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{"anonymousSessionToken": result.Token})
}
