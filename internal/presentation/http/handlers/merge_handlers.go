package handlers

import (
	"net/http"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
	"github.com/fady17/garagehub-go/internal/presentation/http/middleware"
	"github.com/fady17/garagehub-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// MergeHandlers handles the anonymous-to-user data merge endpoint
type MergeHandlers struct {
	mergeService *services.MergeService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewMergeHandlers creates merge handlers with injected dependencies
func NewMergeHandlers(mergeService *services.MergeService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *MergeHandlers {
	return &MergeHandlers{
		mergeService: mergeService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

type mergeRequest struct {
	AnonymousSessionToken string `json:"anonymousSessionToken" binding:"required"`
}

// MergeAnonymousData handles POST /api/users/me/merge-anonymous-data.
// The caller authenticates as a user; the anonymous token rides in the
// body and is verified here, including its signature. An already
// retired identity yields an idempotent zero-count success.
func (h *MergeHandlers) MergeAnonymousData(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:merge-anonymous-data")
	defer marker.Complete()

	userID := c.GetString(middleware.ContextUserIDKey)

	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing anonymous session token"})
		return
	}

	mapClaims, err := security.ValidateJWT(req.AnonymousSessionToken, config.JWTSecret)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid anonymous session token"})
		return
	}
	claims := security.AnonymousClaimsFromMap(mapClaims)
	if claims == nil || claims.AnonID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not an anonymous session token"})
		return
	}

	outcome := h.mergeService.MergeAnonymousData(claims.AnonID, userID)
	if !outcome.Success {
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, outcome)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, outcome)
}
