package handlers

import (
	"net/http"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/messaging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// UserHandlers handles storefront account endpoints
type UserHandlers struct {
	authService *services.UserAuthService
	broadcaster *messaging.StatusBroadcaster
	credential  *services.UserCredential
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewUserHandlers creates user handlers with injected dependencies
func NewUserHandlers(authService *services.UserAuthService, broadcaster *messaging.StatusBroadcaster, credential *services.UserCredential, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *UserHandlers {
	return &UserHandlers{
		authService: authService,
		broadcaster: broadcaster,
		credential:  credential,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/users/sessions
func (h *UserHandlers) Login(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:login")
	defer marker.Complete()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	result := h.authService.Login(req.Email, req.Password)
	if !result.Success {
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, result)
		return
	}

	// The stored credential must be in place before the status change
	// fans out, so merge-on-login finds the bearer token ready.
	h.credential.Set(result.Token)
	h.broadcaster.Publish(session.StatusAuthenticated)

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// Register handles POST /api/users
func (h *UserHandlers) Register(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:register")
	defer marker.Complete()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	result := h.authService.Register(req.Email, req.Password)
	if !result.Success {
		marker.SetSuccess(false)
		c.JSON(http.StatusConflict, result)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, result)
}

// Logout handles DELETE /api/users/sessions
func (h *UserHandlers) Logout(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:logout")
	defer marker.Complete()

	h.credential.Clear()
	h.broadcaster.Publish(session.StatusUnauthenticated)

	marker.SetSuccess(true)
	c.Status(http.StatusNoContent)
}
