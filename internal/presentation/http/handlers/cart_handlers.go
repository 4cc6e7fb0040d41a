package handlers

import (
	"net/http"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// CartHandlers handles cart endpoints for both anonymous and user scopes
type CartHandlers struct {
	cartService *services.CartService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewCartHandlers creates cart handlers with injected dependencies
func NewCartHandlers(cartService *services.CartService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *CartHandlers {
	return &CartHandlers{
		cartService: cartService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type cartLineRequest struct {
	ProductSKU string  `json:"productSku" binding:"required"`
	Quantity   int     `json:"quantity" binding:"required"`
	UnitPrice  float64 `json:"unitPrice"`
}

// GetAnonymousCart handles GET /api/anonymous/cart
func (h *CartHandlers) GetAnonymousCart(c *gin.Context) {
	h.getCart(c, c.GetString(middleware.ContextAnonIDKey))
}

// PutAnonymousCartItem handles PUT /api/anonymous/cart/items
func (h *CartHandlers) PutAnonymousCartItem(c *gin.Context) {
	h.putCartItem(c, c.GetString(middleware.ContextAnonIDKey))
}

// GetUserCart handles GET /api/users/me/cart
func (h *CartHandlers) GetUserCart(c *gin.Context) {
	h.getCart(c, c.GetString(middleware.ContextUserIDKey))
}

// PutUserCartItem handles PUT /api/users/me/cart/items
func (h *CartHandlers) PutUserCartItem(c *gin.Context) {
	h.putCartItem(c, c.GetString(middleware.ContextUserIDKey))
}

func (h *CartHandlers) getCart(c *gin.Context, ownerID string) {
	marker := h.perfTracker.StartOperation("http:get-cart")
	defer marker.Complete()

	items, err := h.cartService.GetCart(ownerID)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CartHandlers) putCartItem(c *gin.Context, ownerID string) {
	marker := h.perfTracker.StartOperation("http:put-cart-item")
	defer marker.Complete()

	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart line"})
		return
	}

	if err := h.cartService.SetCartItem(ownerID, req.ProductSKU, req.Quantity, req.UnitPrice); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart line"})
		return
	}

	marker.SetSuccess(true)
	c.Status(http.StatusNoContent)
}
