package services

import (
	"fmt"

	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
)

// CartService manages cart lines for both anonymous identities and
// users. Ownership is a single keyspace: anon_id before login, user id
// after.
type CartService struct {
	repo        *anonymous.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewCartService creates a new cart service
func NewCartService(repo *anonymous.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *CartService {
	return &CartService{
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetCart returns all cart lines for the owner.
func (s *CartService) GetCart(ownerID string) ([]anonymous.CartItem, error) {
	marker := s.perfTracker.StartOperation("cart:get")
	defer marker.Complete()

	items, err := s.repo.GetCartItems(ownerID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	marker.SetSuccess(true)
	return items, nil
}

// SetCartItem upserts one cart line. Quantity zero removes nothing
// here; clearing is a cart-wide operation owned by the merge.
func (s *CartService) SetCartItem(ownerID, sku string, quantity int, unitPrice float64) error {
	marker := s.perfTracker.StartOperation("cart:set-item")
	defer marker.Complete()

	if sku == "" || quantity <= 0 {
		return fmt.Errorf("invalid cart line: sku=%q quantity=%d", sku, quantity)
	}

	item := anonymous.CartItem{
		OwnerID:    ownerID,
		ProductSKU: sku,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
	}
	if err := s.repo.UpsertCartItem(item); err != nil {
		marker.SetError(err)
		s.logger.Database().Error("Failed to upsert cart line", "sku", sku, "error", err.Error())
		return fmt.Errorf("failed to save cart line: %w", err)
	}

	marker.SetSuccess(true)
	return nil
}
