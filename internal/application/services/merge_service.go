package services

import (
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
)

// MergeService reconciles an anonymous identity's cart and preferences
// into a user account after login.
type MergeService struct {
	repo        *anonymous.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewMergeService creates a new merge service
func NewMergeService(repo *anonymous.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *MergeService {
	return &MergeService{
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// MergeOutcome holds the result of a merge operation
type MergeOutcome struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Details *MergeCounts `json:"details,omitempty"`
}

// MergeCounts summarizes what the merge moved.
type MergeCounts struct {
	CartItemsMerged              int `json:"cartItemsMerged"`
	CartItemsSkippedOrConflicted int `json:"cartItemsSkippedOrConflicted,omitempty"`
	PreferencesMerged            int `json:"preferencesMerged"`
}

// MergeAnonymousData folds the anonymous identity's cart into the
// user's cart and carries over the location preference, then retires
// the identity. Cart quantities for the same SKU are added; lines whose
// unit price diverges are skipped rather than silently repriced. A
// retired identity merges to a zero-count success, which makes the
// operation safe to retry.
func (s *MergeService) MergeAnonymousData(anonID, userID string) *MergeOutcome {
	marker := s.perfTracker.StartOperation("merge:anonymous-data")
	defer marker.Complete()

	active, err := s.repo.IdentityActive(anonID)
	if err != nil {
		marker.SetError(err)
		s.logger.Merge().Error("Failed to check identity state",
			"anonId", logging.SanitizeID(anonID), "error", err.Error())
		return &MergeOutcome{Success: false, Message: "merge failed"}
	}
	if !active {
		marker.SetSuccess(true)
		s.logger.Merge().Info("Identity already merged, nothing to do",
			"anonId", logging.SanitizeID(anonID))
		return &MergeOutcome{Success: true, Message: "already merged", Details: &MergeCounts{}}
	}

	counts := &MergeCounts{}

	anonItems, err := s.repo.GetCartItems(anonID)
	if err != nil {
		marker.SetError(err)
		s.logger.Merge().Error("Failed to load anonymous cart",
			"anonId", logging.SanitizeID(anonID), "error", err.Error())
		return &MergeOutcome{Success: false, Message: "merge failed"}
	}

	for _, item := range anonItems {
		existing, err := s.repo.GetCartItem(userID, item.ProductSKU)
		if err != nil {
			marker.SetError(err)
			return &MergeOutcome{Success: false, Message: "merge failed"}
		}

		merged := anonymous.CartItem{
			OwnerID:    userID,
			ProductSKU: item.ProductSKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}

		if existing != nil {
			if existing.UnitPrice != item.UnitPrice {
				counts.CartItemsSkippedOrConflicted++
				s.logger.Merge().Warn("Skipping cart line with price conflict",
					"sku", item.ProductSKU)
				continue
			}
			merged.Quantity = existing.Quantity + item.Quantity
		}

		if err := s.repo.UpsertCartItem(merged); err != nil {
			marker.SetError(err)
			s.logger.Merge().Error("Failed to write merged cart line",
				"sku", item.ProductSKU, "error", err.Error())
			return &MergeOutcome{Success: false, Message: "merge failed"}
		}
		counts.CartItemsMerged++
	}

	pref, err := s.repo.GetLocationPreference(anonID)
	if err != nil {
		marker.SetError(err)
		return &MergeOutcome{Success: false, Message: "merge failed"}
	}
	if pref != nil {
		counts.PreferencesMerged = 1
		if err := s.repo.DeleteLocationPreference(anonID); err != nil {
			marker.SetError(err)
			return &MergeOutcome{Success: false, Message: "merge failed"}
		}
	}

	// Retirement is last: a failure above leaves the identity live so
	// the client can retry the whole merge.
	if err := s.repo.DeleteCartItems(anonID); err != nil {
		marker.SetError(err)
		return &MergeOutcome{Success: false, Message: "merge failed"}
	}
	if err := s.repo.RetireIdentity(anonID); err != nil {
		marker.SetError(err)
		return &MergeOutcome{Success: false, Message: "merge failed"}
	}

	auditID := security.GenerateULID()
	if err := s.repo.RecordMergeAudit(auditID, anonID, userID,
		counts.CartItemsMerged, counts.CartItemsSkippedOrConflicted, counts.PreferencesMerged); err != nil {
		// The merge itself landed; audit failure is logged, not surfaced.
		s.logger.Merge().Warn("Failed to record merge audit",
			"anonId", logging.SanitizeID(anonID), "error", err.Error())
	}

	marker.SetSuccess(true)
	marker.AddMetadata("cartItemsMerged", counts.CartItemsMerged)
	s.logger.Merge().Info("Merged anonymous data",
		"anonId", logging.SanitizeID(anonID),
		"userId", logging.SanitizeID(userID),
		"cartItemsMerged", counts.CartItemsMerged,
		"skipped", counts.CartItemsSkippedOrConflicted,
		"preferencesMerged", counts.PreferencesMerged)

	return &MergeOutcome{Success: true, Message: "merge complete", Details: counts}
}
