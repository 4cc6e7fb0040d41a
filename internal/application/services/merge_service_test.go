package services

import (
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackendFixture(t *testing.T) (*MergeService, *anonymous.Repository) {
	t.Helper()
	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.EnsureSchema())
	t.Cleanup(func() { db.Close() })

	repo := anonymous.NewRepository(db)
	return NewMergeService(repo, newTestLogger(t), performance.NewTracker()), repo
}

func TestMergeAddsQuantitiesForSameSKU(t *testing.T) {
	svc, repo := newBackendFixture(t)
	require.NoError(t, repo.CreateIdentity("anon-1"))

	require.NoError(t, repo.UpsertCartItem(anonymous.CartItem{OwnerID: "anon-1", ProductSKU: "oil-5w30", Quantity: 2, UnitPrice: 9.99}))
	require.NoError(t, repo.UpsertCartItem(anonymous.CartItem{OwnerID: "user-1", ProductSKU: "oil-5w30", Quantity: 1, UnitPrice: 9.99}))

	outcome := svc.MergeAnonymousData("anon-1", "user-1")
	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Details)
	assert.Equal(t, 1, outcome.Details.CartItemsMerged)
	assert.Equal(t, 0, outcome.Details.CartItemsSkippedOrConflicted)

	merged, err := repo.GetCartItem("user-1", "oil-5w30")
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, 3, merged.Quantity)

	// The anonymous cart is gone and the identity is retired.
	anonItems, err := repo.GetCartItems("anon-1")
	require.NoError(t, err)
	assert.Empty(t, anonItems)
	active, err := repo.IdentityActive("anon-1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMergeSkipsPriceConflicts(t *testing.T) {
	svc, repo := newBackendFixture(t)
	require.NoError(t, repo.CreateIdentity("anon-1"))

	require.NoError(t, repo.UpsertCartItem(anonymous.CartItem{OwnerID: "anon-1", ProductSKU: "oil-5w30", Quantity: 2, UnitPrice: 9.99}))
	require.NoError(t, repo.UpsertCartItem(anonymous.CartItem{OwnerID: "user-1", ProductSKU: "oil-5w30", Quantity: 1, UnitPrice: 12.99}))

	outcome := svc.MergeAnonymousData("anon-1", "user-1")
	require.True(t, outcome.Success)
	assert.Equal(t, 0, outcome.Details.CartItemsMerged)
	assert.Equal(t, 1, outcome.Details.CartItemsSkippedOrConflicted)

	// The user's line keeps its own quantity and price.
	kept, err := repo.GetCartItem("user-1", "oil-5w30")
	require.NoError(t, err)
	assert.Equal(t, 1, kept.Quantity)
	assert.Equal(t, 12.99, kept.UnitPrice)
}

func TestMergeCarriesPreference(t *testing.T) {
	svc, repo := newBackendFixture(t)
	require.NoError(t, repo.CreateIdentity("anon-1"))
	require.NoError(t, repo.UpsertLocationPreference("anon-1", &location.Preference{
		Latitude: 30.0, Longitude: 31.0, Source: location.SourceGPS, Timestamp: time.Now().UTC(),
	}))

	outcome := svc.MergeAnonymousData("anon-1", "user-1")
	require.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.Details.PreferencesMerged)

	pref, err := repo.GetLocationPreference("anon-1")
	require.NoError(t, err)
	assert.Nil(t, pref, "anonymous preference is consumed by the merge")
}

func TestMergeIsIdempotent(t *testing.T) {
	svc, repo := newBackendFixture(t)
	require.NoError(t, repo.CreateIdentity("anon-1"))
	require.NoError(t, repo.UpsertCartItem(anonymous.CartItem{OwnerID: "anon-1", ProductSKU: "oil-5w30", Quantity: 2, UnitPrice: 9.99}))

	first := svc.MergeAnonymousData("anon-1", "user-1")
	require.True(t, first.Success)
	assert.Equal(t, 1, first.Details.CartItemsMerged)

	second := svc.MergeAnonymousData("anon-1", "user-1")
	require.True(t, second.Success)
	assert.Equal(t, 0, second.Details.CartItemsMerged, "a retired identity merges to nothing")

	// The user's cart was not doubled.
	item, err := repo.GetCartItem("user-1", "oil-5w30")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
}
