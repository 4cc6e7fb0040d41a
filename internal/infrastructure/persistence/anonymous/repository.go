// Package anonymous provides backend persistence for anonymous visitor
// identities, their carts, and their location preferences.
package anonymous

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
)

// CartItem is one product line owned by an anonymous identity or a user.
type CartItem struct {
	OwnerID    string  `json:"ownerId"`
	ProductSKU string  `json:"productSku"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

// StoredPreference is the persisted projection of a location preference.
type StoredPreference struct {
	AnonID    string    `json:"anonId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Source    *string   `json:"source,omitempty"`
	LastSetAt time.Time `json:"lastSetAt"`
}

// User is a registered storefront account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository provides SQL access to anonymous-scoped backend state.
type Repository struct {
	db *database.DB
}

// NewRepository creates a repository over the given database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateIdentity registers a freshly minted anonymous identity.
func (r *Repository) CreateIdentity(anonID string) error {
	query := `INSERT INTO anonymous_identities (anon_id, created_at) VALUES (?, ?)`

	if _, err := r.db.Exec(query, anonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create anonymous identity: %w", err)
	}
	return nil
}

// IdentityActive reports whether the identity exists and has not been
// retired by a merge.
func (r *Repository) IdentityActive(anonID string) (bool, error) {
	query := `SELECT retired_at IS NULL FROM anonymous_identities WHERE anon_id = ? LIMIT 1`

	var active bool
	err := r.db.QueryRow(query, anonID).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check anonymous identity: %w", err)
	}
	return active, nil
}

// RetireIdentity marks an identity as merged. Its data stays for audit
// but is no longer reachable through anonymous-scoped endpoints.
func (r *Repository) RetireIdentity(anonID string) error {
	query := `UPDATE anonymous_identities SET retired_at = ? WHERE anon_id = ? AND retired_at IS NULL`

	if _, err := r.db.Exec(query, time.Now().UTC(), anonID); err != nil {
		return fmt.Errorf("failed to retire anonymous identity: %w", err)
	}
	return nil
}

// GetLocationPreference returns the stored preference for an identity,
// or nil when none has been saved.
func (r *Repository) GetLocationPreference(anonID string) (*StoredPreference, error) {
	query := `SELECT anon_id, latitude, longitude, accuracy, source, last_set_at
	          FROM location_preferences WHERE anon_id = ? LIMIT 1`

	row := r.db.QueryRow(query, anonID)

	var pref StoredPreference
	var accuracy sql.NullFloat64
	var source sql.NullString

	err := row.Scan(&pref.AnonID, &pref.Latitude, &pref.Longitude, &accuracy, &source, &pref.LastSetAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan location preference: %w", err)
	}

	if accuracy.Valid {
		pref.Accuracy = &accuracy.Float64
	}
	if source.Valid {
		pref.Source = &source.String
	}

	return &pref, nil
}

// UpsertLocationPreference stores or replaces the preference for an identity.
func (r *Repository) UpsertLocationPreference(anonID string, pref *location.Preference) error {
	query := `INSERT INTO location_preferences (anon_id, latitude, longitude, accuracy, source, last_set_at)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(anon_id) DO UPDATE SET
	            latitude = excluded.latitude,
	            longitude = excluded.longitude,
	            accuracy = excluded.accuracy,
	            source = excluded.source,
	            last_set_at = excluded.last_set_at`

	var accuracy any
	if pref.Accuracy != nil {
		accuracy = *pref.Accuracy
	}

	if _, err := r.db.Exec(query, anonID, pref.Latitude, pref.Longitude, accuracy, string(pref.Source), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert location preference: %w", err)
	}
	return nil
}

// DeleteLocationPreference removes the stored preference for an identity.
func (r *Repository) DeleteLocationPreference(anonID string) error {
	query := `DELETE FROM location_preferences WHERE anon_id = ?`

	if _, err := r.db.Exec(query, anonID); err != nil {
		return fmt.Errorf("failed to delete location preference: %w", err)
	}
	return nil
}

// GetCartItems returns all cart lines owned by ownerID.
func (r *Repository) GetCartItems(ownerID string) ([]CartItem, error) {
	query := `SELECT owner_id, product_sku, quantity, unit_price FROM cart_items WHERE owner_id = ?`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.OwnerID, &item.ProductSKU, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetCartItem returns one cart line, or nil when the owner has no such SKU.
func (r *Repository) GetCartItem(ownerID, sku string) (*CartItem, error) {
	query := `SELECT owner_id, product_sku, quantity, unit_price FROM cart_items
	          WHERE owner_id = ? AND product_sku = ? LIMIT 1`

	var item CartItem
	err := r.db.QueryRow(query, ownerID, sku).Scan(&item.OwnerID, &item.ProductSKU, &item.Quantity, &item.UnitPrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart item: %w", err)
	}
	return &item, nil
}

// UpsertCartItem stores or replaces one cart line.
func (r *Repository) UpsertCartItem(item CartItem) error {
	query := `INSERT INTO cart_items (owner_id, product_sku, quantity, unit_price, updated_at)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT(owner_id, product_sku) DO UPDATE SET
	            quantity = excluded.quantity,
	            unit_price = excluded.unit_price,
	            updated_at = excluded.updated_at`

	if _, err := r.db.Exec(query, item.OwnerID, item.ProductSKU, item.Quantity, item.UnitPrice, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

// DeleteCartItems removes every cart line owned by ownerID.
func (r *Repository) DeleteCartItems(ownerID string) error {
	query := `DELETE FROM cart_items WHERE owner_id = ?`

	if _, err := r.db.Exec(query, ownerID); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

// CreateUser stores a registered account.
func (r *Repository) CreateUser(user *User) error {
	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.Exec(query, user.ID, user.Email, user.PasswordHash, user.CreatedAt); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail returns the account for an email, or nil when unknown.
func (r *Repository) FindUserByEmail(email string) (*User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1`

	var user User
	err := r.db.QueryRow(query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// RecordMergeAudit stores the outcome of one anonymous-to-user merge.
func (r *Repository) RecordMergeAudit(auditID, anonID, userID string, merged, skipped, prefs int) error {
	query := `INSERT INTO merge_audit (id, anon_id, user_id, cart_items_merged, cart_items_skipped, preferences_merged, merged_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.db.Exec(query, auditID, anonID, userID, merged, skipped, prefs, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record merge audit: %w", err)
	}
	return nil
}
