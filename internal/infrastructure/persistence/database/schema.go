// Package database provides schema bootstrap for the GarageHub backend.
package database

import "fmt"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS anonymous_identities (
		anon_id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		retired_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS location_preferences (
		anon_id TEXT PRIMARY KEY,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		accuracy REAL,
		source TEXT,
		last_set_at TIMESTAMP NOT NULL,
		FOREIGN KEY (anon_id) REFERENCES anonymous_identities(anon_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		owner_id TEXT NOT NULL,
		product_sku TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (owner_id, product_sku)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS merge_audit (
		id TEXT PRIMARY KEY,
		anon_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		cart_items_merged INTEGER NOT NULL,
		cart_items_skipped INTEGER NOT NULL,
		preferences_merged INTEGER NOT NULL,
		merged_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// EnsureSchema creates all tables required by the backend and the
// client-side key-value store.
func (db *DB) EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
