package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize creates and returns a database connection
func Initialize(databaseURL string) (*sql.DB, error) {
	// Add SQLite-specific parameters for better concurrent access
	if databaseURL == "gudam.db" {
		databaseURL = "gudam.db?_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=1"
	}

	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(0) // No limit

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set pragma %s: %v", pragma, err)
		}
	}

	return db, nil
}

// Migrate runs database migrations
func Migrate(db *sql.DB) error {
	migrations := []string{
		createUsersTable,
		createProductsTable,
		createVerificationsTable,
		createOrdersTable,
		createRatingsTable,
		createRatingsUniqueIndex,
		createNotificationsTable,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('farmer', 'agent', 'buyer', 'admin')),
	avatar_url TEXT,
	location TEXT,
	profile_details TEXT,
	is_verified BOOLEAN DEFAULT FALSE,
	deleted_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT
)`

const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	farmer_id TEXT NOT NULL,
	name_bn TEXT NOT NULL,
	name_en TEXT,
	category TEXT NOT NULL,
	quantity REAL NOT NULL,
	unit TEXT NOT NULL,
	quality_grade TEXT NOT NULL DEFAULT 'A' CHECK (quality_grade IN ('A', 'B', 'C')),
	price_per_unit REAL NOT NULL,
	currency TEXT NOT NULL DEFAULT 'BDT',
	status TEXT NOT NULL DEFAULT 'pending_verification',
	images TEXT,
	location TEXT,
	description_bn TEXT,
	verified_by TEXT,
	verification_date TEXT,
	deleted_at TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (farmer_id) REFERENCES users(id) ON DELETE CASCADE
)`

const createVerificationsTable = `
CREATE TABLE IF NOT EXISTS verifications (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	farmer_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	original_grade TEXT,
	verified_grade TEXT,
	original_quantity REAL,
	verified_quantity REAL,
	notes TEXT,
	notes_bn TEXT,
	adjustment_reason TEXT,
	created_at TEXT NOT NULL,
	verified_at TEXT,
	FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
)`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	buyer_id TEXT NOT NULL,
	farmer_id TEXT NOT NULL,
	agent_id TEXT,
	quantity REAL NOT NULL,
	unit_price REAL,
	total_price REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'placed',
	delivery_address TEXT,
	notes TEXT,
	placed_at TEXT,
	confirmed_at TEXT,
	shipped_at TEXT,
	delivered_at TEXT,
	deleted_at TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
)`

const createRatingsTable = `
CREATE TABLE IF NOT EXISTS ratings (
	id TEXT PRIMARY KEY,
	to_user_id TEXT NOT NULL,
	from_user_id TEXT NOT NULL,
	order_id TEXT,
	product_id TEXT,
	rated_entity_type TEXT,
	type TEXT NOT NULL DEFAULT 'general',
	rating REAL NOT NULL CHECK (rating >= 1 AND rating <= 5),
	review TEXT,
	review_bn TEXT,
	created_at TEXT NOT NULL
)`

// One rating per (order, rater, ratee). Backs the duplicate pre-check with a
// real constraint so concurrent submissions cannot slip through.
const createRatingsUniqueIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_ratings_order_rater_ratee
ON ratings(order_id, from_user_id, to_user_id)
WHERE order_id IS NOT NULL`

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	title_bn TEXT,
	message TEXT NOT NULL,
	message_bn TEXT,
	related_id TEXT,
	is_read BOOLEAN DEFAULT FALSE,
	created_at TEXT NOT NULL
)`
