package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS apartments (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    address    TEXT,
    pincode    TEXT,
    lng        REAL,
    lat        REAL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    phone         TEXT,
    role          TEXT NOT NULL DEFAULT 'resident' CHECK (role IN ('resident', 'apartment_admin', 'super_admin')),
    apartment_id  INTEGER REFERENCES apartments(id),
    flat_number   TEXT,
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    lng           REAL,
    lat           REAL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_users_location ON users(lat, lng);

CREATE TABLE IF NOT EXISTS resources (
    id           INTEGER PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT,
    category     TEXT NOT NULL CHECK (category IN ('tools', 'appliances', 'furniture', 'books', 'other')),
    apartment_id INTEGER NOT NULL REFERENCES apartments(id),
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    status       TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'requested', 'borrowed', 'declined')),
    borrower_id  INTEGER REFERENCES users(id),
    image        BLOB,
    image_mime   TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((borrower_id IS NOT NULL) = (status IN ('requested', 'borrowed'))),
    CHECK (borrower_id IS NULL OR borrower_id <> owner_id)
);

CREATE INDEX IF NOT EXISTS idx_resources_apartment ON resources(apartment_id, created_at);

CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT,
    date         DATETIME NOT NULL,
    created_by   INTEGER NOT NULL REFERENCES users(id),
    apartment_id INTEGER NOT NULL REFERENCES apartments(id),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS event_attendees (
    event_id   INTEGER NOT NULL REFERENCES events(id),
    user_id    INTEGER NOT NULL REFERENCES users(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY,
    from_id    INTEGER NOT NULL REFERENCES users(id),
    to_id      INTEGER NOT NULL REFERENCES users(id),
    body       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    read_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_id, to_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
    id          INTEGER PRIMARY KEY,
    user_id     INTEGER NOT NULL REFERENCES users(id),
    kind        TEXT NOT NULL,
    text        TEXT NOT NULL,
    resource_id INTEGER REFERENCES resources(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    read_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: listing by owner within an apartment.
	`CREATE INDEX IF NOT EXISTS idx_resources_apartment_owner
	     ON resources(apartment_id, owner_id)`,
	// Migration 2: unread counters for conversations and notifications.
	`CREATE INDEX IF NOT EXISTS idx_messages_unread
	     ON messages(to_id) WHERE read_at IS NULL`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate ensures the schema and then runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
