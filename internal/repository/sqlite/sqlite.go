// Package sqlite implements the repository interfaces on an embedded SQLite
// database. It is the default document store: a single file, no server.
//
// DOCUMENTS ON TABLES:
// A campground "document" is spread over three tables. The ordered image
// list lives in campground_images and the ordered list of review references
// lives in campground_reviews. Both child tables cascade on campground
// deletion; the reviews table itself does not, so deleting a campground
// leaves its reviews in place. campground_reviews.review_id carries no
// foreign key: removing a review's references is the service's job
// (PullReviewFromCampgrounds runs before DeleteReview).
//
// We use modernc.org/sqlite, a pure Go translation of SQLite, so the binary
// needs no C toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/journeyhub/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements every repository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/journeyhub.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
//
// The pool is capped at one connection. SQLite serialises writers anyway,
// PRAGMAs are per-connection, and ":memory:" databases are per-connection
// too. The consequence for this package: never run a query while a
// *sql.Rows from another query is still open, or the call blocks forever.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The child-table cascades
	// depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database is still reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	// Phase 1: users and campgrounds
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS campgrounds (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			location    TEXT NOT NULL,
			price       REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			lng         REAL,
			lat         REAL,
			author_id   TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_campgrounds_author_id ON campgrounds(author_id);

		CREATE TABLE IF NOT EXISTS campground_images (
			campground_id TEXT NOT NULL REFERENCES campgrounds(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			url           TEXT NOT NULL,
			filename      TEXT NOT NULL,
			PRIMARY KEY (campground_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating campground tables: %w", err)
	}

	// Phase 2: reviews and the campground → review reference list
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id         TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			rating     INTEGER NOT NULL,
			author_id  TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_author_id ON reviews(author_id);

		CREATE TABLE IF NOT EXISTS campground_reviews (
			campground_id TEXT NOT NULL REFERENCES campgrounds(id) ON DELETE CASCADE,
			review_id     TEXT NOT NULL,
			position      INTEGER NOT NULL,
			PRIMARY KEY (campground_id, review_id)
		);
		CREATE INDEX IF NOT EXISTS idx_campground_reviews_review_id ON campground_reviews(review_id);
	`)
	if err != nil {
		return fmt.Errorf("creating review tables: %w", err)
	}

	// Phase 3: avatars on users (idempotent on databases created before it).
	if err := db.addColumnIfNotExists("users", "avatar_url", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding avatar_url to users: %w", err)
	}
	if err := db.addColumnIfNotExists("users", "avatar_filename", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding avatar_filename to users: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
