package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/journeyhub/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only for this connection.
// Because the pool is capped at one connection, every query in a test sees
// the same database, and it disappears when the test closes it.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$hash",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// createTestCampground creates a campground owned by author.
func createTestCampground(t *testing.T, db *DB, author, title string, images ...model.Image) *model.Campground {
	t.Helper()
	c := &model.Campground{
		Title:    title,
		Location: "Yosemite, CA",
		Price:    20,
		Geometry: model.NewPoint(-119.5383, 37.8651),
		Author:   author,
		Images:   images,
	}
	if err := db.CreateCampground(context.Background(), c); err != nil {
		t.Fatalf("failed to create test campground: %v", err)
	}
	return c
}

// createTestReview creates a review and links it into campgroundID.
func createTestReview(t *testing.T, db *DB, author, campgroundID, body string) *model.Review {
	t.Helper()
	ctx := context.Background()
	r := &model.Review{Body: body, Rating: 4, Author: author}
	if err := db.CreateReview(ctx, r); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	if err := db.AppendCampgroundReview(ctx, campgroundID, r.ID); err != nil {
		t.Fatalf("failed to link test review: %v", err)
	}
	return r
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// New already migrated once; a second run must not fail.
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
