// Package repository declares the storage contracts the services depend on.
//
// Two implementations exist: repository/sqlite (embedded, the default) and
// repository/mongo (a MongoDB document store). Both translate driver errors
// into apperror values: a missing or malformed id becomes ErrNotFound and a
// duplicate unique field becomes ErrConflict.
package repository

import (
	"context"

	"github.com/sakif/journeyhub/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser persists email, password hash and avatar. Username and id
	// are immutable.
	UpdateUser(ctx context.Context, user *model.User) error
}

type CampgroundRepository interface {
	CreateCampground(ctx context.Context, camp *model.Campground) error
	GetCampground(ctx context.Context, id string) (*model.Campground, error)
	ListCampgrounds(ctx context.Context) ([]model.CampgroundSummary, error)
	// UpdateCampground writes title, location, price, description and the
	// image list. Author and reviews are never touched.
	UpdateCampground(ctx context.Context, camp *model.Campground) error
	// PullCampgroundImages removes, in one operation, every image whose
	// filename is in filenames.
	PullCampgroundImages(ctx context.Context, id string, filenames []string) error
	AppendCampgroundReview(ctx context.Context, campgroundID, reviewID string) error
	// PullReviewFromCampgrounds removes reviewID from the review list of
	// every campground that references it.
	PullReviewFromCampgrounds(ctx context.Context, reviewID string) error
	DeleteCampground(ctx context.Context, id string) error
	CountCampgroundsByAuthor(ctx context.Context, authorID string) (int64, error)
	RecentCampgroundsByAuthor(ctx context.Context, authorID string, limit int) ([]model.CampgroundSummary, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReview(ctx context.Context, id string) (*model.Review, error)
	// GetReviewsByIDs returns the reviews in the order of ids, skipping ids
	// that no longer resolve.
	GetReviewsByIDs(ctx context.Context, ids []string) ([]model.Review, error)
	DeleteReview(ctx context.Context, id string) error
	CountReviewsByAuthor(ctx context.Context, authorID string) (int64, error)
	RecentReviewsByAuthor(ctx context.Context, authorID string, limit int) ([]model.Review, error)
}

// Store is a complete document store: every repository plus a lifecycle.
type Store interface {
	UserRepository
	CampgroundRepository
	ReviewRepository
	Close() error
}
