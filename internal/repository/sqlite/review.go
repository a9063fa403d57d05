package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

// CreateReview inserts a review. It does not touch any campground: linking
// the review into a campground is a separate write.
func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	review.ID = xid.New().String()
	review.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, body, rating, author_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		review.ID,
		review.Body,
		review.Rating,
		review.Author,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting review: %w", err)
	}
	return nil
}

// GetReview retrieves a single review by id.
func (db *DB) GetReview(ctx context.Context, id string) (*model.Review, error) {
	var r model.Review
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, body, rating, author_id, created_at FROM reviews WHERE id = ?`, id,
	).Scan(&r.ID, &r.Body, &r.Rating, &r.Author, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}
	return &r, nil
}

// GetReviewsByIDs resolves a reference list. The result follows the order
// of ids; ids without a review are skipped.
func (db *DB) GetReviewsByIDs(ctx context.Context, ids []string) ([]model.Review, error) {
	out := []model.Review{}
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	byID, err := db.queryReviews(ctx,
		`SELECT id, body, rating, author_id, created_at FROM reviews
		 WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}

	found := make(map[string]model.Review, len(byID))
	for _, r := range byID {
		found[r.ID] = r
	}
	for _, id := range ids {
		if r, ok := found[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteReview removes the review document. References to it must already
// have been pulled from campgrounds.
func (db *DB) DeleteReview(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

// CountReviewsByAuthor counts the reviews an author wrote.
func (db *DB) CountReviewsByAuthor(ctx context.Context, authorID string) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE author_id = ?`, authorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reviews of %s: %w", authorID, err)
	}
	return n, nil
}

// RecentReviewsByAuthor returns the author's newest reviews first.
func (db *DB) RecentReviewsByAuthor(ctx context.Context, authorID string, limit int) ([]model.Review, error) {
	return db.queryReviews(ctx,
		`SELECT id, body, rating, author_id, created_at FROM reviews
		 WHERE author_id = ? ORDER BY id DESC LIMIT ?`,
		authorID, limit,
	)
}

func (db *DB) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.Body, &r.Rating, &r.Author, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating review rows: %w", err)
	}
	return reviews, nil
}
