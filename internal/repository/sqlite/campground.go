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

var _ repository.CampgroundRepository = (*DB)(nil)

// execer is the subset of *sql.DB and *sql.Tx the image writer needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateCampground inserts the campground row and its image rows in one
// transaction, generating the id and timestamps. The review list always
// starts empty.
func (db *DB) CreateCampground(ctx context.Context, camp *model.Campground) error {
	now := time.Now().UTC()
	camp.ID = xid.New().String()
	camp.CreatedAt = now
	camp.UpdatedAt = now
	camp.Reviews = []string{}
	if camp.Images == nil {
		camp.Images = []model.Image{}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	lng, lat := geometryColumns(camp.Geometry)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO campgrounds (id, title, location, price, description, lng, lat, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		camp.ID,
		camp.Title,
		camp.Location,
		camp.Price,
		camp.Description,
		lng,
		lat,
		camp.Author,
		camp.CreatedAt,
		camp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting campground: %w", err)
	}

	if err := insertImages(ctx, tx, camp.ID, camp.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing campground %s: %w", camp.ID, err)
	}
	return nil
}

// GetCampground loads the full campground: fields, images and review ids.
func (db *DB) GetCampground(ctx context.Context, id string) (*model.Campground, error) {
	var (
		c        model.Campground
		lng, lat sql.NullFloat64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, location, price, description, lng, lat, author_id, created_at, updated_at
		 FROM campgrounds WHERE id = ?`,
		id,
	).Scan(
		&c.ID,
		&c.Title,
		&c.Location,
		&c.Price,
		&c.Description,
		&lng,
		&lat,
		&c.Author,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("campground", id)
		}
		return nil, fmt.Errorf("sqlite: getting campground %s: %w", id, err)
	}
	c.Geometry = geometryFromColumns(lng, lat)

	images, err := db.imagesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	c.Images = images[id]
	if c.Images == nil {
		c.Images = []model.Image{}
	}

	c.Reviews, err = db.reviewIDsFor(ctx, id)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListCampgrounds returns every campground in creation order, projected
// onto the summary shape.
func (db *DB) ListCampgrounds(ctx context.Context) ([]model.CampgroundSummary, error) {
	return db.listSummaries(ctx,
		`SELECT id, title, location, price, lng, lat FROM campgrounds ORDER BY id`,
	)
}

// RecentCampgroundsByAuthor returns the author's newest campgrounds first.
// xid ids sort by creation time, so ordering by id is ordering by age.
func (db *DB) RecentCampgroundsByAuthor(ctx context.Context, authorID string, limit int) ([]model.CampgroundSummary, error) {
	return db.listSummaries(ctx,
		`SELECT id, title, location, price, lng, lat FROM campgrounds
		 WHERE author_id = ? ORDER BY id DESC LIMIT ?`,
		authorID, limit,
	)
}

// CountCampgroundsByAuthor counts the campgrounds an author created.
func (db *DB) CountCampgroundsByAuthor(ctx context.Context, authorID string) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campgrounds WHERE author_id = ?`, authorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting campgrounds of %s: %w", authorID, err)
	}
	return n, nil
}

// listSummaries runs a summary query and attaches images. The rows are fully
// drained and closed before the image query runs (single connection pool).
func (db *DB) listSummaries(ctx context.Context, query string, args ...any) ([]model.CampgroundSummary, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing campgrounds: %w", err)
	}

	summaries := []model.CampgroundSummary{}
	for rows.Next() {
		var (
			s        model.CampgroundSummary
			lng, lat sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Location, &s.Price, &lng, &lat); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning campground row: %w", err)
		}
		s.Geometry = geometryFromColumns(lng, lat)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating campground rows: %w", err)
	}
	rows.Close()

	if len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	images, err := db.imagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Images = images[summaries[i].ID]
		if summaries[i].Images == nil {
			summaries[i].Images = []model.Image{}
		}
	}

	return summaries, nil
}

// UpdateCampground overwrites the editable fields and rewrites the image
// list in order. Author, geometry and the review list are left alone.
func (db *DB) UpdateCampground(ctx context.Context, camp *model.Campground) error {
	camp.UpdatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE campgrounds
		 SET title = ?, location = ?, price = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		camp.Title,
		camp.Location,
		camp.Price,
		camp.Description,
		camp.UpdatedAt,
		camp.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating campground %s: %w", camp.ID, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	} else if n == 0 {
		return apperror.NotFound("campground", camp.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM campground_images WHERE campground_id = ?`, camp.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing images of %s: %w", camp.ID, err)
	}
	if err := insertImages(ctx, tx, camp.ID, camp.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing campground %s: %w", camp.ID, err)
	}
	return nil
}

// PullCampgroundImages removes every image of the campground whose filename
// is listed, in a single statement.
func (db *DB) PullCampgroundImages(ctx context.Context, id string, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}

	args := make([]any, 0, len(filenames)+1)
	args = append(args, id)
	for _, f := range filenames {
		args = append(args, f)
	}

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM campground_images
		 WHERE campground_id = ? AND filename IN (`+placeholders(len(filenames))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: pulling images from %s: %w", id, err)
	}
	return nil
}

// AppendCampgroundReview adds reviewID at the end of the campground's
// review list. Appending an id that is already present is a no-op.
func (db *DB) AppendCampgroundReview(ctx context.Context, campgroundID, reviewID string) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campgrounds WHERE id = ?`, campgroundID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking campground %s: %w", campgroundID, err)
	}
	if exists == 0 {
		return apperror.NotFound("campground", campgroundID)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO campground_reviews (campground_id, review_id, position)
		 SELECT ?, ?, COALESCE(MAX(position), -1) + 1
		 FROM campground_reviews WHERE campground_id = ?`,
		campgroundID, reviewID, campgroundID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending review %s to %s: %w", reviewID, campgroundID, err)
	}
	return nil
}

// PullReviewFromCampgrounds removes reviewID from every campground that
// references it.
func (db *DB) PullReviewFromCampgrounds(ctx context.Context, reviewID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM campground_reviews WHERE review_id = ?`, reviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: pulling review %s: %w", reviewID, err)
	}
	return nil
}

// DeleteCampground removes the campground. Its image rows and review
// references cascade; the reviews themselves are kept.
func (db *DB) DeleteCampground(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM campgrounds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting campground %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("campground", id)
	}
	return nil
}

// insertImages writes images for campgroundID at positions 0..n-1.
func insertImages(ctx context.Context, ex execer, campgroundID string, images []model.Image) error {
	for i, img := range images {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO campground_images (campground_id, position, url, filename)
			 VALUES (?, ?, ?, ?)`,
			campgroundID, i, img.URL, img.Filename,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting image %d of %s: %w", i, campgroundID, err)
		}
	}
	return nil
}

// imagesFor loads the ordered image lists of the given campgrounds.
func (db *DB) imagesFor(ctx context.Context, ids []string) (map[string][]model.Image, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT campground_id, url, filename FROM campground_images
		 WHERE campground_id IN (`+placeholders(len(ids))+`)
		 ORDER BY campground_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading images: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Image, len(ids))
	for rows.Next() {
		var (
			campID string
			img    model.Image
		)
		if err := rows.Scan(&campID, &img.URL, &img.Filename); err != nil {
			return nil, fmt.Errorf("sqlite: scanning image row: %w", err)
		}
		out[campID] = append(out[campID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating image rows: %w", err)
	}
	return out, nil
}

// reviewIDsFor loads the ordered review reference list of one campground.
func (db *DB) reviewIDsFor(ctx context.Context, campgroundID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT review_id FROM campground_reviews WHERE campground_id = ? ORDER BY position`,
		campgroundID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading review ids of %s: %w", campgroundID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating review ids: %w", err)
	}
	return ids, nil
}

func geometryColumns(g *model.Geometry) (lng, lat sql.NullFloat64) {
	if g == nil {
		return lng, lat
	}
	return sql.NullFloat64{Float64: g.Coordinates[0], Valid: true},
		sql.NullFloat64{Float64: g.Coordinates[1], Valid: true}
}

func geometryFromColumns(lng, lat sql.NullFloat64) *model.Geometry {
	if !lng.Valid || !lat.Valid {
		return nil
	}
	return model.NewPoint(lng.Float64, lat.Float64)
}
