package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/events"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

// ReviewService implements the review lifecycle and keeps every
// campground's review list free of deleted ids.
type ReviewService struct {
	reviews repository.ReviewRepository
	camps   repository.CampgroundRepository
	users   repository.UserRepository
	effects
}

// NewReviewService wires the review operations.
func NewReviewService(
	reviews repository.ReviewRepository,
	camps repository.CampgroundRepository,
	users repository.UserRepository,
	logger *slog.Logger,
	opts ...Option,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		camps:   camps,
		users:   users,
		effects: newEffects(logger, opts),
	}
}

// ReviewView is a review with its author populated.
type ReviewView struct {
	model.Review
	Author *model.PublicUser `json:"author"`
}

// CreateReviewInput carries a review body and rating. Rating is a pointer so
// a missing rating can be told apart from zero, which is accepted. No range
// is enforced.
type CreateReviewInput struct {
	Body   string `json:"body" validate:"max=5000"`
	Rating *int   `json:"rating"`
}

var errCampgroundMissing = &apperror.AppError{Err: apperror.ErrNotFound, Message: "Campground not found"}

// ListForCampground returns the campground's reviews in attachment order,
// each with its author's public profile.
func (s *ReviewService) ListForCampground(ctx context.Context, campgroundID string) ([]ReviewView, error) {
	camp, err := s.camps.GetCampground(ctx, campgroundID)
	if err != nil {
		return nil, fmt.Errorf("service/review: loading campground %s: %w", campgroundID, err)
	}

	reviews, err := s.reviews.GetReviewsByIDs(ctx, camp.Reviews)
	if err != nil {
		return nil, fmt.Errorf("service/review: loading reviews of %s: %w", campgroundID, err)
	}

	authors := make(map[string]*model.PublicUser)
	views := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		author, seen := authors[r.Author]
		if !seen && r.Author != "" {
			u, err := s.users.GetUserByID(ctx, r.Author)
			switch {
			case err == nil:
				pub := u.Public()
				author = &pub
			case !errors.Is(err, apperror.ErrNotFound):
				return nil, fmt.Errorf("service/review: loading author %s: %w", r.Author, err)
			}
			authors[r.Author] = author
		}
		views = append(views, ReviewView{Review: r, Author: author})
	}
	return views, nil
}

// Create stores a review by authorID, then appends its id to the
// campground. The two writes are not atomic: if the append fails the review
// exists unreferenced and the error is returned.
func (s *ReviewService) Create(ctx context.Context, authorID, campgroundID string, in CreateReviewInput) (*model.Review, error) {
	if authorID == "" {
		return nil, apperror.Unauthenticated("Unauthorized")
	}

	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" || in.Rating == nil {
		return nil, apperror.ValidationFailed("review", "Missing review body or rating")
	}
	if err := check(in, ""); err != nil {
		return nil, err
	}

	if _, err := s.camps.GetCampground(ctx, campgroundID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errCampgroundMissing
		}
		return nil, fmt.Errorf("service/review: loading campground %s: %w", campgroundID, err)
	}

	review := &model.Review{Body: in.Body, Rating: *in.Rating, Author: authorID}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("service/review: creating review: %w", err)
	}

	if err := s.camps.AppendCampgroundReview(ctx, campgroundID, review.ID); err != nil {
		s.logger.Error("review saved but not attached",
			slog.String("review_id", review.ID),
			slog.String("campground_id", campgroundID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errCampgroundMissing
		}
		return nil, fmt.Errorf("service/review: attaching %s to %s: %w", review.ID, campgroundID, err)
	}

	s.logger.Info("review created",
		slog.String("id", review.ID),
		slog.String("campground_id", campgroundID),
		slog.String("author", authorID),
	)
	ev := events.New(events.ReviewCreated, review.ID, authorID)
	ev.ParentID = campgroundID
	s.publish(ctx, ev)
	return review, nil
}

// Delete removes a review owned by userID. The id is first pulled from every
// campground that references it, then the review itself is deleted, so no
// reader sees a dangling reference.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	if userID == "" {
		return apperror.Unauthenticated("Unauthorized")
	}

	review, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("service/review: loading %s: %w", reviewID, err)
	}
	if !auth.IsOwner(userID, review.Author) {
		return apperror.Forbidden("Forbidden")
	}

	if err := s.camps.PullReviewFromCampgrounds(ctx, reviewID); err != nil {
		return fmt.Errorf("service/review: unlinking %s: %w", reviewID, err)
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("service/review: deleting %s: %w", reviewID, err)
	}

	s.logger.Info("review deleted", slog.String("id", reviewID), slog.String("by", userID))
	s.publish(ctx, events.New(events.ReviewDeleted, reviewID, userID))
	return nil
}
