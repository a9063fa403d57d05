package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/middleware"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

// RecentLimit is how many of each item the stats endpoint returns.
const RecentLimit = 5

// UserService manages the signed-in user's own profile.
type UserService struct {
	users     repository.UserRepository
	camps     repository.CampgroundRepository
	reviews   repository.ReviewRepository
	passwords *auth.PasswordService
	media     media.Store
	logger    *slog.Logger
}

// NewUserService wires registration, login and avatar management.
func NewUserService(
	users repository.UserRepository,
	camps repository.CampgroundRepository,
	reviews repository.ReviewRepository,
	passwords *auth.PasswordService,
	store media.Store,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		camps:     camps,
		reviews:   reviews,
		passwords: passwords,
		media:     store,
		logger:    logger,
	}
}

// UpdateProfileInput is the allow-list for PUT /users/update. Empty fields
// are left unchanged. The password changes only when both passwords are set.
type UpdateProfileInput struct {
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfile applies an email and/or password change. The caller enforces
// the minimum length of the new password.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading %s: %w", userID, err)
	}

	in.Email = strings.TrimSpace(in.Email)
	if err := check(in, ""); err != nil {
		return nil, err
	}

	if in.Email != "" && in.Email != user.Email {
		other, err := s.users.GetUserByEmail(ctx, in.Email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, apperror.ValidationFailed("email", "Email already in use")
		case err != nil && !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/user: checking email: %w", err)
		}
		user.Email = in.Email
	}

	if in.CurrentPassword != "" && in.NewPassword != "" {
		if err := s.passwords.Verify(user.PasswordHash, in.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, apperror.ValidationFailed("currentPassword", "Current password is incorrect")
			}
			return nil, fmt.Errorf("service/user: verifying password: %w", err)
		}
		if len(in.NewPassword) > maxPasswordBytes {
			return nil, apperror.ValidationFailed("newPassword", "Password must be 72 bytes or fewer")
		}
		hash, err := s.passwords.Hash(in.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: saving %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("user_id", user.ID))
	return user, nil
}

// SetAvatar uploads a new avatar, deletes the previous media object and then
// stores the new reference. Losing the old object is tolerated.
func (s *UserService) SetAvatar(ctx context.Context, userID string, r io.Reader) (*model.Image, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading %s: %w", userID, err)
	}

	img, err := s.media.Upload(ctx, r, media.Avatar())
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return nil, apperror.ValidationFailed("avatar", "Invalid image")
		}
		return nil, fmt.Errorf("service/user: uploading avatar: %w", err)
	}

	if user.Avatar != nil && user.Avatar.Filename != "" {
		s.destroy(ctx, "avatar_replace", user.Avatar.Filename)
	}

	user.Avatar = &img
	if err := s.users.UpdateUser(ctx, user); err != nil {
		// The new object is unreferenced now.
		s.destroy(ctx, "avatar_rollback", img.Filename)
		return nil, fmt.Errorf("service/user: saving avatar for %s: %w", userID, err)
	}

	s.logger.Info("avatar updated", slog.String("user_id", user.ID), slog.String("filename", img.Filename))
	return &img, nil
}

// RemoveAvatar deletes the avatar object, tolerating failure, and clears the
// reference.
func (s *UserService) RemoveAvatar(ctx context.Context, userID string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/user: loading %s: %w", userID, err)
	}

	if user.Avatar != nil && user.Avatar.Filename != "" {
		s.destroy(ctx, "avatar_remove", user.Avatar.Filename)
	}

	user.Avatar = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/user: clearing avatar for %s: %w", userID, err)
	}

	s.logger.Info("avatar removed", slog.String("user_id", user.ID))
	return nil
}

// Stats summarises a user's activity.
type Stats struct {
	CampgroundCount   int64                     `json:"campgroundCount"`
	ReviewCount       int64                     `json:"reviewCount"`
	RecentCampgrounds []model.CampgroundSummary `json:"recentCampgrounds"`
	RecentReviews     []model.Review            `json:"recentReviews"`
}

// Stats returns the user with their campground and review counts and the
// RecentLimit newest items of each.
func (s *UserService) Stats(ctx context.Context, userID string) (*Stats, *model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/user: loading %s: %w", userID, err)
	}

	var st Stats
	if st.CampgroundCount, err = s.camps.CountCampgroundsByAuthor(ctx, user.ID); err != nil {
		return nil, nil, fmt.Errorf("service/user: counting campgrounds: %w", err)
	}
	if st.ReviewCount, err = s.reviews.CountReviewsByAuthor(ctx, user.ID); err != nil {
		return nil, nil, fmt.Errorf("service/user: counting reviews: %w", err)
	}
	if st.RecentCampgrounds, err = s.camps.RecentCampgroundsByAuthor(ctx, user.ID, RecentLimit); err != nil {
		return nil, nil, fmt.Errorf("service/user: recent campgrounds: %w", err)
	}
	if st.RecentReviews, err = s.reviews.RecentReviewsByAuthor(ctx, user.ID, RecentLimit); err != nil {
		return nil, nil, fmt.Errorf("service/user: recent reviews: %w", err)
	}

	if st.RecentCampgrounds == nil {
		st.RecentCampgrounds = []model.CampgroundSummary{}
	}
	if st.RecentReviews == nil {
		st.RecentReviews = []model.Review{}
	}
	return &st, user, nil
}

func (s *UserService) destroy(ctx context.Context, flow, filename string) {
	if err := s.media.Destroy(ctx, filename); err != nil {
		middleware.MediaDestroyFailures.WithLabelValues(flow).Inc()
		s.logger.Warn("media delete failed",
			slog.String("flow", flow),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
}
