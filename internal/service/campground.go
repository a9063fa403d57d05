package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/events"
	"github.com/sakif/journeyhub/internal/geocode"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/middleware"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

// CampgroundService implements the campground lifecycle.
//
// Writes happen in a fixed order and are never wrapped in a transaction that
// spans collaborators: a media deletion failing halfway through an update is
// logged and the update carries on.
type CampgroundService struct {
	camps    repository.CampgroundRepository
	users    repository.UserRepository
	geocoder geocode.Geocoder
	media    media.Store
	effects
}

// NewCampgroundService wires the campground operations. Pass WithCache and
// WithEvents to enable the list cache and event publishing.
func NewCampgroundService(
	camps repository.CampgroundRepository,
	users repository.UserRepository,
	geocoder geocode.Geocoder,
	store media.Store,
	logger *slog.Logger,
	opts ...Option,
) *CampgroundService {
	return &CampgroundService{
		camps:    camps,
		users:    users,
		geocoder: geocoder,
		media:    store,
		effects:  newEffects(logger, opts),
	}
}

// CampgroundView is a campground with its author populated. The Author field
// shadows the embedded author id in JSON.
type CampgroundView struct {
	model.Campground
	Author *model.PublicUser `json:"author"`
}

// CreateCampgroundInput is the allow-list for POST /campgrounds. Images were
// uploaded beforehand through /uploads.
type CreateCampgroundInput struct {
	Title       string        `json:"title" validate:"required,max=200"`
	Location    string        `json:"location" validate:"required,max=300"`
	Price       float64       `json:"price" validate:"gte=0"`
	Description string        `json:"description" validate:"max=5000"`
	Images      []model.Image `json:"images"`
}

// UpdateCampgroundInput is the allow-list for PUT /campgrounds/{id}. A nil
// field is left unchanged; anything not listed here is ignored.
type UpdateCampgroundInput struct {
	Title        *string       `json:"title" validate:"omitnil,max=200"`
	Location     *string       `json:"location" validate:"omitnil,max=300"`
	Price        *float64      `json:"price" validate:"omitnil,gte=0"`
	Description  *string       `json:"description" validate:"omitnil,max=5000"`
	ImagesAdd    []model.Image `json:"imagesAdd"`
	DeleteImages []string      `json:"deleteImages"`
}

// List returns every campground in its summary projection, serving from the
// cache when one is configured. Cache failures fall through to the store.
// The cache generation is read before the store so a write that lands in
// between keeps the stale list out of the cache.
func (s *CampgroundService) List(ctx context.Context) ([]model.CampgroundSummary, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		list, ok, err := s.cache.GetList(ctx)
		switch {
		case err != nil:
			s.logger.Warn("campground list cache read failed", slog.String("error", err.Error()))
		case ok:
			return list, nil
		}

		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("campground list cache generation read failed", slog.String("error", err.Error()))
		} else {
			cacheable = true
		}
	}

	list, err := s.camps.ListCampgrounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/campground: listing: %w", err)
	}
	if list == nil {
		list = []model.CampgroundSummary{}
	}

	if cacheable {
		stored, err := s.cache.SetList(ctx, list, gen)
		switch {
		case err != nil:
			s.logger.Warn("campground list cache write failed", slog.String("error", err.Error()))
		case !stored:
			s.logger.Debug("campground list changed while loading, not cached")
		}
	}
	return list, nil
}

// Get returns one campground with its author's public profile. A campground
// whose author no longer resolves is returned with a nil author.
func (s *CampgroundService) Get(ctx context.Context, id string) (*CampgroundView, error) {
	camp, err := s.camps.GetCampground(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/campground: loading %s: %w", id, err)
	}

	view := &CampgroundView{Campground: *camp}
	if camp.Author == "" {
		return view, nil
	}

	author, err := s.users.GetUserByID(ctx, camp.Author)
	switch {
	case err == nil:
		pub := author.Public()
		view.Author = &pub
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/campground: loading author of %s: %w", id, err)
	}
	return view, nil
}

// Create geocodes the location and stores a new campground owned by
// authorID. A location the geocoder cannot resolve, whether it finds no
// match or the lookup itself fails, is rejected and persists nothing.
func (s *CampgroundService) Create(ctx context.Context, authorID string, in CreateCampgroundInput) (*model.Campground, error) {
	if authorID == "" {
		return nil, apperror.Unauthenticated("Unauthorized")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" || in.Location == "" {
		return nil, apperror.ValidationFailed("title", "Missing required fields")
	}
	if err := check(in, ""); err != nil {
		return nil, err
	}

	geometry, err := s.geocoder.Forward(ctx, in.Location)
	if err != nil {
		s.logger.Warn("geocoding failed",
			slog.String("location", in.Location),
			slog.String("error", err.Error()),
		)
		geometry = nil
	}
	if geometry == nil {
		return nil, apperror.ValidationFailed("location", "Invalid location")
	}

	images := in.Images
	if images == nil {
		images = []model.Image{}
	}

	camp := &model.Campground{
		Title:       in.Title,
		Location:    in.Location,
		Price:       in.Price,
		Description: strings.TrimSpace(in.Description),
		Images:      images,
		Geometry:    geometry,
		Author:      authorID,
		Reviews:     []string{},
	}
	if err := s.camps.CreateCampground(ctx, camp); err != nil {
		return nil, fmt.Errorf("service/campground: creating %q: %w", in.Title, err)
	}

	s.logger.Info("campground created",
		slog.String("id", camp.ID),
		slog.String("author", authorID),
	)
	s.invalidateList(ctx)
	s.publish(ctx, events.New(events.CampgroundCreated, camp.ID, authorID))
	return camp, nil
}

// loadOwned fetches a campground and checks that userID owns it. Existence
// is checked first, so a non-owner sees Forbidden, never NotFound.
func (s *CampgroundService) loadOwned(ctx context.Context, userID, id string) (*model.Campground, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("Unauthorized")
	}
	camp, err := s.camps.GetCampground(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/campground: loading %s: %w", id, err)
	}
	if !auth.IsOwner(userID, camp.Author) {
		return nil, apperror.Forbidden("Forbidden")
	}
	return camp, nil
}

// Update overwrites the allow-listed fields, appends ImagesAdd and removes
// DeleteImages. Each deleted filename is destroyed in the media store first
// (failures are swallowed), then all matching entries are pulled in one
// operation. The author is never touched.
func (s *CampgroundService) Update(ctx context.Context, userID, id string, in UpdateCampgroundInput) (*model.Campground, error) {
	camp, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := check(in, ""); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "Title cannot be empty")
		}
		camp.Title = title
	}
	if in.Location != nil {
		location := strings.TrimSpace(*in.Location)
		if location == "" {
			return nil, apperror.ValidationFailed("location", "Location cannot be empty")
		}
		camp.Location = location
	}
	if in.Price != nil {
		camp.Price = *in.Price
	}
	if in.Description != nil {
		camp.Description = strings.TrimSpace(*in.Description)
	}
	camp.Images = append(camp.Images, in.ImagesAdd...)

	if err := s.camps.UpdateCampground(ctx, camp); err != nil {
		return nil, fmt.Errorf("service/campground: updating %s: %w", id, err)
	}

	deletions := compact(in.DeleteImages)
	if len(deletions) > 0 {
		for _, filename := range deletions {
			if !slices.ContainsFunc(camp.Images, func(img model.Image) bool { return img.Filename == filename }) {
				s.logger.Warn("media delete skipped, image not on campground",
					slog.String("campground_id", id),
					slog.String("filename", filename),
				)
				continue
			}
			if err := s.media.Destroy(ctx, filename); err != nil {
				middleware.MediaDestroyFailures.WithLabelValues("campground_update").Inc()
				s.logger.Warn("media delete failed",
					slog.String("campground_id", id),
					slog.String("filename", filename),
					slog.String("error", err.Error()),
				)
			}
		}
		if err := s.camps.PullCampgroundImages(ctx, id, deletions); err != nil {
			return nil, fmt.Errorf("service/campground: pulling images from %s: %w", id, err)
		}
		camp.Images = slices.DeleteFunc(camp.Images, func(img model.Image) bool {
			return slices.Contains(deletions, img.Filename)
		})
	}

	s.logger.Info("campground updated",
		slog.String("id", id),
		slog.Int("images_added", len(in.ImagesAdd)),
		slog.Int("images_deleted", len(deletions)),
	)
	s.invalidateList(ctx)
	s.publish(ctx, events.New(events.CampgroundUpdated, id, userID))
	return camp, nil
}

// Delete removes the campground. Its reviews are left in place.
func (s *CampgroundService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.camps.DeleteCampground(ctx, id); err != nil {
		return fmt.Errorf("service/campground: deleting %s: %w", id, err)
	}

	s.logger.Info("campground deleted", slog.String("id", id), slog.String("by", userID))
	s.invalidateList(ctx)
	s.publish(ctx, events.New(events.CampgroundDeleted, id, userID))
	return nil
}

// UploadImage stores a campground image out-of-band; the returned reference
// is later sent in images or imagesAdd.
func (s *CampgroundService) UploadImage(ctx context.Context, r io.Reader) (model.Image, error) {
	img, err := s.media.Upload(ctx, r, media.CampgroundImage())
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return model.Image{}, apperror.ValidationFailed("file", "Invalid image")
		}
		return model.Image{}, fmt.Errorf("service/campground: uploading image: %w", err)
	}
	return img, nil
}

// compact drops blanks and duplicates, keeping first-seen order.
func compact(filenames []string) []string {
	out := make([]string, 0, len(filenames))
	for _, f := range filenames {
		f = strings.TrimSpace(f)
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
