package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/service"
)

// ReviewHandler serves the review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a handler for the nested review routes.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: svc, logger: logger}
}

// HandleList returns a campground's reviews with their authors.
//
// HTTP: GET /campgrounds/{id}/reviews
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListForCampground(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to load reviews")
		return
	}
	writeOK(w, http.StatusOK, envelope{"reviews": reviews})
}

// createReviewRequest accepts {"review": {"rating", "body"}} as well as the
// flat {"rating", "body"}. The nested form wins when present.
type createReviewRequest struct {
	Review *service.CreateReviewInput `json:"review"`
	service.CreateReviewInput
}

// HandleCreate posts a review on a campground.
//
// HTTP: POST /campgrounds/{id}/reviews (RequireAuth)
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err, "Failed to create review")
		return
	}
	in := req.CreateReviewInput
	if req.Review != nil {
		in = *req.Review
	}

	review, err := h.reviews.Create(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to create review")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"reviewId": review.ID})
}

// HandleDelete removes a review the caller wrote.
//
// HTTP: DELETE /reviews/{id} (RequireAuth, owner)
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.reviews.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "Failed to delete review")
		return
	}
	writeOK(w, http.StatusOK, nil)
}
