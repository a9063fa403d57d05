package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/service"
)

// CampgroundHandler serves the campground CRUD endpoints.
type CampgroundHandler struct {
	camps  *service.CampgroundService
	logger *slog.Logger
}

// NewCampgroundHandler creates a handler for the campground routes.
func NewCampgroundHandler(svc *service.CampgroundService, logger *slog.Logger) *CampgroundHandler {
	return &CampgroundHandler{camps: svc, logger: logger}
}

// HandleList returns the summary projection of every campground.
//
// HTTP: GET /campgrounds
func (h *CampgroundHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	camps, err := h.camps.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to load campgrounds")
		return
	}
	writeOK(w, http.StatusOK, envelope{"camps": camps})
}

// HandleGet returns one campground with its author populated.
//
// HTTP: GET /campgrounds/{id}
func (h *CampgroundHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	camp, err := h.camps.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to load campground")
		return
	}
	writeOK(w, http.StatusOK, envelope{"camp": camp})
}

// createCampgroundRequest accepts the image list under either key; older
// clients send "imagesAdd" on create as well as on update.
type createCampgroundRequest struct {
	service.CreateCampgroundInput
	ImagesAdd []model.Image `json:"imagesAdd"`
}

// HandleCreate creates a campground owned by the caller.
//
// HTTP: POST /campgrounds (RequireAuth)
// BODY: {"title", "location", "price", "description", "images": [{url, filename}]}
func (h *CampgroundHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createCampgroundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err, "Failed to create campground")
		return
	}
	in := req.CreateCampgroundInput
	in.Images = append(in.Images, req.ImagesAdd...)

	camp, err := h.camps.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to create campground")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"id": camp.ID})
}

// HandleUpdate edits a campground the caller owns. Unknown body fields are
// ignored.
//
// HTTP: PUT /campgrounds/{id} (RequireAuth, owner)
// BODY: {"title"?, "location"?, "price"?, "description"?, "imagesAdd"?, "deleteImages"?}
func (h *CampgroundHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.UpdateCampgroundInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err, "Failed to update campground")
		return
	}

	camp, err := h.camps.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to update campground")
		return
	}
	writeOK(w, http.StatusOK, envelope{"camp": camp})
}

// HandleDelete removes a campground the caller owns.
//
// HTTP: DELETE /campgrounds/{id} (RequireAuth, owner)
func (h *CampgroundHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.camps.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "Failed to delete campground")
		return
	}
	writeOK(w, http.StatusOK, nil)
}
