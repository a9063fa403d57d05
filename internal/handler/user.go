package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/service"
)

// MinPasswordLength applies to a new password on profile update.
const MinPasswordLength = 6

// UserHandler serves the signed-in user's profile, avatar and stats.
type UserHandler struct {
	users     *service.UserService
	maxUpload int64
	logger    *slog.Logger
}

// NewUserHandler creates a handler for the account routes. maxUpload caps
// the avatar request body in bytes.
func NewUserHandler(svc *service.UserService, maxUpload int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: svc, maxUpload: maxUpload, logger: logger}
}

// HandleUpdate changes the email and/or password.
//
// HTTP: PUT /users/update
// BODY: {"email": "...", "currentPassword": "...", "newPassword": "..."}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err, "Failed to update profile")
		return
	}
	if in.CurrentPassword != "" && in.NewPassword != "" && len([]rune(in.NewPassword)) < MinPasswordLength {
		writeFail(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to update profile")
		return
	}

	writeOK(w, http.StatusOK, envelope{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// HandleAvatarUpload replaces the avatar with the multipart "avatar" file.
//
// HTTP: POST /users/avatar
func (h *UserHandler) HandleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	file, ok := formFile(w, r, "avatar", h.maxUpload, "No file provided")
	if !ok {
		return
	}
	defer file.Close()

	avatar, err := h.users.SetAvatar(r.Context(), userID, file)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to upload avatar")
		return
	}

	writeOK(w, http.StatusOK, envelope{
		"message": "Avatar updated successfully",
		"avatar":  avatar,
	})
}

// HandleAvatarDelete removes the avatar.
//
// HTTP: DELETE /users/avatar
func (h *UserHandler) HandleAvatarDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.users.RemoveAvatar(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err, "Failed to remove avatar")
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Avatar removed successfully"})
}

// HandleStats returns activity counts and recent items.
//
// HTTP: GET /users/stats
func (h *UserHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	stats, user, err := h.users.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch user statistics")
		return
	}
	writeOK(w, http.StatusOK, envelope{"stats": stats, "user": user})
}
