package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/sakif/journeyhub/internal/service"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// UploadHandler stores campground images ahead of create/update.
type UploadHandler struct {
	camps     *service.CampgroundService
	maxUpload int64
	logger    *slog.Logger
}

// NewUploadHandler creates the image upload handler. Request bodies larger
// than maxUpload bytes are rejected.
func NewUploadHandler(svc *service.CampgroundService, maxUpload int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{camps: svc, maxUpload: maxUpload, logger: logger}
}

// HandleUpload stores the multipart "file" field.
//
// HTTP: POST /uploads
// RESPONSE: {"ok": true, "url": "...", "filename": "JourneyHub/..."}
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, ok := formFile(w, r, "file", h.maxUpload, "Missing file")
	if !ok {
		return
	}
	defer file.Close()

	img, err := h.camps.UploadImage(r.Context(), file)
	if err != nil {
		writeError(w, r, h.logger, err, "Upload failed")
		return
	}
	writeOK(w, http.StatusOK, envelope{"url": img.URL, "filename": img.Filename})
}

// formFile opens a multipart file field, writing the 400 response itself
// when the body is too large, malformed, or lacks the field.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64, missing string) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFail(w, http.StatusBadRequest, "File too large")
			return nil, false
		}
		writeFail(w, http.StatusBadRequest, missing)
		return nil, false
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		writeFail(w, http.StatusBadRequest, missing)
		return nil, false
	}
	return file, true
}
