package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/coinledger/backend/src/config"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/security/validation"
	"github.com/username/coinledger/backend/src/services"
)

type UploadHandler struct {
	attachments services.AttachmentService
}

func NewUploadHandler(attachments services.AttachmentService) *UploadHandler {
	return &UploadHandler{attachments: attachments}
}

// HandleUpload accepts a multipart screenshot upload and returns the
// reference to store on the entry.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes+4096)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		sendJSONError(w, "Upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSONError(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" {
		if err := validation.ValidateClientContentType(ct); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ref, url, err := h.attachments.Save(file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttachmentTooBig):
			sendJSONError(w, "Attachment exceeds the maximum allowed size", http.StatusRequestEntityTooLarge)
		case errors.Is(err, services.ErrUnsupportedImage):
			sendJSONError(w, "Attachment must be a PNG, JPEG or WebP image", http.StatusBadRequest)
		default:
			logger.ErrorFromContext(r.Context(), "Failed to store attachment", "error", err)
			sendJSONError(w, "Failed to store attachment", http.StatusInternalServerError)
		}
		return
	}

	logger.InfoFromContext(r.Context(), "Attachment uploaded", "userID", userID, "ref", ref)
	sendJSON(w, map[string]string{"ref": ref, "url": url}, http.StatusCreated)
}

func (h *UploadHandler) HandleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context()); !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	ref := chi.URLParam(r, "ref")
	if err := h.attachments.Delete(ref); err != nil {
		if errors.Is(err, services.ErrAttachmentMissing) {
			sendJSONError(w, "Attachment not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete attachment", "ref", ref, "error", err)
		sendJSONError(w, "Failed to delete attachment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
