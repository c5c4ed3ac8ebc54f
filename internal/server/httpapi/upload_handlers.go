package httpapi

import (
	"net/http"

	"github.com/copypaster/server/internal/server/uploads"
)

// UploadHandler hands out presigned PUT URLs for item image uploads.
type UploadHandler struct {
	uploads *uploads.Service
}

func NewUploadHandler(uploads *uploads.Service) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.uploads.PresignPutURL(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}
