package v1

import (
	"net/http"
	"path/filepath"
	"strings"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

var (
	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".gif":  true,
	}
	// Customers upload payment screenshots and customization references; admins may
	// also upload product images.
	customerFolders = map[string]bool{"payments": true, "references": true}
	adminFolders    = map[string]bool{"payments": true, "references": true, "products": true}
)

type UploadHandler struct {
	storage       domain.FileStore
	maxUploadSize int64
}

func NewUploadHandler(s domain.FileStore, maxUploadSizeMB int64) *UploadHandler {
	return &UploadHandler{
		storage:       s,
		maxUploadSize: maxUploadSizeMB << 20,
	}
}

// POST /api/v1/upload (multipart: file, folder)
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	log := logger.WithContext(r.Context())
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	if h.storage == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, "File uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		log.Warn().Err(err).Msg("Upload rejected: bad multipart form")
		utils.WriteError(w, http.StatusBadRequest, "File too large or invalid format")
		return
	}

	folder := r.FormValue("folder")
	if folder == "" {
		folder = "references"
	}
	allowed := customerFolders
	if actor.IsAdmin() {
		allowed = adminFolders
	}
	if !allowed[folder] {
		utils.WriteError(w, http.StatusBadRequest, "Invalid upload folder")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !utils.IsImage(contentType) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid file type. Allowed: JPEG, PNG, WebP, GIF")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		utils.WriteError(w, http.StatusBadRequest, "Invalid file extension")
		return
	}

	processed, newContentType, err := utils.ProcessImage(file)
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("Image processing failed")
		utils.WriteError(w, http.StatusBadRequest, "Failed to process image")
		return
	}

	url, err := h.storage.Upload(r.Context(), processed, newContentType, folder)
	if err != nil {
		writeUsecaseError(w, r, &domain.ExternalServiceError{Service: "file-store", Err: err})
		return
	}

	log.Info().Str("folder", folder).Int("bytes", len(processed)).Msg("File uploaded")
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}
