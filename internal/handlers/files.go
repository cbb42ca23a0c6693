package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/thundershare/backend/internal/files"
	"github.com/thundershare/backend/internal/logging"
	"github.com/thundershare/backend/internal/models"
)

// maxUploadBytes bounds how much of a multipart upload is buffered in memory.
const maxUploadBytes = 32 << 20

// FileHandler implements the authenticated file endpoints.
type FileHandler struct {
	Files    FileService
	Verifier TokenVerifier
}

// Handle dispatches /api/v1/file requests: GET lists the customer's files,
// POST uploads a new one.
func (h FileHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h FileHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Files == nil {
		logger.Error("file service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "file services unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Verifier)
	if !ok {
		return
	}

	metas, err := h.Files.ListByOwner(ctx, identity.CustomerID)
	if err != nil {
		logger.Error("list files failed", "error", err, "customerId", identity.CustomerID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list files"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, fileListResponse{Files: newFileResponses(metas)})
}

func (h FileHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Files == nil {
		logger.Error("file service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "file services unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Verifier)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid multipart upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	part, header, err := r.FormFile("data")
	if err != nil {
		logger.Warn("upload missing data field", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "multipart field \"data\" is required"})
		return
	}
	defer part.Close()

	meta, err := h.Files.Upload(ctx, identity.CustomerID, part, header.Size)
	if err != nil {
		logger.Error("upload failed", "error", err, "customerId", identity.CustomerID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newFileResponse(meta))
}

// ByID handles GET /api/v1/file/{id} requests.
func (h FileHandler) ByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Files == nil {
		logger.Error("file service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "file services unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Verifier)
	if !ok {
		return
	}

	id := r.PathValue("id")
	meta, err := h.Files.ByID(ctx, id, identity.CustomerID)
	if err != nil {
		switch {
		case errors.Is(err, files.ErrFileNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "file not found"})
		case errors.Is(err, files.ErrNotOwner):
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "file does not belong to customer"})
		default:
			logger.Error("file lookup failed", "error", err, "fileId", id)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load file"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, newFileResponse(meta))
}

type fileResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type fileListResponse struct {
	Files []fileResponse `json:"files"`
}

func newFileResponse(meta models.FileMeta) fileResponse {
	return fileResponse{
		ID:        meta.ID,
		OwnerID:   meta.OwnerID,
		Size:      meta.Size,
		CreatedAt: meta.CreatedAt,
	}
}

func newFileResponses(metas []models.FileMeta) []fileResponse {
	responses := make([]fileResponse, 0, len(metas))
	for _, meta := range metas {
		responses = append(responses, newFileResponse(meta))
	}
	return responses
}
