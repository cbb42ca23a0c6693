package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thundershare/backend/internal/files"
	"github.com/thundershare/backend/internal/logging"
	"github.com/thundershare/backend/internal/models"
)

// ShareHandler implements sharing-link creation and public resolution.
type ShareHandler struct {
	Files    FileService
	Verifier TokenVerifier
}

// Create handles POST /api/v1/file/sharing requests.
func (h ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid share payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.FileID = strings.TrimSpace(req.FileID)
	if req.FileID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "fileId is required"})
		return
	}

	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		logger.Warn("invalid share expiry", "expiresAt", req.ExpiresAt, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "expiresAt must be an RFC 3339 timestamp"})
		return
	}

	share, err := h.Files.CreateShare(ctx, files.CreateShareRequest{
		FileID:    req.FileID,
		ExpiresAt: expiresAt,
		Password:  req.Password,
		OwnerID:   identity.CustomerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, files.ErrFileNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "file not found"})
		case errors.Is(err, files.ErrNotOwner):
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "file does not belong to customer"})
		default:
			logger.Error("create share failed", "error", err, "fileId", req.FileID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create sharing link"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newShareResponse(share))
}

// Resolve handles GET /api/v1/file/sharing/{id} requests. This endpoint is
// public; the link itself, plus its optional password, is the credential.
func (h ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
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

	shareID := r.PathValue("id")
	password := r.URL.Query().Get("password")

	meta, stream, err := h.Files.OpenShare(ctx, shareID, password)
	if err != nil {
		switch {
		case errors.Is(err, files.ErrFileNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "file not found"})
		case errors.Is(err, files.ErrShareExpired):
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "sharing link expired"})
		case errors.Is(err, files.ErrSharePasswordMismatch):
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "password incorrect"})
		default:
			logger.Error("resolve share failed", "error", err, "shareId", shareID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to open sharing link"})
		}
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.ID))
	if meta.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	}

	if _, err := io.Copy(w, stream); err != nil {
		logger.Error("stream shared file", "error", err, "shareId", shareID)
	}
}

type createShareRequest struct {
	FileID    string  `json:"fileId"`
	ExpiresAt string  `json:"expiresAt"`
	Password  *string `json:"password,omitempty"`
}

type shareResponse struct {
	ID        string    `json:"id"`
	FileID    string    `json:"fileId"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
	Protected bool      `json:"protected"`
}

func newShareResponse(share models.FileShare) shareResponse {
	return shareResponse{
		ID:        share.ID,
		FileID:    share.FileID,
		Link:      share.Link,
		ExpiresAt: share.ExpiresAt,
		Protected: share.Password != nil,
	}
}
