package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/enum"
	"github.com/tailorbook/api/internal/middleware"
	"github.com/tailorbook/api/internal/upload"
)

// UploadMeasurementStore defines the database methods needed to attach and
// authorize uploaded files.
type UploadMeasurementStore interface {
	GetMeasurementByID(ctx context.Context, id int64) (database.SavedMeasurement, error)
	UpdateMeasurementAudio(ctx context.Context, arg database.UpdateMeasurementAudioParams) (database.SavedMeasurement, error)
	GetMeasurementByAudioPath(ctx context.Context, audioPath string) (database.SavedMeasurement, error)
}

// FileStore reads and writes stored upload files. Satisfied by *upload.Store.
type FileStore interface {
	SaveAudio(measurementID int64, oldPath string, r io.Reader) (string, error)
	Open(rel string) (*os.File, error)
}

// UploadHandler handles voice note uploads and file serving.
type UploadHandler struct {
	store UploadMeasurementStore
	files FileStore
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(store UploadMeasurementStore, files FileStore) *UploadHandler {
	return &UploadHandler{store: store, files: files}
}

// RegisterRoutes registers upload endpoints on the given Chi router.
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/measurement/{id}/audio", h.SaveAudio)
	r.Get("/audio/{filename}", h.ServeAudio)
	r.Get("/uploads/{filename}", h.ServeImage)
}

// SaveAudio attaches a voice note to a measurement, replacing any previous
// one. Owner or admin only.
func (h *UploadHandler) SaveAudio(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurement id"})
		return
	}

	m, err := h.store.GetMeasurementByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "measurement not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if m.UserID != claims.UserID && claims.Username != enum.AdminUsername {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio file is required"})
		return
	}
	defer file.Close()

	oldPath := ""
	if m.AudioPath.Valid {
		oldPath = m.AudioPath.String
	}
	rel, err := h.files.SaveAudio(m.ID, oldPath, file)
	if err != nil {
		log.Printf("ERROR: save audio: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	updated, err := h.store.UpdateMeasurementAudio(r.Context(), database.UpdateMeasurementAudioParams{
		ID:        m.ID,
		AudioPath: pgtype.Text{String: rel, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: update audio path: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "audio saved",
		"audio_path": updated.AudioPath.String,
	})
}

// ServeAudio streams a stored voice note. Owner or admin only, with a
// traversal check on the filename.
func (h *UploadHandler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filename"})
		return
	}

	rel := path.Join("audio", filename)
	m, err := h.store.GetMeasurementByAudioPath(r.Context(), rel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "audio not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if m.UserID != claims.UserID && claims.Username != enum.AdminUsername {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
		return
	}

	h.serveFile(w, r, rel)
}

// ServeImage streams a stored measurement photo.
func (h *UploadHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filename"})
		return
	}

	h.serveFile(w, r, path.Join("measurements", filename))
}

// --- Helpers ---

func (h *UploadHandler) serveFile(w http.ResponseWriter, r *http.Request, rel string) {
	f, err := h.files.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, upload.ErrInvalidFilename) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
			return
		}
		log.Printf("ERROR: open upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func safeFilename(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.HasPrefix(name, "/")
}
