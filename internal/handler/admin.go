package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/enum"
	"github.com/tailorbook/api/internal/middleware"
)

const adminPageSize = 10

// AdminStore defines the database methods needed by admin handlers.
type AdminStore interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	GetUserByID(ctx context.Context, id int64) (database.User, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)
	ListMeasurementsAdmin(ctx context.Context, arg database.ListMeasurementsAdminParams) ([]database.AdminMeasurementRow, error)
	CountMeasurementsAdmin(ctx context.Context, userID pgtype.Int8) (int64, error)
	DeleteMeasurement(ctx context.Context, id int64) (int64, error)
}

// AdminHandler handles admin-only user and measurement management.
type AdminHandler struct {
	store AdminStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers admin endpoints on the given Chi router. The
// router is expected to already carry the admin gate middleware.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/users", h.ListUsers)
	r.Post("/admin/delete_user/{id}", h.DeleteUser)
	r.Get("/admin/measurements", h.ListMeasurements)
	r.Post("/admin/measurements/delete/{id}", h.DeleteMeasurement)
}

// --- Handlers ---

// ListUsers returns every registered account.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":         u.ID,
			"username":   u.Username,
			"created_at": u.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// DeleteUser removes an account and everything it owns. The admin cannot
// delete itself or the reserved admin account.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	if id == claims.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete your own account"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if user.Username == enum.AdminUsername {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot delete admin account"})
		return
	}

	if _, err := h.store.DeleteUser(r.Context(), id); err != nil {
		log.Printf("ERROR: delete user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// ListMeasurements returns measurements across all users, paginated and
// optionally filtered by owner.
func (h *AdminHandler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r.URL.Query().Get("page"))

	userFilter := pgtype.Int8{}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
			return
		}
		userFilter = pgtype.Int8{Int64: uid, Valid: true}
	}

	total, err := h.store.CountMeasurementsAdmin(r.Context(), userFilter)
	if err != nil {
		log.Printf("ERROR: count measurements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rows, err := h.store.ListMeasurementsAdmin(r.Context(), database.ListMeasurementsAdminParams{
		UserID: userFilter,
		Limit:  adminPageSize,
		Offset: int32((page - 1) * adminPageSize),
	})
	if err != nil {
		log.Printf("ERROR: list measurements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		payload := measurementPayload(row.SavedMeasurement)
		payload["user_id"] = row.UserID
		payload["username"] = row.Username
		out = append(out, payload)
	}

	pages := (total + adminPageSize - 1) / adminPageSize
	writeJSON(w, http.StatusOK, map[string]any{
		"measurements": out,
		"total":        total,
		"page":         page,
		"pages":        pages,
	})
}

// DeleteMeasurement removes any user's measurement.
func (h *AdminHandler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurement id"})
		return
	}

	if _, err := h.store.DeleteMeasurement(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "measurement not found"})
			return
		}
		log.Printf("ERROR: delete measurement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "measurement deleted"})
}

// --- Helpers ---

func parsePage(raw string) int64 {
	page, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
