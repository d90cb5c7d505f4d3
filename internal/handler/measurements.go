package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/measure"
	"github.com/tailorbook/api/internal/middleware"
	"github.com/tailorbook/api/internal/service"
	"github.com/tailorbook/api/internal/upload"
)

// MeasurementStore defines the database methods needed by measurement handlers.
type MeasurementStore interface {
	GetMeasurement(ctx context.Context, arg database.GetMeasurementParams) (database.SavedMeasurement, error)
	ListMeasurementsByUser(ctx context.Context, userID int64) ([]database.SavedMeasurement, error)
	ListMeasurementJobs(ctx context.Context, arg database.ListMeasurementJobsParams) ([]database.MeasurementJobRow, error)
	GetMeasurementDetail(ctx context.Context, arg database.GetMeasurementDetailParams) (database.MeasurementDetailRow, error)
	UpdateMeasurementNotes(ctx context.Context, arg database.UpdateMeasurementNotesParams) (database.SavedMeasurement, error)
}

// MeasurementSubmitter runs the order + measurement submission transaction.
// Satisfied by *service.MeasurementService.
type MeasurementSubmitter interface {
	SubmitMeasurement(ctx context.Context, req service.SubmitMeasurementRequest) (*service.SubmitMeasurementResult, error)
}

// ImageSaver stores uploaded measurement photos. Satisfied by *upload.Store.
type ImageSaver interface {
	SaveImage(userID int64, filename string, r io.Reader) (string, error)
}

// MeasurementHandler handles measurement submission and retrieval.
type MeasurementHandler struct {
	store     MeasurementStore
	submitter MeasurementSubmitter
	uploads   ImageSaver
}

// NewMeasurementHandler creates a new MeasurementHandler.
func NewMeasurementHandler(store MeasurementStore, submitter MeasurementSubmitter, uploads ImageSaver) *MeasurementHandler {
	return &MeasurementHandler{store: store, submitter: submitter, uploads: uploads}
}

// RegisterRoutes registers measurement endpoints on the given Chi router.
func (h *MeasurementHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/save_measurements", h.Save)
	r.Get("/api/measurements", h.List)
	r.Get("/api/measurements/{id}", h.Get)
	r.Get("/api/customer-measurements", h.ListJobs)
	r.Get("/measurement/{id}/json", h.Detail)
	r.Post("/measurement/{id}/update_notes", h.UpdateNotes)
}

// --- Serialization ---

// measurementPayload renders a measurement with only the fields valid for
// its category, omitting nulls.
func measurementPayload(m database.SavedMeasurement) map[string]any {
	out := map[string]any{
		"id":          m.ID,
		"customer_id": m.CustomerID,
		"category":    m.Category,
		"created_at":  m.CreatedAt.Format(time.RFC3339),
	}
	if m.OrderID.Valid {
		out["order_id"] = m.OrderID.Int64
	}
	for _, name := range measure.Fields(m.Category) {
		if f := m.MeasureField(name); f.Valid {
			out[name] = f.Float64
		}
	}
	if m.AdvanceAmount.Valid {
		out["advance_amount"] = moneyString(m.AdvanceAmount)
	}
	if m.ImagePath.Valid {
		out["image_path"] = m.ImagePath.String
	}
	if m.AudioPath.Valid {
		out["audio_path"] = m.AudioPath.String
	}
	if m.Notes.Valid {
		out["notes"] = m.Notes.String
	}
	if m.OrderDate.Valid {
		out["order_date"] = m.OrderDate.Time.Format("2006-01-02")
	}
	if m.DeliveryDate.Valid {
		out["delivery_date"] = m.DeliveryDate.Time.Format("2006-01-02")
	}
	return out
}

// --- Handlers ---

// Save records a measurement submission: one order plus one measurement,
// with an optional cloth photo. Accepts multipart, form or JSON bodies;
// measurement fields may arrive flat or inside a `measurements` JSON string.
func (h *MeasurementHandler) Save(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	form, err := parseBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Nested `measurements` JSON takes precedence over flat fields.
	if nested := form["measurements"]; nested != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(nested), &fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurements payload"})
			return
		}
		for k, v := range fields {
			switch val := v.(type) {
			case string:
				form[k] = val
			case float64:
				form[k] = strconv.FormatFloat(val, 'f', -1, 64)
			case nil:
				form[k] = ""
			}
		}
		delete(form, "measurements")
	}

	customerID, _ := strconv.ParseInt(form["customer_id"], 10, 64)

	imagePath := ""
	if file, header, err := r.FormFile("cloth_image"); err == nil {
		defer file.Close()
		imagePath, err = h.uploads.SaveImage(claims.UserID, header.Filename, file)
		if err != nil {
			if errors.Is(err, upload.ErrInvalidExtension) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file type not allowed"})
				return
			}
			log.Printf("ERROR: save cloth image: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	result, err := h.submitter.SubmitMeasurement(r.Context(), service.SubmitMeasurementRequest{
		UserID:       claims.UserID,
		CustomerID:   customerID,
		Category:     form["category"],
		Fields:       form,
		Amount:       form["amount"],
		Advance:      form["advance_amount"],
		Notes:        form["notes"],
		OrderDate:    form["order_date"],
		DeliveryDate: form["delivery_date"],
		ImagePath:    imagePath,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerRequired),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrInvalidAdvance):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrCustomerNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		default:
			log.Printf("ERROR: submit measurement: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "measurements saved",
		"order":       toOrderResponse(result.Order),
		"measurement": measurementPayload(result.Measurement),
	})
}

// List returns the caller's measurements, newest first.
func (h *MeasurementHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	measurements, err := h.store.ListMeasurementsByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list measurements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]map[string]any, 0, len(measurements))
	for _, m := range measurements {
		out = append(out, measurementPayload(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"measurements": out})
}

// Get returns one of the caller's measurements.
func (h *MeasurementHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurement id"})
		return
	}

	m, err := h.store.GetMeasurement(r.Context(), database.GetMeasurementParams{ID: id, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "measurement not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, measurementPayload(m))
}

// ListJobs returns the caller's measurements with display job numbers,
// joined with customer name and phone. Newest measurement is job 1;
// the numbering is stable under a phone filter.
func (h *MeasurementHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	phone := pgtype.Text{}
	if p := strings.TrimSpace(r.URL.Query().Get("phone")); p != "" {
		phone = pgtype.Text{String: p, Valid: true}
	}

	rows, err := h.store.ListMeasurementJobs(r.Context(), database.ListMeasurementJobsParams{
		UserID: claims.UserID,
		Phone:  phone,
	})
	if err != nil {
		log.Printf("ERROR: list measurement jobs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		payload := measurementPayload(row.SavedMeasurement)
		payload["job_number"] = row.JobNumber
		payload["customer_name"] = row.CustomerName
		payload["customer_phone"] = row.CustomerPhone
		out = append(out, payload)
	}
	writeJSON(w, http.StatusOK, map[string]any{"measurements": out})
}

// Detail returns the joined view of a measurement: every stored field
// regardless of category, the customer name, and the linked order's money
// and dates. Order dates fill in when the measurement's own are missing.
func (h *MeasurementHandler) Detail(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurement id"})
		return
	}

	row, err := h.store.GetMeasurementDetail(r.Context(), database.GetMeasurementDetailParams{ID: id, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "measurement not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	m := row.SavedMeasurement
	out := map[string]any{
		"id":            m.ID,
		"customer_id":   m.CustomerID,
		"customer_name": row.CustomerName,
		"category":      m.Category,
		"created_at":    m.CreatedAt.Format(time.RFC3339),
	}
	for _, name := range measure.AllFields {
		if f := m.MeasureField(name); f.Valid {
			out[name] = f.Float64
		}
	}
	if m.AdvanceAmount.Valid {
		out["advance_amount"] = moneyString(m.AdvanceAmount)
	}
	if m.ImagePath.Valid {
		out["image_path"] = m.ImagePath.String
	}
	if m.AudioPath.Valid {
		out["audio_path"] = m.AudioPath.String
	}
	if m.Notes.Valid {
		out["notes"] = m.Notes.String
	}

	orderDate := m.OrderDate
	if !orderDate.Valid {
		orderDate = row.OrderOrderDate
	}
	if orderDate.Valid {
		out["order_date"] = orderDate.Time.Format("2006-01-02")
	}
	deliveryDate := m.DeliveryDate
	if !deliveryDate.Valid {
		deliveryDate = row.OrderDeliveryDate
	}
	if deliveryDate.Valid {
		out["delivery_date"] = deliveryDate.Time.Format("2006-01-02")
	}

	if m.OrderID.Valid {
		out["order_id"] = m.OrderID.Int64
		out["order_amount"] = moneyString(row.OrderAmount)
		out["order_advance_amount"] = moneyString(row.OrderAdvanceAmount)
	}

	writeJSON(w, http.StatusOK, out)
}

// UpdateNotes replaces the notes on one of the caller's measurements.
func (h *MeasurementHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid measurement id"})
		return
	}

	form, err := parseBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Ownership check before the unscoped update.
	if _, err := h.store.GetMeasurement(r.Context(), database.GetMeasurementParams{ID: id, UserID: claims.UserID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "measurement not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notes := pgtype.Text{}
	if v := form["notes"]; v != "" {
		notes = pgtype.Text{String: v, Valid: true}
	}

	m, err := h.store.UpdateMeasurementNotes(r.Context(), database.UpdateMeasurementNotesParams{ID: id, Notes: notes})
	if err != nil {
		log.Printf("ERROR: update measurement notes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "notes updated",
		"measurement": measurementPayload(m),
	})
}
