package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/middleware"
)

// CustomerStore defines the database methods needed by customer handlers.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	ListCustomersByUser(ctx context.Context, userID int64) ([]database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	UpdateCustomerTotalAmount(ctx context.Context, arg database.UpdateCustomerTotalAmountParams) (database.Customer, error)
	DeleteCustomer(ctx context.Context, arg database.DeleteCustomerParams) (int64, error)
	SearchCustomerByPhone(ctx context.Context, arg database.SearchCustomerByPhoneParams) (database.Customer, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	GetLatestMeasurementByCustomer(ctx context.Context, arg database.GetLatestMeasurementByCustomerParams) (database.SavedMeasurement, error)
	UpdateMeasurementAdvance(ctx context.Context, arg database.UpdateMeasurementAdvanceParams) (database.SavedMeasurement, error)
}

// CustomerHandler handles customer CRUD, search and payment endpoints.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Post("/customer/add", h.Add)
	r.Get("/customer/search", h.Search)
	r.Post("/customer/{id}/edit", h.Edit)
	r.Post("/customer/{id}/delete", h.Delete)
	r.Post("/customer/{id}/amount", h.SetAmount)
	r.Post("/customer/{id}/update_payment", h.UpdatePayment)
}

// --- Response types ---

type customerResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     *string `json:"address,omitempty"`
	TotalAmount string  `json:"total_amount"`
}

type customerSearchResponse struct {
	Customer      customerResponse `json:"customer"`
	Orders        []orderResponse  `json:"orders"`
	Amount        string           `json:"amount"`
	AdvanceAmount string           `json:"advance_amount"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		TotalAmount: moneyString(c.TotalAmount),
	}
	if c.Address.Valid {
		resp.Address = &c.Address.String
	}
	return resp
}

// --- Handlers ---

// List returns all customers of the caller, ordered by name.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	customers, err := h.store.ListCustomersByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomerResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": out})
}

// Add creates a customer from a JSON or form body.
func (h *CustomerHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	form, err := parseBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(form["name"])
	email := strings.TrimSpace(form["email"])
	phone := strings.TrimSpace(form["phone"])
	if name == "" || email == "" || phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and phone are required"})
		return
	}

	address := pgtype.Text{}
	if a := strings.TrimSpace(form["address"]); a != "" {
		address = pgtype.Text{String: a, Valid: true}
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		UserID:  claims.UserID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: address,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email or phone already exists"})
			return
		}
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// Edit updates a customer; omitted fields keep their current values.
func (h *CustomerHandler) Edit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}

	form, err := parseBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	existing, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{ID: id, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	params := database.UpdateCustomerParams{
		ID:      id,
		UserID:  claims.UserID,
		Name:    existing.Name,
		Email:   existing.Email,
		Phone:   existing.Phone,
		Address: existing.Address,
	}
	if v := strings.TrimSpace(form["name"]); v != "" {
		params.Name = v
	}
	if v := strings.TrimSpace(form["email"]); v != "" {
		params.Email = v
	}
	if v := strings.TrimSpace(form["phone"]); v != "" {
		params.Phone = v
	}
	if v, ok := form["address"]; ok {
		params.Address = pgtype.Text{}
		if a := strings.TrimSpace(v); a != "" {
			params.Address = pgtype.Text{String: a, Valid: true}
		}
	}

	customer, err := h.store.UpdateCustomer(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email or phone already exists"})
			return
		}
		log.Printf("ERROR: update customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// Delete removes a customer along with their orders and measurements.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}

	if _, err := h.store.DeleteCustomer(r.Context(), database.DeleteCustomerParams{ID: id, UserID: claims.UserID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: delete customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "customer deleted"})
}

// Search finds a customer by partial phone match and returns their orders,
// the summed order amount, and the advance on their latest measurement.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
		return
	}

	customer, err := h.store.SearchCustomerByPhone(r.Context(), database.SearchCustomerByPhoneParams{
		UserID: claims.UserID,
		Phone:  phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: customer.ID,
		UserID:     claims.UserID,
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total := decimal.Zero
	orderResponses := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		total = total.Add(numericToDecimal(o.Amount))
		orderResponses = append(orderResponses, toOrderResponse(o))
	}

	advance := decimal.Zero
	latest, err := h.store.GetLatestMeasurementByCustomer(r.Context(), database.GetLatestMeasurementByCustomerParams{
		CustomerID: customer.ID,
		UserID:     claims.UserID,
	})
	if err == nil {
		advance = numericToDecimal(latest.AdvanceAmount)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, customerSearchResponse{
		Customer:      toCustomerResponse(customer),
		Orders:        orderResponses,
		Amount:        total.StringFixed(2),
		AdvanceAmount: advance.StringFixed(2),
	})
}

// SetAmount sets the customer's total_amount. The value is manually managed
// and never derived from order sums.
func (h *CustomerHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}

	form, err := parseBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	raw := form["total_amount"]
	if raw == "" {
		raw = form["amount"]
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total_amount"})
		return
	}

	customer, err := h.store.UpdateCustomerTotalAmount(r.Context(), database.UpdateCustomerTotalAmountParams{
		ID:          id,
		UserID:      claims.UserID,
		TotalAmount: decimalToNumeric(amount),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: update total amount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// UpdatePayment marks the customer as paid by copying total_amount onto the
// advance of their most recent measurement. Requires a measurement and a
// positive total_amount.
func (h *CustomerHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{ID: id, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total := numericToDecimal(customer.TotalAmount)
	if !total.IsPositive() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no amount to settle"})
		return
	}

	latest, err := h.store.GetLatestMeasurementByCustomer(r.Context(), database.GetLatestMeasurementByCustomerParams{
		CustomerID: customer.ID,
		UserID:     claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no measurements found for customer"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	updated, err := h.store.UpdateMeasurementAdvance(r.Context(), database.UpdateMeasurementAdvanceParams{
		ID:            latest.ID,
		AdvanceAmount: customer.TotalAmount,
	})
	if err != nil {
		log.Printf("ERROR: update measurement advance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "payment updated",
		"advance_amount": moneyString(updated.AdvanceAmount),
	})
}

// --- Helpers ---

// parseBody reads string fields from either a JSON object or a form body,
// keyed by field name.
func parseBody(r *http.Request) (map[string]string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				out[k] = s
				continue
			}
			if string(v) == "null" {
				out[k] = ""
				continue
			}
			// Numbers and booleans are accepted as their literal text.
			out[k] = strings.Trim(string(v), `"`)
		}
		return out, nil
	}

	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.Form))
	for k := range r.Form {
		out[k] = r.Form.Get(k)
	}
	return out, nil
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

func moneyString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
