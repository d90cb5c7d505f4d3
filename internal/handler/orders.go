package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/enum"
	"github.com/tailorbook/api/internal/middleware"
)

// OrderStore defines the database methods needed by order handlers.
type OrderStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
}

// OrderHandler handles standalone order creation.
type OrderHandler struct {
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore) *OrderHandler {
	return &OrderHandler{store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/orders", h.Create)
	r.Get("/api/orders/{id}", h.Get)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID    int64  `json:"customer_id"`
	Amount        string `json:"amount"`
	AdvanceAmount string `json:"advance_amount"`
	Category      string `json:"category"`
	Notes         string `json:"notes"`
	OrderDate     string `json:"order_date"`
	DeliveryDate  string `json:"delivery_date"`
}

type orderResponse struct {
	ID            int64   `json:"id"`
	CustomerID    int64   `json:"customer_id"`
	Amount        string  `json:"amount"`
	AdvanceAmount string  `json:"advance_amount"`
	Status        string  `json:"status"`
	Category      string  `json:"category"`
	Notes         *string `json:"notes,omitempty"`
	OrderDate     *string `json:"order_date,omitempty"`
	DeliveryDate  *string `json:"delivery_date,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Amount:        moneyString(o.Amount),
		AdvanceAmount: moneyString(o.AdvanceAmount),
		Status:        o.Status,
		Category:      o.Category,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.OrderDate.Valid {
		d := o.OrderDate.Time.Format("2006-01-02")
		resp.OrderDate = &d
	}
	if o.DeliveryDate.Valid {
		d := o.DeliveryDate.Time.Format("2006-01-02")
		resp.DeliveryDate = &d
	}
	return resp
}

// --- Handlers ---

// Create records an order for one of the caller's customers.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.CustomerID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
		return
	}
	if req.Category == "" {
		req.Category = enum.CategoryBlouse
	}

	amount, err := parseMoneyField(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}
	advance, err := parseMoneyField(req.AdvanceAmount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid advance_amount"})
		return
	}

	if _, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{
		ID:     req.CustomerID,
		UserID: claims.UserID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}
	orderDate := parseDateField(req.OrderDate)
	if !orderDate.Valid {
		orderDate = pgtype.Date{Time: time.Now(), Valid: true}
	}

	order, err := h.store.CreateOrder(r.Context(), database.CreateOrderParams{
		CustomerID:    req.CustomerID,
		UserID:        claims.UserID,
		Amount:        decimalToNumeric(clampMoney(amount)),
		AdvanceAmount: decimalToNumeric(clampMoney(advance)),
		Status:        enum.OrderStatusPending,
		Category:      req.Category,
		Notes:         notes,
		OrderDate:     orderDate,
		DeliveryDate:  parseDateField(req.DeliveryDate),
	})
	if err != nil {
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get returns one of the caller's orders.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: id, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func parseMoneyField(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func clampMoney(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parseDateField(s string) pgtype.Date {
	if s == "" {
		return pgtype.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}
