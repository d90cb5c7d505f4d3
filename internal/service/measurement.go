package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/enum"
	"github.com/tailorbook/api/internal/measure"
)

// Errors returned by the measurement service.
var (
	ErrCustomerRequired = errors.New("customer_id is required")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidAdvance   = errors.New("invalid advance_amount")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SubmissionStore defines the DB methods needed to record a measurement
// submission. Satisfied by *database.Queries (and its WithTx variant).
type SubmissionStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateMeasurement(ctx context.Context, arg database.CreateMeasurementParams) (database.SavedMeasurement, error)
}

// NewSubmissionStore creates a SubmissionStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewSubmissionStore func(db database.DBTX) SubmissionStore

// SubmitMeasurementRequest is the raw input for a measurement submission.
// Money and date fields arrive as strings straight from the form.
type SubmitMeasurementRequest struct {
	UserID       int64
	CustomerID   int64
	Category     string
	Fields       map[string]string
	Amount       string
	Advance      string
	Notes        string
	OrderDate    string // YYYY-MM-DD
	DeliveryDate string // YYYY-MM-DD
	ImagePath    string
}

// SubmitMeasurementResult is the order and measurement created together.
type SubmitMeasurementResult struct {
	Order       database.Order
	Measurement database.SavedMeasurement
}

// MeasurementService handles measurement submission business logic.
type MeasurementService struct {
	pool     TxBeginner
	newStore NewSubmissionStore
}

// NewMeasurementService creates a new MeasurementService.
func NewMeasurementService(pool TxBeginner, newStore NewSubmissionStore) *MeasurementService {
	return &MeasurementService{pool: pool, newStore: newStore}
}

// SubmitMeasurement records a measurement and its backing order in a single
// transaction, so a failed insert never leaves an order without measurements.
//
// An omitted category is treated as blouse. Only the fields valid for the
// category are persisted; anything else in req.Fields is dropped. The order's amount and advance are clamped to zero
// when negative, but the measurement keeps the advance as submitted.
func (s *MeasurementService) SubmitMeasurement(ctx context.Context, req SubmitMeasurementRequest) (*SubmitMeasurementResult, error) {
	if req.CustomerID <= 0 {
		return nil, ErrCustomerRequired
	}
	if req.Category == "" {
		req.Category = enum.CategoryBlouse
	}

	// --- Parse money up front, before any write ---
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	advance, err := parseMoney(req.Advance)
	if err != nil {
		return nil, ErrInvalidAdvance
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Verify the customer belongs to this user ---
	_, err = store.GetCustomer(ctx, database.GetCustomerParams{
		ID:     req.CustomerID,
		UserID: req.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	// --- Parse dates ---
	orderDate := parseDate(req.OrderDate)
	if !orderDate.Valid {
		orderDate = pgtype.Date{Time: time.Now(), Valid: true}
	}
	deliveryDate := parseDate(req.DeliveryDate)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:    req.CustomerID,
		UserID:        req.UserID,
		Amount:        decimalToNumeric(clampNonNegative(amount)),
		AdvanceAmount: decimalToNumeric(clampNonNegative(advance)),
		Status:        enum.OrderStatusPending,
		Category:      req.Category,
		Notes:         notes,
		OrderDate:     orderDate,
		DeliveryDate:  deliveryDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert measurement ---
	params := database.CreateMeasurementParams{
		UserID:        req.UserID,
		CustomerID:    req.CustomerID,
		OrderID:       pgtype.Int8{Int64: order.ID, Valid: true},
		Category:      req.Category,
		AdvanceAmount: decimalToNumeric(advance),
		Notes:         notes,
		OrderDate:     orderDate,
		DeliveryDate:  deliveryDate,
	}
	if req.ImagePath != "" {
		params.ImagePath = pgtype.Text{String: req.ImagePath, Valid: true}
	}
	for name, v := range measure.Resolve(req.Category, req.Fields) {
		if v == nil {
			continue
		}
		params.SetMeasureField(name, pgtype.Float8{Float64: *v, Valid: true})
	}

	m, err := store.CreateMeasurement(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create measurement: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &SubmitMeasurementResult{Order: order, Measurement: m}, nil
}

// --- Helpers ---

// parseMoney reads a money string; blank means zero, malformed is an error.
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseDate reads a YYYY-MM-DD string; blank or malformed input yields a
// null date.
func parseDate(s string) pgtype.Date {
	if s == "" {
		return pgtype.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
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
