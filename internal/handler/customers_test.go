package handler_test

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/handler"
	"github.com/tailorbook/api/internal/middleware"
)

// --- Mock CustomerStore ---

type mockCustomerStore struct {
	customers    map[int64]database.Customer
	orders       map[int64]database.Order
	measurements map[int64]database.SavedMeasurement
	nextID       int64
}

func newMockCustomerStore() *mockCustomerStore {
	return &mockCustomerStore{
		customers:    make(map[int64]database.Customer),
		orders:       make(map[int64]database.Order),
		measurements: make(map[int64]database.SavedMeasurement),
		nextID:       1,
	}
}

func (m *mockCustomerStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockCustomerStore) CreateCustomer(_ context.Context, arg database.CreateCustomerParams) (database.Customer, error) {
	for _, c := range m.customers {
		if c.Email == arg.Email || c.Phone == arg.Phone {
			return database.Customer{}, duplicateKeyError()
		}
	}
	c := database.Customer{
		ID:      m.id(),
		UserID:  arg.UserID,
		Name:    arg.Name,
		Email:   arg.Email,
		Phone:   arg.Phone,
		Address: arg.Address,
	}
	m.customers[c.ID] = c
	return c, nil
}

func (m *mockCustomerStore) GetCustomer(_ context.Context, arg database.GetCustomerParams) (database.Customer, error) {
	c, ok := m.customers[arg.ID]
	if !ok || c.UserID != arg.UserID {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCustomerStore) ListCustomersByUser(_ context.Context, userID int64) ([]database.Customer, error) {
	var out []database.Customer
	for _, c := range m.customers {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCustomerStore) UpdateCustomer(_ context.Context, arg database.UpdateCustomerParams) (database.Customer, error) {
	c, ok := m.customers[arg.ID]
	if !ok || c.UserID != arg.UserID {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.Name, c.Email, c.Phone, c.Address = arg.Name, arg.Email, arg.Phone, arg.Address
	m.customers[arg.ID] = c
	return c, nil
}

func (m *mockCustomerStore) UpdateCustomerTotalAmount(_ context.Context, arg database.UpdateCustomerTotalAmountParams) (database.Customer, error) {
	c, ok := m.customers[arg.ID]
	if !ok || c.UserID != arg.UserID {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.TotalAmount = arg.TotalAmount
	m.customers[arg.ID] = c
	return c, nil
}

func (m *mockCustomerStore) DeleteCustomer(_ context.Context, arg database.DeleteCustomerParams) (int64, error) {
	c, ok := m.customers[arg.ID]
	if !ok || c.UserID != arg.UserID {
		return 0, pgx.ErrNoRows
	}
	delete(m.customers, arg.ID)
	for id, o := range m.orders {
		if o.CustomerID == arg.ID {
			delete(m.orders, id)
		}
	}
	for id, s := range m.measurements {
		if s.CustomerID == arg.ID {
			delete(m.measurements, id)
		}
	}
	return arg.ID, nil
}

func (m *mockCustomerStore) SearchCustomerByPhone(_ context.Context, arg database.SearchCustomerByPhoneParams) (database.Customer, error) {
	var match *database.Customer
	for _, c := range m.customers {
		c := c
		if c.UserID == arg.UserID && strings.Contains(c.Phone, arg.Phone) {
			if match == nil || c.ID < match.ID {
				match = &c
			}
		}
	}
	if match == nil {
		return database.Customer{}, pgx.ErrNoRows
	}
	return *match, nil
}

func (m *mockCustomerStore) ListOrdersByCustomer(_ context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error) {
	var out []database.Order
	for _, o := range m.orders {
		if o.CustomerID == arg.CustomerID && o.UserID == arg.UserID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockCustomerStore) GetLatestMeasurementByCustomer(_ context.Context, arg database.GetLatestMeasurementByCustomerParams) (database.SavedMeasurement, error) {
	var latest *database.SavedMeasurement
	for _, s := range m.measurements {
		s := s
		if s.CustomerID == arg.CustomerID && s.UserID == arg.UserID {
			if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
				latest = &s
			}
		}
	}
	if latest == nil {
		return database.SavedMeasurement{}, pgx.ErrNoRows
	}
	return *latest, nil
}

func (m *mockCustomerStore) UpdateMeasurementAdvance(_ context.Context, arg database.UpdateMeasurementAdvanceParams) (database.SavedMeasurement, error) {
	s, ok := m.measurements[arg.ID]
	if !ok {
		return database.SavedMeasurement{}, pgx.ErrNoRows
	}
	s.AdvanceAmount = arg.AdvanceAmount
	m.measurements[arg.ID] = s
	return s, nil
}

// --- Helpers ---

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func newCustomerRouter(store *mockCustomerStore) *chi.Mux {
	h := handler.NewCustomerHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func seedCustomer(store *mockCustomerStore, userID int64, name, email, phone string) database.Customer {
	c := database.Customer{ID: store.id(), UserID: userID, Name: name, Email: email, Phone: phone}
	store.customers[c.ID] = c
	return c
}

// --- Tests ---

func TestAddCustomer_JSON(t *testing.T) {
	store := newMockCustomerStore()
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/add", map[string]string{
		"name":    "Asha",
		"email":   "asha@example.com",
		"phone":   "9876543210",
		"address": "12 Tank Bund Rd",
	}, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["name"] != "Asha" {
		t.Errorf("name: got %v, want Asha", resp["name"])
	}
	if resp["address"] != "12 Tank Bund Rd" {
		t.Errorf("address: got %v", resp["address"])
	}
}

func TestAddCustomer_Form(t *testing.T) {
	store := newMockCustomerStore()
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doForm(t, r, "POST", "/customer/add", url.Values{
		"name":  {"Asha"},
		"email": {"asha@example.com"},
		"phone": {"9876543210"},
	}, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestAddCustomer_MissingFields(t *testing.T) {
	r := newCustomerRouter(newMockCustomerStore())
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/add", map[string]string{"name": "Asha"}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAddCustomer_DuplicatePhone(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/add", map[string]string{
		"name":  "Other",
		"email": "other@example.com",
		"phone": "9876543210",
	}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "email or phone already exists" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestAddCustomer_Unauthenticated(t *testing.T) {
	r := newCustomerRouter(newMockCustomerStore())

	rr := doJSON(t, r, "POST", "/customer/add", map[string]string{
		"name": "Asha", "email": "a@b.c", "phone": "1",
	}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestEditCustomer_PartialUpdate(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/edit", map[string]string{
		"phone": "9123456789",
	}, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["phone"] != "9123456789" {
		t.Errorf("phone: got %v", resp["phone"])
	}
	if resp["name"] != c.Name {
		t.Errorf("name should be unchanged, got %v", resp["name"])
	}
}

func TestEditCustomer_NotOwned(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 2, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/edit", map[string]string{"name": "X"}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteCustomer_Cascades(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	store.orders[900] = database.Order{ID: 900, CustomerID: c.ID, UserID: 1}
	store.measurements[901] = database.SavedMeasurement{ID: 901, CustomerID: c.ID, UserID: 1}
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/delete", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(store.orders) != 0 || len(store.measurements) != 0 {
		t.Error("orders and measurements should be removed with the customer")
	}
}

func TestSearchCustomer_SumsOrdersAndLatestAdvance(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	store.orders[1] = database.Order{
		ID: 1, CustomerID: c.ID, UserID: 1,
		Amount: testNumeric("1200.00"), CreatedAt: time.Now().Add(-time.Hour),
	}
	store.orders[2] = database.Order{
		ID: 2, CustomerID: c.ID, UserID: 1,
		Amount: testNumeric("800.00"), CreatedAt: time.Now(),
	}
	store.measurements[10] = database.SavedMeasurement{
		ID: 10, CustomerID: c.ID, UserID: 1,
		AdvanceAmount: testNumeric("100.00"), CreatedAt: time.Now().Add(-time.Hour),
	}
	store.measurements[11] = database.SavedMeasurement{
		ID: 11, CustomerID: c.ID, UserID: 1,
		AdvanceAmount: testNumeric("500.00"), CreatedAt: time.Now(),
	}
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "GET", "/customer/search?phone=98765", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["amount"] != "2000.00" {
		t.Errorf("amount: got %v, want 2000.00", resp["amount"])
	}
	if resp["advance_amount"] != "500.00" {
		t.Errorf("advance_amount: got %v, want 500.00", resp["advance_amount"])
	}
	orders, ok := resp["orders"].([]interface{})
	if !ok || len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %v", resp["orders"])
	}
}

func TestSearchCustomer_NotFound(t *testing.T) {
	r := newCustomerRouter(newMockCustomerStore())
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "GET", "/customer/search?phone=000", nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSearchCustomer_ScopedToUser(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 2, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "GET", "/customer/search?phone=98765", nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSetAmount(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/amount", map[string]string{
		"total_amount": "1200",
	}, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["total_amount"] != "1200.00" {
		t.Errorf("total_amount: got %v, want 1200.00", resp["total_amount"])
	}
}

func TestSetAmount_Invalid(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/amount", map[string]string{
		"total_amount": "twelve hundred",
	}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdatePayment_SetsLatestAdvanceToTotal(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	c.TotalAmount = testNumeric("1200.00")
	store.customers[c.ID] = c
	store.measurements[10] = database.SavedMeasurement{
		ID: 10, CustomerID: c.ID, UserID: 1,
		AdvanceAmount: testNumeric("500.00"), CreatedAt: time.Now(),
	}
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/update_payment", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["advance_amount"] != "1200.00" {
		t.Errorf("advance_amount: got %v, want 1200.00", resp["advance_amount"])
	}
}

func TestUpdatePayment_NoMeasurement(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	c.TotalAmount = testNumeric("1200.00")
	store.customers[c.ID] = c
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/update_payment", nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdatePayment_NoTotalAmount(t *testing.T) {
	store := newMockCustomerStore()
	c := seedCustomer(store, 1, "Asha", "asha@example.com", "9876543210")
	store.measurements[10] = database.SavedMeasurement{
		ID: 10, CustomerID: c.ID, UserID: 1, CreatedAt: time.Now(),
	}
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "POST", "/customer/1/update_payment", nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListCustomers(t *testing.T) {
	store := newMockCustomerStore()
	seedCustomer(store, 1, "Zoya", "z@example.com", "111")
	seedCustomer(store, 1, "Asha", "a@example.com", "222")
	seedCustomer(store, 2, "Other", "o@example.com", "333")
	r := newCustomerRouter(store)
	token := tokenFor(t, 1, "meera")

	rr := doJSON(t, r, "GET", "/customers", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	customers, ok := resp["customers"].([]interface{})
	if !ok || len(customers) != 2 {
		t.Fatalf("expected 2 customers, got %v", resp["customers"])
	}
	first := customers[0].(map[string]interface{})
	if first["name"] != "Asha" {
		t.Errorf("expected name ordering, first = %v", first["name"])
	}
}
