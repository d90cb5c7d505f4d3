package handler_test

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/handler"
	"github.com/tailorbook/api/internal/middleware"
)

// --- Mock AdminStore ---

type mockAdminStore struct {
	users        map[int64]database.User
	measurements map[int64]database.AdminMeasurementRow
}

func newMockAdminStore() *mockAdminStore {
	return &mockAdminStore{
		users:        make(map[int64]database.User),
		measurements: make(map[int64]database.AdminMeasurementRow),
	}
}

func (m *mockAdminStore) ListUsers(_ context.Context) ([]database.User, error) {
	var out []database.User
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAdminStore) GetUserByID(_ context.Context, id int64) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAdminStore) DeleteUser(_ context.Context, id int64) (int64, error) {
	if _, ok := m.users[id]; !ok {
		return 0, pgx.ErrNoRows
	}
	delete(m.users, id)
	for mid, row := range m.measurements {
		if row.UserID == id {
			delete(m.measurements, mid)
		}
	}
	return id, nil
}

func (m *mockAdminStore) filtered(userID pgtype.Int8) []database.AdminMeasurementRow {
	var out []database.AdminMeasurementRow
	for _, row := range m.measurements {
		if userID.Valid && row.UserID != userID.Int64 {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockAdminStore) ListMeasurementsAdmin(_ context.Context, arg database.ListMeasurementsAdminParams) ([]database.AdminMeasurementRow, error) {
	rows := m.filtered(arg.UserID)
	start := int(arg.Offset)
	if start > len(rows) {
		return nil, nil
	}
	end := start + int(arg.Limit)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

func (m *mockAdminStore) CountMeasurementsAdmin(_ context.Context, userID pgtype.Int8) (int64, error) {
	return int64(len(m.filtered(userID))), nil
}

func (m *mockAdminStore) DeleteMeasurement(_ context.Context, id int64) (int64, error) {
	if _, ok := m.measurements[id]; !ok {
		return 0, pgx.ErrNoRows
	}
	delete(m.measurements, id)
	return id, nil
}

func newAdminRouter(store *mockAdminStore) *chi.Mux {
	h := handler.NewAdminHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireAdmin)
		h.RegisterRoutes(r)
	})
	return r
}

func adminToken(t *testing.T) string {
	t.Helper()
	return tokenFor(t, 1, "admin")
}

// --- Tests ---

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	r := newAdminRouter(newMockAdminStore())
	token := tokenFor(t, 2, "meera")

	rr := doJSON(t, r, "GET", "/admin/users", nil, token)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAdminListUsers(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	store.users[2] = database.User{ID: 2, Username: "meera"}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "GET", "/admin/users", nil, adminToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	users := resp["users"].([]interface{})
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestAdminDeleteUser(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	store.users[2] = database.User{ID: 2, Username: "meera"}
	store.measurements[10] = database.AdminMeasurementRow{
		SavedMeasurement: database.SavedMeasurement{ID: 10, UserID: 2, Category: "pant"},
		Username:         "meera",
	}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "POST", "/admin/delete_user/2", nil, adminToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if _, exists := store.users[2]; exists {
		t.Error("user should be deleted")
	}
	if len(store.measurements) != 0 {
		t.Error("user's measurements should cascade")
	}
}

func TestAdminDeleteUser_Self(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "POST", "/admin/delete_user/1", nil, adminToken(t))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAdminDeleteUser_AdminAccount(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	// A second session also signed in as admin id 5 should still be protected.
	store.users[5] = database.User{ID: 5, Username: "admin"}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "POST", "/admin/delete_user/5", nil, adminToken(t))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAdminDeleteUser_NotFound(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "POST", "/admin/delete_user/99", nil, adminToken(t))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestAdminListMeasurements_Paginated(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	base := time.Now()
	for i := int64(1); i <= 25; i++ {
		store.measurements[i] = database.AdminMeasurementRow{
			SavedMeasurement: database.SavedMeasurement{
				ID: i, UserID: 2, Category: "blouse",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			},
			Username: "meera",
		}
	}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "GET", "/admin/measurements?page=3", nil, adminToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	rows := resp["measurements"].([]interface{})
	if len(rows) != 5 {
		t.Errorf("page 3 should hold the remaining 5 rows, got %d", len(rows))
	}
	if resp["total"] != 25.0 {
		t.Errorf("total: got %v, want 25", resp["total"])
	}
	if resp["pages"] != 3.0 {
		t.Errorf("pages: got %v, want 3", resp["pages"])
	}
}

func TestAdminListMeasurements_FilterByUser(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	store.measurements[10] = database.AdminMeasurementRow{
		SavedMeasurement: database.SavedMeasurement{ID: 10, UserID: 2, Category: "pant", CreatedAt: time.Now()},
		Username:         "meera",
	}
	store.measurements[11] = database.AdminMeasurementRow{
		SavedMeasurement: database.SavedMeasurement{ID: 11, UserID: 3, Category: "kurti", CreatedAt: time.Now()},
		Username:         "zoya",
	}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "GET", "/admin/measurements?user_id=3", nil, adminToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	rows := resp["measurements"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].(map[string]interface{})["username"] != "zoya" {
		t.Errorf("username: got %v", rows[0].(map[string]interface{})["username"])
	}
}

func TestAdminDeleteMeasurement(t *testing.T) {
	store := newMockAdminStore()
	store.users[1] = database.User{ID: 1, Username: "admin"}
	store.measurements[10] = database.AdminMeasurementRow{
		SavedMeasurement: database.SavedMeasurement{ID: 10, UserID: 2, Category: "pant"},
		Username:         "meera",
	}
	r := newAdminRouter(store)

	rr := doJSON(t, r, "POST", "/admin/measurements/delete/10", nil, adminToken(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(store.measurements) != 0 {
		t.Error("measurement should be deleted")
	}
}
