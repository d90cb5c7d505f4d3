package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, user_id, name, email, phone, address, total_amount, created_at, updated_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone,
		&c.Address, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

const createCustomer = `
INSERT INTO customers (user_id, name, email, phone, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	UserID  int64
	Name    string
	Email   string
	Phone   string
	Address pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer,
		arg.UserID, arg.Name, arg.Email, arg.Phone, arg.Address)
	return scanCustomer(row)
}

const getCustomer = `
SELECT ` + customerColumns + `
FROM customers
WHERE id = $1 AND user_id = $2
`

type GetCustomerParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, arg.ID, arg.UserID)
	return scanCustomer(row)
}

const listCustomersByUser = `
SELECT ` + customerColumns + `
FROM customers
WHERE user_id = $1
ORDER BY name
`

func (q *Queries) ListCustomersByUser(ctx context.Context, userID int64) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomersByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

const updateCustomer = `
UPDATE customers
SET name = $3, email = $4, phone = $5, address = $6, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + customerColumns

type UpdateCustomerParams struct {
	ID      int64
	UserID  int64
	Name    string
	Email   string
	Phone   string
	Address pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer,
		arg.ID, arg.UserID, arg.Name, arg.Email, arg.Phone, arg.Address)
	return scanCustomer(row)
}

const updateCustomerTotalAmount = `
UPDATE customers
SET total_amount = $3, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + customerColumns

type UpdateCustomerTotalAmountParams struct {
	ID          int64
	UserID      int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateCustomerTotalAmount(ctx context.Context, arg UpdateCustomerTotalAmountParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomerTotalAmount, arg.ID, arg.UserID, arg.TotalAmount)
	return scanCustomer(row)
}

const deleteCustomer = `
DELETE FROM customers
WHERE id = $1 AND user_id = $2
RETURNING id
`

type DeleteCustomerParams struct {
	ID     int64
	UserID int64
}

// DeleteCustomer removes a customer; their orders and measurements cascade.
func (q *Queries) DeleteCustomer(ctx context.Context, arg DeleteCustomerParams) (int64, error) {
	row := q.db.QueryRow(ctx, deleteCustomer, arg.ID, arg.UserID)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}

const searchCustomerByPhone = `
SELECT ` + customerColumns + `
FROM customers
WHERE user_id = $1 AND phone ILIKE '%' || $2 || '%'
ORDER BY id
LIMIT 1
`

type SearchCustomerByPhoneParams struct {
	UserID int64
	Phone  string
}

// SearchCustomerByPhone returns the first customer whose phone contains the
// given fragment, case-insensitively, scoped to the owning user.
func (q *Queries) SearchCustomerByPhone(ctx context.Context, arg SearchCustomerByPhoneParams) (Customer, error) {
	row := q.db.QueryRow(ctx, searchCustomerByPhone, arg.UserID, arg.Phone)
	return scanCustomer(row)
}
