package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_id, user_id, amount, advance_amount, status, category, notes, order_date, delivery_date, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.UserID, &o.Amount, &o.AdvanceAmount,
		&o.Status, &o.Category, &o.Notes, &o.OrderDate, &o.DeliveryDate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const createOrder = `
INSERT INTO orders (customer_id, user_id, amount, advance_amount, status, category, notes, order_date, delivery_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerID    int64
	UserID        int64
	Amount        pgtype.Numeric
	AdvanceAmount pgtype.Numeric
	Status        string
	Category      string
	Notes         pgtype.Text
	OrderDate     pgtype.Date
	DeliveryDate  pgtype.Date
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.UserID, arg.Amount, arg.AdvanceAmount,
		arg.Status, arg.Category, arg.Notes, arg.OrderDate, arg.DeliveryDate)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND user_id = $2
`

type GetOrderParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.UserID)
	return scanOrder(row)
}

const listOrdersByCustomer = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1 AND user_id = $2
ORDER BY created_at DESC
`

type ListOrdersByCustomerParams struct {
	CustomerID int64
	UserID     int64
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, arg.CustomerID, arg.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
