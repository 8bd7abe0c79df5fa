package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tx"
)

const orderColumns = `id, customer_id, status, total_amount, currency, created_at, last_modified_at`

// PostgresStore persists orders and their lines. Lines are rewritten on every
// save; the order row and its lines change together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed order store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, o *models.Order) error {
	return tx.InTx(ctx, s.db, func(q tx.Querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				total_amount = EXCLUDED.total_amount,
				currency = EXCLUDED.currency,
				last_modified_at = EXCLUDED.last_modified_at
		`,
			o.ID().String(),
			o.CustomerID().String(),
			string(o.Status()),
			o.TotalAmount().StringAmount(),
			o.Currency(),
			o.CreatedAt(),
			o.LastModifiedAt(),
		)
		if err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID().String()); err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}
		for i, item := range o.Items() {
			_, err := q.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, product_id, product_name, unit_price, currency, quantity)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				o.ID().String(),
				i,
				item.ProductID().String(),
				item.ProductName(),
				item.UnitPrice().StringAmount(),
				item.UnitPrice().Currency(),
				item.Quantity(),
			)
			if err != nil {
				return fmt.Errorf("save order item: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if _, ok := tx.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	q := tx.Use(ctx, s.db)
	h, err := scanHeader(q.QueryRowContext(ctx, query, orderID.String()))
	if err != nil {
		return nil, fmt.Errorf("find order by id: %w", err)
	}
	orders, err := s.attachItems(ctx, q, []orderHeader{h})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (s *PostgresStore) FindByCustomerID(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error) {
	return s.list(ctx, "list customer orders", `customer_id = $1`, customerID.String())
}

func (s *PostgresStore) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	return s.list(ctx, "list orders by status", `status = $1`, string(status))
}

func (s *PostgresStore) FindByCustomerIDAndStatus(ctx context.Context, customerID id.CustomerID, status models.OrderStatus) ([]*models.Order, error) {
	return s.list(ctx, "list customer orders by status", `customer_id = $1 AND status = $2`, customerID.String(), string(status))
}

func (s *PostgresStore) DeleteByID(ctx context.Context, orderID id.OrderID) error {
	res, err := tx.Use(ctx, s.db).ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID.String())
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, op, where string, args ...any) ([]*models.Order, error) {
	q := tx.Use(ctx, s.db)
	rows, err := q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var headers []orderHeader
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	if len(headers) == 0 {
		return []*models.Order{}, nil
	}
	return s.attachItems(ctx, q, headers)
}

type orderHeader struct {
	id             string
	customerID     string
	status         string
	total          money.Money
	createdAt      time.Time
	lastModifiedAt time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (orderHeader, error) {
	var (
		h        orderHeader
		amount   decimal.Decimal
		currency string
	)
	err := row.Scan(&h.id, &h.customerID, &h.status, &amount, &currency, &h.createdAt, &h.lastModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h, sentinel.ErrNotFound
		}
		return h, err
	}
	h.total, err = money.New(amount, strings.TrimSpace(currency))
	if err != nil {
		return h, fmt.Errorf("stored total for order %s: %w", h.id, err)
	}
	return h, nil
}

// attachItems loads the lines of every header in one query and restores the
// aggregates in header order.
func (s *PostgresStore) attachItems(ctx context.Context, q tx.Querier, headers []orderHeader) ([]*models.Order, error) {
	placeholders := make([]string, len(headers))
	args := make([]any, len(headers))
	for i, h := range headers {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = h.id
	}
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, unit_price, currency, quantity
		FROM order_items
		WHERE order_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY order_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]models.OrderItem, len(headers))
	for rows.Next() {
		var (
			orderID, productID, productName, currency string
			unitPrice                                 decimal.Decimal
			quantity                                  int
		)
		if err := rows.Scan(&orderID, &productID, &productName, &unitPrice, &currency, &quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		price, err := money.New(unitPrice, strings.TrimSpace(currency))
		if err != nil {
			return nil, fmt.Errorf("stored unit price for order %s: %w", orderID, err)
		}
		items[orderID] = append(items[orderID], models.RestoreOrderItem(id.ProductID(productID), productName, price, quantity))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	out := make([]*models.Order, 0, len(headers))
	for _, h := range headers {
		out = append(out, models.RestoreOrder(
			id.OrderID(h.id),
			id.CustomerID(h.customerID),
			items[h.id],
			models.OrderStatus(h.status),
			h.total,
			h.createdAt,
			h.lastModifiedAt,
		))
	}
	return out, nil
}
