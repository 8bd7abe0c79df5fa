package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecommerce/internal/customer/models"
	"ecommerce/internal/platform/postgres"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/email"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tx"
)

const customerColumns = `id, name, email, customer_type, active, created_at, last_modified_at`

// PostgresStore persists customers in PostgreSQL. Inside a unit of work rows
// are read with FOR UPDATE so concurrent use cases on one customer serialize.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed customer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			customer_type = EXCLUDED.customer_type,
			active = EXCLUDED.active,
			last_modified_at = EXCLUDED.last_modified_at
	`
	_, err := tx.Use(ctx, s.db).ExecContext(ctx, query,
		c.ID().String(),
		c.Name(),
		c.Email().String(),
		string(c.Type()),
		c.IsActive(),
		c.CreatedAt(),
		c.LastModifiedAt(),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1` + lockClause(ctx)
	row := tx.Use(ctx, s.db).QueryRowContext(ctx, query, customerID.String())
	c, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, addr string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1` + lockClause(ctx)
	row := tx.Use(ctx, s.db).QueryRowContext(ctx, query, addr)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ExistsByEmail(ctx context.Context, addr string) (bool, error) {
	var exists bool
	err := tx.Use(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE email = $1)`, addr).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer email: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Customer, error) {
	rows, err := tx.Use(ctx, s.db).QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, customerID id.CustomerID) error {
	res, err := tx.Use(ctx, s.db).ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID.String())
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var (
		rawID, name, rawEmail, rawType string
		active                         bool
		createdAt, lastModifiedAt      time.Time
	)
	if err := row.Scan(&rawID, &name, &rawEmail, &rawType, &active, &createdAt, &lastModifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	addr, err := email.Parse(rawEmail)
	if err != nil {
		return nil, fmt.Errorf("stored email for customer %s: %w", rawID, err)
	}
	return models.RestoreCustomer(
		id.CustomerID(rawID),
		name,
		addr,
		models.CustomerType(rawType),
		active,
		createdAt,
		lastModifiedAt,
	), nil
}

// lockClause takes row locks only when the read is part of a transaction.
func lockClause(ctx context.Context) string {
	if _, ok := tx.From(ctx); ok {
		return ` FOR UPDATE`
	}
	return ""
}
