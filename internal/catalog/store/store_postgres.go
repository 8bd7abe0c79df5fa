package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce/internal/catalog/models"
	id "ecommerce/pkg/domain"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tx"
)

const productColumns = `id, name, description, price, currency, stock_quantity, available, created_at, last_modified_at`

// PostgresStore persists products in PostgreSQL. FindByID takes a row lock
// when called inside a transaction so stock reservations serialize per product.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed product store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			stock_quantity = EXCLUDED.stock_quantity,
			available = EXCLUDED.available,
			last_modified_at = EXCLUDED.last_modified_at
	`
	_, err := tx.Use(ctx, s.db).ExecContext(ctx, query,
		p.ID().String(),
		p.Name(),
		p.Description(),
		p.Price().StringAmount(),
		p.Price().Currency(),
		p.StockQuantity(),
		p.IsAvailable(),
		p.CreatedAt(),
		p.LastModifiedAt(),
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if _, ok := tx.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(tx.Use(ctx, s.db).QueryRowContext(ctx, query, productID.String()))
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindAllAvailable(ctx context.Context) ([]*models.Product, error) {
	return s.list(ctx, "list available products", `available`)
}

func (s *PostgresStore) FindByNameContaining(ctx context.Context, fragment string) ([]*models.Product, error) {
	return s.list(ctx, "search products", `name ILIKE $1`, "%"+escapeLike(fragment)+"%")
}

func (s *PostgresStore) FindLowStockProducts(ctx context.Context, threshold int) ([]*models.Product, error) {
	return s.list(ctx, "list low stock products", `available AND stock_quantity <= $1`, threshold)
}

func (s *PostgresStore) DeleteByID(ctx context.Context, productID id.ProductID) error {
	res, err := tx.Use(ctx, s.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID.String())
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, op, where string, args ...any) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` ORDER BY name, id`
	rows, err := tx.Use(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		rawID, name, description, currency string
		amount                             decimal.Decimal
		stock                              int
		available                          bool
		createdAt, lastModifiedAt          time.Time
	)
	err := row.Scan(&rawID, &name, &description, &amount, &currency, &stock, &available, &createdAt, &lastModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	price, err := money.New(amount, strings.TrimSpace(currency))
	if err != nil {
		return nil, fmt.Errorf("stored price for product %s: %w", rawID, err)
	}
	return models.RestoreProduct(id.ProductID(rawID), name, description, price, stock, available, createdAt, lastModifiedAt), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
