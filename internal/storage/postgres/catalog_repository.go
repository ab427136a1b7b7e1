package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const productColumns = `id, name, short_description, description, price, stock, is_active, is_rejected, created_at, updated_at`

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию CatalogRepository.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) Create(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		p.ID, p.Name, p.ShortDescription, p.Description, p.Price, p.Stock,
		p.Active, p.Rejected, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductExists
		}
		if isCheckViolation(err) {
			return domain.ErrStockNegative
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *catalogRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *catalogRepository) Update(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2,
		    short_description = $3,
		    description = $4,
		    price = $5,
		    stock = $6,
		    is_active = $7,
		    is_rejected = $8,
		    updated_at = $9
		WHERE id = $1
	`, p.ID, p.Name, p.ShortDescription, p.Description, p.Price, p.Stock, p.Active, p.Rejected, p.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrStockNegative
		}
		return fmt.Errorf("update product: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

func (r *catalogRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

func (r *catalogRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products`
	if filter.OnlyVisible {
		query += ` WHERE is_active AND NOT is_rejected`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT $1`, filter.Limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *catalogRepository) SetRejected(ctx context.Context, id string, rejected bool) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET is_rejected = $2, updated_at = $3 WHERE id = $1
	`, id, rejected, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set product rejected: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

// DecrementStock делает условный UPDATE: строка меняется, только если остатка хватает.
func (r *catalogRepository) DecrementStock(ctx context.Context, id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var (
		name  string
		stock int64
	)
	err = r.db.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, id).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("load product after failed decrement: %w", err)
	}
	return &domain.InsufficientStockError{ProductID: id, ProductName: name, Requested: qty, Available: stock}
}

func (r *catalogRepository) IncrementStock(ctx context.Context, id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return expectAffected(res, domain.ErrProductNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.ShortDescription, &p.Description, &p.Price, &p.Stock,
		&p.Active, &p.Rejected, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
