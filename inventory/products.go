package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	Product struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Quantity    int64     `json:"quantity"`
		Price       float64   `json:"price"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
)

// Validate trims text fields and checks the product can be stored.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	switch {
	case p.Name == "":
		return InvalidProduct{Field: "name", Reason: "cannot be empty"}
	case p.Quantity < 0:
		return InvalidProduct{Field: "quantity", Reason: "cannot be negative"}
	case math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
		return InvalidProduct{Field: "price", Reason: "must be a number"}
	case p.Price < 0:
		return InvalidProduct{Field: "price", Reason: "cannot be negative"}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name, description, quantity, price, created_at, updated_at
	from products order by lower(name) asc, id asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list products, cause %w", err)
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		var p Product
		err = rows.Scan(&p.ID, &p.Name, &p.Description, &p.Quantity, &p.Price, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan product, cause %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `select id, name, description, quantity, price, created_at, updated_at
	from products where id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Quantity, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ProductNotFound{ID: id}
	} else if err != nil {
		return Product{}, fmt.Errorf("unable to load product %v, cause %w", id, err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	return insertProduct(ctx, s.db, p)
}

// CreateProducts stores all products or none of them.
func (s *Store) CreateProducts(ctx context.Context, products []Product) ([]Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to start transaction, cause %w", err)
	}
	defer tx.Rollback()
	out := make([]Product, 0, len(products))
	for _, p := range products {
		p, err = insertProduct(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("unable to commit products, cause %w", err)
	}
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `update products set name = $1, description = $2, quantity = $3, price = $4, updated_at = $5
	where id = $6 returning created_at`,
		p.Name, p.Description, p.Quantity, p.Price, p.UpdatedAt, p.ID).Scan(&p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ProductNotFound{ID: p.ID}
	} else if err != nil {
		return Product{}, fmt.Errorf("unable to update product %v, cause %w", p.ID, err)
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return fmt.Errorf("unable to delete product %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to delete product %v, cause %w", id, err)
	} else if n == 0 {
		return ProductNotFound{ID: id}
	}
	return nil
}

func insertProduct(ctx context.Context, db execer, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	_, err := db.ExecContext(ctx, `insert into products(id, name, description, quantity, price, created_at, updated_at)
	values ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Quantity, p.Price, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("unable to store product %v, cause %w", p.Name, err)
	}
	return p, nil
}
