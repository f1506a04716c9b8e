package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-core/internal/inventory"
)

// Products is the product table. Stock moves through AdjustStock under a
// row lock, so the ledger's in-process locks are not needed with this store.
type Products struct{ DB *pgxpool.Pool }

var (
	_ inventory.ProductStore  = (*Products)(nil)
	_ inventory.StockAdjuster = (*Products)(nil)
	_ inventory.ActiveSetter  = (*Products)(nil)
)

const productColumns = `id, sku, name, price::text, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*inventory.Product, error) {
	var (
		p     inventory.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %s price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return &p, nil
}

func (r *Products) getBy(ctx context.Context, q querier, where string, arg any) (*inventory.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Products) Get(ctx context.Context, id string) (*inventory.Product, error) {
	return r.getBy(ctx, r.DB, "id=$1", id)
}

func (r *Products) GetBySKU(ctx context.Context, sku string) (*inventory.Product, error) {
	return r.getBy(ctx, r.DB, "sku=$1", sku)
}

// Put upserts by id. The UNIQUE constraint on sku keeps the index honest.
func (r *Products) Put(ctx context.Context, p inventory.Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, price, stock, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.SKU, p.Name, p.Price.StringFixed(2), p.Stock, p.Active, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return inventory.ErrDuplicateSKU(p.SKU)
	}
	return err
}

func (r *Products) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	return err
}

func (r *Products) Scan(ctx context.Context, fn func(inventory.Product) bool) error {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return err
		}
		if !fn(*p) {
			return nil
		}
	}
	return rows.Err()
}

// SetActive hanya menulis kolom active, stok tidak disentuh.
func (r *Products) SetActive(ctx context.Context, id string, active bool) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("set active %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return inventory.ErrProductNotFound(id)
	}
	return nil
}

// AdjustStock: lock baris produk (FOR UPDATE) -> cek -> update, satu tx.
// Kalau hasil negatif, tidak ada yang di-commit.
func (r *Products) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, inventory.ErrProductNotFound(id)
	}
	if err != nil {
		return 0, fmt.Errorf("lock product %s: %w", id, err)
	}
	next := stock + delta
	if next < 0 {
		return 0, inventory.ErrInsufficientStock(id, -delta, stock)
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=NOW() WHERE id=$1`, id, next); err != nil {
		return 0, fmt.Errorf("update stock %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}
