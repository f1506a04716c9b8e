package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-core/internal/orders"
)

// Orders stores order headers and their items in one transaction.
type Orders struct{ DB *pgxpool.Pool }

var (
	_ orders.Store         = (*Orders)(nil)
	_ orders.StatusSwapper = (*Orders)(nil)
)

const orderColumns = `id, user_id, total::text, currency, status, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o      orders.Order
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &o.Currency, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return orders.Order{}, fmt.Errorf("order %s total %q: %w", o.ID, total, err)
	}
	o.Total = d
	o.Status = orders.Status(status)
	return o, nil
}

func (r *Orders) Get(ctx context.Context, id string) (*orders.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []orders.Order{o}
	if err := loadItems(ctx, r.DB, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Put upserts the header and replaces the item lines.
func (r *Orders) Put(ctx context.Context, o orders.Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.UserID, o.Total.StringFixed(2), o.Currency, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items(order_id, line, product_id, quantity, reserved, price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)`,
			o.ID, i, it.ProductID, it.Quantity, it.Reserved, it.Price.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *Orders) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *Orders) Scan(ctx context.Context, fn func(orders.Order) bool) error {
	list, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return err
	}
	for _, o := range list {
		if !fn(o) {
			return nil
		}
	}
	return nil
}

// ListByUser is newest first; limit <= 0 means no limit.
func (r *Orders) ListByUser(ctx context.Context, userID string, limit int) ([]orders.Order, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, lim)
}

// SwapStatus is a compare-and-set on the status column.
func (r *Orders) SwapStatus(ctx context.Context, id string, from, to orders.Status, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`,
		id, string(from), string(to), at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Orders) query(ctx context.Context, sql string, args ...any) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.DB, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems fills Items for every order in list with one query.
func loadItems(ctx context.Context, q querier, list []orders.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	pos := make(map[string]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		pos[o.ID] = i
	}
	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, quantity, reserved, price::text, subtotal::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line`, ids)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID         string
			it              orders.OrderItem
			price, subtotal string
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.Reserved, &price, &subtotal); err != nil {
			return err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("item price %q: %w", price, err)
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return fmt.Errorf("item subtotal %q: %w", subtotal, err)
		}
		i := pos[orderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}
