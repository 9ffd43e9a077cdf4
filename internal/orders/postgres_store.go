package orders

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresStore struct{ DB *pgxpool.Pool }

// CreateOrder is idempotent via external_id (the draft id).
func (r *PostgresStore) CreateOrder(ctx context.Context, d Draft) (string, bool, error) {
	var orderID string
	err := r.DB.QueryRow(ctx, `SELECT id::text FROM orders WHERE external_id=$1`, d.ID).Scan(&orderID)
	if err == nil {
		return orderID, true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, apperr.Storage("select order by external id", err)
	}

	addr, err := json.Marshal(d.ShippingAddress)
	if err != nil {
		return "", false, apperr.InvalidArgument("encode address: %v", err)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, apperr.Storage("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID = uuid.NewString()
	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, status, total_amount, delivery_method, payment_method, shipping_address)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		ON CONFLICT (external_id) DO NOTHING`,
		orderID, d.ID, d.UserID, string(StatusPending), d.TotalAmount.String(),
		string(d.DeliveryMethod), string(d.PaymentMethod), addr)
	if err != nil {
		return "", false, apperr.Storage("insert order", err)
	}
	if ct.RowsAffected() == 0 {
		// lost the race against a concurrent commit of the same draft
		_ = tx.Rollback(ctx)
		if err := r.DB.QueryRow(ctx, `SELECT id::text FROM orders WHERE external_id=$1`, d.ID).Scan(&orderID); err != nil {
			return "", false, apperr.Storage("select order by external id", err)
		}
		return orderID, true, nil
	}

	for i, l := range d.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, position, product_id, version_label, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
			orderID, i, l.ProductID, l.Version, l.Quantity, l.UnitPrice.String()); err != nil {
			return "", false, apperr.Storage("insert order line", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, apperr.Storage("commit", err)
	}
	return orderID, false, nil
}

func (r *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID string, from, to Status, failures []Failure) error {
	if failures == nil {
		failures = []Failure{}
	}
	fb, err := json.Marshal(failures)
	if err != nil {
		return apperr.InvalidArgument("encode failures: %v", err)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, failures=$4, updated_at=now()
		WHERE id=$1 AND status=$2`, orderID, string(from), string(to), fb)
	if err != nil {
		return apperr.Storage("update order status", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.status(ctx, orderID); err != nil {
		return err
	}
	return ErrStatusConflict
}

func (r *PostgresStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return Order{}, apperr.NotFound("order %s", orderID)
	}
	rows, err := r.DB.Query(ctx, selectOrders+` WHERE id=$1`, orderID)
	if err != nil {
		return Order{}, apperr.Storage("select order", err)
	}
	out, err := r.collect(ctx, rows)
	if err != nil {
		return Order{}, err
	}
	if len(out) == 0 {
		return Order{}, apperr.NotFound("order %s", orderID)
	}
	return out[0], nil
}

func (r *PostgresStore) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, selectOrders+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	return r.collect(ctx, rows)
}

const selectOrders = `
	SELECT id::text, external_id, user_id, status, total_amount::text, delivery_method, payment_method,
	       shipping_address, failures, created_at, updated_at
	FROM orders`

func (r *PostgresStore) collect(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		var (
			o                 Order
			status, total     string
			delivery, payment string
			addr, failures    []byte
		)
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.UserID, &status, &total, &delivery, &payment,
			&addr, &failures, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, apperr.Storage("scan order", err)
		}
		o.Status = Status(status)
		o.DeliveryMethod = DeliveryMethod(delivery)
		o.PaymentMethod = PaymentMethod(payment)
		var err error
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, apperr.Storage("decode order total", err)
		}
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, apperr.Storage("decode shipping address", err)
		}
		if err := json.Unmarshal(failures, &o.Failures); err != nil {
			return nil, apperr.Storage("decode failures", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select orders", err)
	}
	rows.Close()

	for i := range out {
		lines, err := r.lines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (r *PostgresStore) lines(ctx context.Context, orderID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, version_label, quantity, unit_price::text FROM order_lines
		WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, apperr.Storage("select order lines", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var (
			l     Line
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.Version, &l.Quantity, &price); err != nil {
			return nil, apperr.Storage("scan order line", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, apperr.Storage("decode unit price", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select order lines", err)
	}
	return out, nil
}

func (r *PostgresStore) status(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("order %s", orderID)
	}
	if err != nil {
		return "", apperr.Storage("select order status", err)
	}
	return Status(s), nil
}
