package cart

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct{ DB *pgxpool.Pool }

func (s *PostgresStore) LoadCart(ctx context.Context, userID string) (*Cart, error) {
	var (
		revision  int64
		updatedAt time.Time
	)
	err := s.DB.QueryRow(ctx, `SELECT revision, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&revision, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return New(userID), nil
	}
	if err != nil {
		return nil, apperr.Storage("select cart", err)
	}

	rows, err := s.DB.Query(ctx, `
		SELECT product_id, version_label, quantity, selected FROM cart_lines
		WHERE user_id=$1 ORDER BY position`, userID)
	if err != nil {
		return nil, apperr.Storage("select cart lines", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Version, &l.Quantity, &l.Selected); err != nil {
			return nil, apperr.Storage("scan cart line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select cart lines", err)
	}
	return FromLines(userID, revision, updatedAt, lines), nil
}

// SaveCart replaces the stored lines under a compare-and-set on revision.
func (s *PostgresStore) SaveCart(ctx context.Context, c *Cart) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Storage("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var affected int64
	if c.Revision == 0 {
		ct, err := tx.Exec(ctx, `
			INSERT INTO carts(user_id, revision, updated_at) VALUES ($1, 1, $2)
			ON CONFLICT (user_id) DO NOTHING`, c.UserID, updatedAt)
		if err != nil {
			return apperr.Storage("insert cart", err)
		}
		affected = ct.RowsAffected()
	} else {
		ct, err := tx.Exec(ctx, `
			UPDATE carts SET revision = revision + 1, updated_at = $3
			WHERE user_id=$1 AND revision=$2`, c.UserID, c.Revision, updatedAt)
		if err != nil {
			return apperr.Storage("update cart", err)
		}
		affected = ct.RowsAffected()
	}
	if affected != 1 {
		return ErrConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, c.UserID); err != nil {
		return apperr.Storage("reset cart lines", err)
	}
	for i, l := range c.Lines() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_lines(user_id, product_id, version_label, quantity, selected, position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			c.UserID, l.ProductID, l.Version, l.Quantity, l.Selected, i); err != nil {
			return apperr.Storage("insert cart line", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit", err)
	}
	c.Revision++
	c.UpdatedAt = updatedAt
	return nil
}
