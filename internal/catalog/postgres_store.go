package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const dialectPostgres = "postgres"

type PostgresStore struct{ DB *pgxpool.Pool }

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (Product, error) {
	var (
		p     Product
		price string
	)
	err := s.DB.QueryRow(ctx, `SELECT id, name, price::text, created_at FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &price, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product %s", productID)
	}
	if err != nil {
		return Product{}, apperr.Storage("select product", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, apperr.Storage("decode product price", err)
	}

	versions, err := s.versions(ctx, []string{productID})
	if err != nil {
		return Product{}, err
	}
	p.Versions = versions[productID]
	return p, nil
}

// DecrementVersionStock relies on a single conditional UPDATE so that two
// concurrent checkouts can never both pass the availability check.
func (s *PostgresStore) DecrementVersionStock(ctx context.Context, key VersionKey, amount int) error {
	if amount < 1 {
		return apperr.InvalidArgument("decrement amount %d", amount)
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE product_versions SET available = available - $3
		WHERE product_id=$1 AND label=$2 AND available >= $3`,
		key.ProductID, key.Label, amount)
	if err != nil {
		return apperr.Storage("decrement stock", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = s.DB.QueryRow(ctx, `SELECT available FROM product_versions WHERE product_id=$1 AND label=$2`,
		key.ProductID, key.Label).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("version %s", key)
	}
	if err != nil {
		return apperr.Storage("select stock", err)
	}
	return apperr.InsufficientStock("%s: requested %d, available %d", key, amount, available)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Product, error) {
	query, args, err := buildListQuery(f.Normalize())
	if err != nil {
		return nil, apperr.InvalidArgument("build product query: %v", err)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list products", err)
	}
	defer rows.Close()

	var (
		out []Product
		ids []string
	)
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.CreatedAt); err != nil {
			return nil, apperr.Storage("scan product", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, apperr.Storage("decode product price", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list products", err)
	}
	if len(out) == 0 {
		return []Product{}, nil
	}

	versions, err := s.versions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Versions = versions[out[i].ID]
	}
	return out, nil
}

// Upsert writes a product and replaces its versions. Used by seeding and tests.
func (s *PostgresStore) Upsert(ctx context.Context, p Product) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Storage("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO products(id, name, price, created_at) VALUES ($1,$2,$3::numeric,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price, updated_at=now()`,
		p.ID, p.Name, p.Price.String(), createdAt); err != nil {
		return apperr.Storage("upsert product", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_versions WHERE product_id=$1`, p.ID); err != nil {
		return apperr.Storage("reset versions", err)
	}
	for _, v := range p.Versions {
		var price *string
		if v.Price != nil {
			ps := v.Price.String()
			price = &ps
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_versions(product_id, label, price, available) VALUES ($1,$2,$3::numeric,$4)`,
			p.ID, v.Label, price, v.Available); err != nil {
			return apperr.Storage("insert version", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit", err)
	}
	return nil
}

func (s *PostgresStore) versions(ctx context.Context, productIDs []string) (map[string][]Version, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, label, price::text, available FROM product_versions
		WHERE product_id = ANY($1) ORDER BY product_id, label`, productIDs)
	if err != nil {
		return nil, apperr.Storage("select versions", err)
	}
	defer rows.Close()

	out := make(map[string][]Version, len(productIDs))
	for rows.Next() {
		var (
			pid   string
			v     Version
			price *string
		)
		if err := rows.Scan(&pid, &v.Label, &price, &v.Available); err != nil {
			return nil, apperr.Storage("scan version", err)
		}
		if price != nil {
			d, err := decimal.NewFromString(*price)
			if err != nil {
				return nil, apperr.Storage("decode version price", err)
			}
			v.Price = &d
		}
		out[pid] = append(out[pid], v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select versions", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the search term match literally, as MemoryStore does.
// Backslash is Postgres' default LIKE escape character.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

func buildListQuery(f Filter) (string, []any, error) {
	ds := goqu.Dialect(dialectPostgres).
		From("products").
		Select("id", "name", goqu.L("price::text"), "created_at")

	if f.Query != "" {
		ds = ds.Where(goqu.C("name").ILike("%" + escapeLike(f.Query) + "%"))
	}
	if f.MinPrice != nil {
		ds = ds.Where(goqu.C("price").Gte(goqu.L("?::numeric", f.MinPrice.String())))
	}
	if f.MaxPrice != nil {
		ds = ds.Where(goqu.C("price").Lte(goqu.L("?::numeric", f.MaxPrice.String())))
	}
	if f.InStock {
		ds = ds.Where(goqu.L("EXISTS (SELECT 1 FROM product_versions v WHERE v.product_id = products.id AND v.available > 0)"))
	}

	switch f.Sort {
	case SortPriceAsc:
		ds = ds.Order(goqu.C("price").Asc(), goqu.C("id").Asc())
	case SortPriceDesc:
		ds = ds.Order(goqu.C("price").Desc(), goqu.C("id").Asc())
	case SortNewest:
		ds = ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
	default:
		ds = ds.Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	}

	return ds.Limit(uint(f.Limit)).Offset(uint(f.Offset)).Prepared(true).ToSQL()
}
