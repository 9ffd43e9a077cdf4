package address

import (
	"context"
	"errors"
	"sync"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Address is a value; orders keep their own copy of it.
type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type Book interface {
	GetAddress(ctx context.Context, userID, addressID string) (Address, error)
}

type PostgresBook struct{ DB *pgxpool.Pool }

// GetAddress only resolves addresses owned by userID.
func (b *PostgresBook) GetAddress(ctx context.Context, userID, addressID string) (Address, error) {
	var a Address
	err := b.DB.QueryRow(ctx, `
		SELECT id, user_id, recipient, phone, line1, line2, city, province, postal_code
		FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.Recipient, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.Province, &a.PostalCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, apperr.NotFound("address %s", addressID)
	}
	if err != nil {
		return Address{}, apperr.Storage("select address", err)
	}
	return a, nil
}

func (b *PostgresBook) Save(ctx context.Context, a Address) error {
	_, err := b.DB.Exec(ctx, `
		INSERT INTO addresses(id, user_id, recipient, phone, line1, line2, city, province, postal_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET recipient=EXCLUDED.recipient, phone=EXCLUDED.phone,
			line1=EXCLUDED.line1, line2=EXCLUDED.line2, city=EXCLUDED.city,
			province=EXCLUDED.province, postal_code=EXCLUDED.postal_code`,
		a.ID, a.UserID, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.Province, a.PostalCode)
	return apperr.Storage("upsert address", err)
}

type MemoryBook struct {
	mu   sync.RWMutex
	byID map[string]Address
}

func NewMemoryBook(addrs ...Address) *MemoryBook {
	b := &MemoryBook{byID: make(map[string]Address)}
	for _, a := range addrs {
		b.byID[a.ID] = a
	}
	return b
}

func (b *MemoryBook) GetAddress(_ context.Context, userID, addressID string) (Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.byID[addressID]
	if !ok || a.UserID != userID {
		return Address{}, apperr.NotFound("address %s", addressID)
	}
	return a, nil
}

func (b *MemoryBook) Save(_ context.Context, a Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[a.ID] = a
	return nil
}

func (b *MemoryBook) Delete(addressID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byID, addressID)
}
