package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Корзина хранится документом (JSONB) под естественным ключом:
// durable-ярус переживает недоступность кэша и является авторитетным.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

// cartDocument — сериализуемое представление корзины в колонке body.
type cartDocument struct {
	Status        domain.CartStatus     `json:"status"`
	LineItems     []domain.CartLineItem `json:"line_items"`
	Payments      []domain.CartPayment  `json:"payments"`
	SubtotalMinor int64                 `json:"subtotal_minor"`
	TotalMinor    int64                 `json:"total_minor"`
	ReceiptNo     int                   `json:"receipt_no"`
	BusinessDate  string                `json:"business_date"`
}

func (r *cartRepository) Upsert(ctx context.Context, cart domain.Cart) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := json.Marshal(cartDocument{
		Status:        cart.Status,
		LineItems:     cart.LineItems,
		Payments:      cart.Payments,
		SubtotalMinor: cart.SubtotalMinor,
		TotalMinor:    cart.TotalMinor,
		ReceiptNo:     cart.ReceiptNo,
		BusinessDate:  cart.BusinessDate,
	})
	if err != nil {
		return fmt.Errorf("marshal cart document %s: %w", cart.Key(), err)
	}

	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}

	_, err = r.db.ExecContext(queryCtx, `
		INSERT INTO carts (
			tenant_id, store_code, terminal_no, cart_id, shard_key, body, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (tenant_id, store_code, terminal_no, cart_id)
		DO UPDATE SET shard_key = EXCLUDED.shard_key,
		              body = EXCLUDED.body,
		              updated_at = EXCLUDED.updated_at
	`,
		cart.TenantID, cart.StoreCode, cart.TerminalNo, cart.CartID,
		cart.ShardKey(), body, cart.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert cart %s: %w", cart.Key(), err)
	}

	return nil
}

func (r *cartRepository) Get(ctx context.Context, key domain.CartKey) (domain.Cart, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		body      []byte
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRowContext(queryCtx, `
		SELECT body, created_at, updated_at
		FROM carts
		WHERE tenant_id = $1 AND store_code = $2 AND terminal_no = $3 AND cart_id = $4
	`, key.TenantID, key.StoreCode, key.TerminalNo, key.CartID).Scan(&body, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart %s: %w", key, err)
	}

	var doc cartDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart document %s: %w", key, err)
	}

	return domain.Cart{
		TenantID:      key.TenantID,
		StoreCode:     key.StoreCode,
		TerminalNo:    key.TerminalNo,
		CartID:        key.CartID,
		Status:        doc.Status,
		LineItems:     doc.LineItems,
		Payments:      doc.Payments,
		SubtotalMinor: doc.SubtotalMinor,
		TotalMinor:    doc.TotalMinor,
		ReceiptNo:     doc.ReceiptNo,
		BusinessDate:  doc.BusinessDate,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (r *cartRepository) Delete(ctx context.Context, key domain.CartKey) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(queryCtx, `
		DELETE FROM carts
		WHERE tenant_id = $1 AND store_code = $2 AND terminal_no = $3 AND cart_id = $4
	`, key.TenantID, key.StoreCode, key.TerminalNo, key.CartID)
	if err != nil {
		return fmt.Errorf("delete cart %s: %w", key, err)
	}

	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
