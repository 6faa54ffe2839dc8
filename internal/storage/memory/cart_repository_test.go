package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

func testCart(cartID string) domain.Cart {
	now := time.Now().UTC()
	return domain.Cart{
		TenantID:     "tenant-1",
		StoreCode:    "5825",
		TerminalNo:   9,
		CartID:       cartID,
		Status:       domain.CartStatusEnteringItem,
		BusinessDate: "2026-02-10",
		LineItems: []domain.CartLineItem{
			{LineNo: 1, ItemCode: "49-01", Qty: 1, UnitPriceMinor: 150, AmountMinor: 150, CreatedAt: now},
		},
		SubtotalMinor: 150,
		TotalMinor:    150,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCartRepositoryUpsertAndGet(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	cart := testCart("c1")
	if err := repo.Upsert(ctx, cart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, cart.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CartID != "c1" || len(got.LineItems) != 1 {
		t.Fatalf("unexpected cart: %+v", got)
	}

	// Upsert перезаписывает существующую запись.
	cart.Status = domain.CartStatusPaying
	if err := repo.Upsert(ctx, cart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = repo.Get(ctx, cart.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.CartStatusPaying {
		t.Fatalf("expected upsert to overwrite, got %s", got.Status)
	}
}

func TestCartRepositoryGetNotFound(t *testing.T) {
	repo := NewCartRepository()
	_, err := repo.Get(context.Background(), testCart("missing").Key())
	if !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartRepositoryDelete(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	cart := testCart("c1")
	if err := repo.Upsert(ctx, cart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, cart.Key()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Get(ctx, cart.Key()); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound after delete, got %v", err)
	}

	// Повторное удаление — no-op.
	if err := repo.Delete(ctx, cart.Key()); err != nil {
		t.Fatalf("repeated delete must not fail: %v", err)
	}
}

func TestCartRepositoryReturnsCopies(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	cart := testCart("c1")
	if err := repo.Upsert(ctx, cart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, cart.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.LineItems[0].Qty = 99

	again, err := repo.Get(ctx, cart.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.LineItems[0].Qty != 1 {
		t.Fatal("stored cart must not be mutated through returned copy")
	}
}
