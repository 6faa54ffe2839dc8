package domain

import (
	"errors"
	"testing"
	"time"
)

func validCart() Cart {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return Cart{
		TenantID:     "tenant-1",
		StoreCode:    "5825",
		TerminalNo:   9,
		CartID:       "cart-abc",
		Status:       CartStatusEnteringItem,
		BusinessDate: "2026-02-10",
		LineItems: []CartLineItem{
			{LineNo: 1, ItemCode: "49-01", Qty: 2, UnitPriceMinor: 150, AmountMinor: 300, CreatedAt: now},
			{LineNo: 2, ItemCode: "49-02", Qty: 1, UnitPriceMinor: 200, AmountMinor: 200, CreatedAt: now},
		},
		SubtotalMinor: 500,
		TotalMinor:    500,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCartValidateInvariants_OK(t *testing.T) {
	cart := validCart()
	if errs := cart.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestCartValidateInvariants_Violations(t *testing.T) {
	cart := validCart()
	cart.TenantID = ""
	cart.StoreCode = ""
	cart.TerminalNo = 0
	cart.CartID = ""
	cart.Status = CartStatus("unknown")
	cart.LineItems[0].Qty = 0
	cart.LineItems[1].UnitPriceMinor = -1
	cart.SubtotalMinor = 999

	errs := cart.ValidateInvariants()
	want := []error{
		ErrTenantRequired,
		ErrStoreRequired,
		ErrTerminalInvalid,
		ErrCartIDRequired,
		ErrCartStatusInvalid,
		ErrLineQtyInvalid,
		ErrLinePriceInvalid,
		ErrSubtotalMismatch,
	}
	for _, expected := range want {
		found := false
		for _, err := range errs {
			if errors.Is(err, expected) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected violation %v in %v", expected, errs)
		}
	}
}

func TestCartKeys(t *testing.T) {
	cart := validCart()

	key := cart.Key()
	if key.String() != "tenant-1:5825:9:cart-abc" {
		t.Fatalf("unexpected cart key: %s", key.String())
	}
	if cart.ShardKey() != "tenant-1:5825:2026-02-10" {
		t.Fatalf("unexpected shard key: %s", cart.ShardKey())
	}
}

func TestCartKeyOnValue(t *testing.T) {
	// Key вызывается на значении, включая неадресуемые (результат функции).
	key := validCart().Key()
	if key.CartID != "cart-abc" {
		t.Fatalf("unexpected cart id: %s", key.CartID)
	}
}

func TestCartStatusValid(t *testing.T) {
	for _, status := range []CartStatus{CartStatusEnteringItem, CartStatusPaying, CartStatusCompleted, CartStatusCancelled} {
		if !status.Valid() {
			t.Fatalf("status %q should be valid", status)
		}
	}
	if CartStatus("done").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}
