package eventgate

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
	"github.com/vladislavdragonenkov/pos-core/internal/storage/memory"
)

func testEvent(eventID string) domain.ProcessedEvent {
	return domain.ProcessedEvent{
		EventID:       eventID,
		TenantID:      "tenant-1",
		SourceTopic:   "pos.tranlog.events",
		TransactionNo: 100,
	}
}

func TestHandleOnceAppliesFirstDelivery(t *testing.T) {
	gate := NewGate(memory.NewProcessedEventRepository(), metrics.NewPosMetrics(), nil)
	ctx := context.Background()

	applied := 0
	outcome, err := gate.HandleOnce(ctx, testEvent("evt-1"), func(context.Context) error {
		applied++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected OutcomeApplied, got %v", outcome)
	}
	if applied != 1 {
		t.Fatalf("expected single apply call, got %d", applied)
	}
}

func TestHandleOnceSkipsDuplicateDelivery(t *testing.T) {
	gate := NewGate(memory.NewProcessedEventRepository(), metrics.NewPosMetrics(), nil)
	ctx := context.Background()

	applied := 0
	apply := func(context.Context) error {
		applied++
		return nil
	}

	if _, err := gate.HandleOnce(ctx, testEvent("evt-1"), apply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := gate.HandleOnce(ctx, testEvent("evt-1"), apply)
	if err != nil {
		t.Fatalf("duplicate delivery must succeed: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected OutcomeDuplicate, got %v", outcome)
	}
	if applied != 1 {
		t.Fatalf("apply must be invoked exactly once, got %d", applied)
	}
}

func TestHandleOnceMissingEventID(t *testing.T) {
	gate := NewGate(memory.NewProcessedEventRepository(), metrics.NewPosMetrics(), nil)

	called := false
	_, err := gate.HandleOnce(context.Background(), testEvent(""), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, domain.ErrEventIDRequired) {
		t.Fatalf("expected ErrEventIDRequired, got %v", err)
	}
	if called {
		t.Fatal("apply must not run for a malformed event")
	}
}

func TestHandleOnceFailedApplyLeavesNoMarker(t *testing.T) {
	repo := memory.NewProcessedEventRepository()
	gate := NewGate(repo, metrics.NewPosMetrics(), nil)
	ctx := context.Background()

	applyErr := errors.New("downstream unavailable")
	if _, err := gate.HandleOnce(ctx, testEvent("evt-1"), func(context.Context) error {
		return applyErr
	}); !errors.Is(err, applyErr) {
		t.Fatalf("expected apply error to surface, got %v", err)
	}

	exists, err := repo.Exists(ctx, "evt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("marker must not be persisted after a failed apply")
	}

	// Повторная доставка после сбоя применяет событие.
	outcome, err := gate.HandleOnce(ctx, testEvent("evt-1"), func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("redelivery after failure must apply, got %v", outcome)
	}
}

func TestHandleOnceConcurrentMarkerInsert(t *testing.T) {
	repo := memory.NewProcessedEventRepository()
	gate := NewGate(repo, metrics.NewPosMetrics(), nil)
	ctx := context.Background()

	// Конкурентная доставка сохраняет маркер между Exists и Create.
	outcome, err := gate.HandleOnce(ctx, testEvent("evt-1"), func(context.Context) error {
		return repo.Create(ctx, testEvent("evt-1"))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected OutcomeDuplicate on concurrent insert, got %v", outcome)
	}
}
