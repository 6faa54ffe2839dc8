package eventgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
)

// Outcome — исход пропуска события через gate.
type Outcome int

const (
	// OutcomeApplied — событие применено впервые, маркер сохранён.
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate — повторная доставка, обработчик не вызывался.
	OutcomeDuplicate
)

// Gate гарантирует однократное применение событий при at-least-once доставке.
// Маркер обработанного события сохраняется только ПОСЛЕ успешного применения:
// упавший обработчик оставляет событие без маркера, и доставка повторится.
type Gate struct {
	events  domain.ProcessedEventRepository
	metrics *metrics.PosMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewGate создаёт idempotency gate поверх хранилища маркеров.
func NewGate(events domain.ProcessedEventRepository, posMetrics *metrics.PosMetrics, logger *log.Entry) *Gate {
	if logger == nil {
		logger = log.WithField("component", "event-gate")
	}

	return &Gate{
		events:  events,
		metrics: posMetrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HandleOnce применяет apply не более одного раза для данного event.EventID.
// Пустой EventID — ErrEventIDRequired: событие некорректно и не должно
// доставляться повторно. Ошибка apply или сохранения маркера — retryable:
// вызывающая сторона обязана ответить так, чтобы доставка повторилась.
func (g *Gate) HandleOnce(ctx context.Context, event domain.ProcessedEvent, apply func(context.Context) error) (Outcome, error) {
	if event.EventID == "" {
		g.metrics.RecordEventDropped()
		return 0, domain.ErrEventIDRequired
	}

	exists, err := g.events.Exists(ctx, event.EventID)
	if err != nil {
		g.metrics.RecordEventFailed()
		return 0, fmt.Errorf("check processed event %s: %w", event.EventID, err)
	}
	if exists {
		g.metrics.RecordEventDuplicated()
		g.logger.WithField("event_id", event.EventID).Info("duplicate event delivery skipped")
		return OutcomeDuplicate, nil
	}

	if err := apply(ctx); err != nil {
		g.metrics.RecordEventFailed()
		return 0, fmt.Errorf("apply event %s: %w", event.EventID, err)
	}

	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = g.now()
	}
	if err := g.events.Create(ctx, event); err != nil {
		if errors.Is(err, domain.ErrEventAlreadyProcessed) {
			// Конкурентная доставка успела сохранить маркер первой.
			g.metrics.RecordEventDuplicated()
			return OutcomeDuplicate, nil
		}
		g.metrics.RecordEventFailed()
		return 0, fmt.Errorf("persist processed event %s: %w", event.EventID, err)
	}

	g.metrics.RecordEventApplied()
	return OutcomeApplied, nil
}
