package tranlog

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/service/eventgate"
	"github.com/vladislavdragonenkov/pos-core/internal/service/status"
)

// Disposition — решение транспорта по результату обработки события.
type Disposition int

const (
	// DispositionAccept — событие обработано (или дубль), доставка подтверждается.
	DispositionAccept Disposition = iota
	// DispositionDrop — событие некорректно или отклонено предусловием;
	// повторная доставка бессмысленна.
	DispositionDrop
	// DispositionRetry — временный сбой, событие должно быть доставлено повторно.
	DispositionRetry
)

// Classify переводит результат Process в решение транспорта:
// nil — подтвердить, malformed/бизнес-отказ — отбросить, прочее — повторить.
func Classify(err error) Disposition {
	switch {
	case err == nil:
		return DispositionAccept
	case errors.Is(err, ErrEventMalformed), domain.IsBusinessError(err):
		return DispositionDrop
	default:
		return DispositionRetry
	}
}

// Notifier сообщает источнику события статус доставки.
type Notifier interface {
	NotifyDeliveryStatus(ctx context.Context, tenantID string, transactionNo int, deliveryStatus string) error
}

// Processor применяет события журнала транзакций к ядру: диспетчеризация
// по типу транзакции за idempotency gate, затем best-effort уведомление
// источника о статусе доставки.
type Processor struct {
	gate     *eventgate.Gate
	tracker  *status.Tracker
	notifier Notifier
	logger   *log.Entry
}

// NewProcessor создаёт обработчик событий журнала транзакций.
// notifier может быть nil: уведомления отключены.
func NewProcessor(gate *eventgate.Gate, tracker *status.Tracker, notifier Notifier, logger *log.Entry) *Processor {
	if logger == nil {
		logger = log.WithField("component", "tranlog-processor")
	}

	return &Processor{
		gate:     gate,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
}

// Process валидирует событие и применяет его не более одного раза.
// Ошибки классифицируются вызывающей стороной через Classify.
func (p *Processor) Process(ctx context.Context, event TranlogEvent) error {
	if err := event.Validate(); err != nil {
		p.logger.WithError(err).WithField("event_id", event.EventID).Warn("malformed tranlog event dropped")
		return err
	}

	marker := domain.ProcessedEvent{
		EventID:       event.EventID,
		TenantID:      event.TenantID,
		SourceTopic:   "tranlog",
		TransactionNo: event.TransactionNo,
	}

	outcome, err := p.gate.HandleOnce(ctx, marker, func(ctx context.Context) error {
		return p.dispatch(ctx, event)
	})
	if err != nil {
		if Classify(err) == DispositionDrop {
			// Отказ предусловия — окончательный: источник узнаёт о неуспехе.
			p.notify(ctx, event, "failed")
		}
		return err
	}

	if outcome == eventgate.OutcomeApplied {
		p.logger.WithFields(log.Fields{
			"event_id": event.EventID,
			"type":     event.TransactionType,
		}).Info("tranlog event applied")
	}
	p.notify(ctx, event, "received")
	return nil
}

func (p *Processor) dispatch(ctx context.Context, event TranlogEvent) error {
	switch event.TransactionType {
	case TypeSale:
		// Обычная продажа не меняет статусных записей.
		return nil
	case TypeVoidSale:
		return p.tracker.MarkAsVoided(ctx, event.TargetKey(), event.TransactionNo, event.StaffID)
	case TypeReturnSale:
		return p.tracker.MarkAsRefunded(ctx, event.TargetKey(), event.TransactionNo, event.StaffID)
	case TypeVoidReturn:
		return p.tracker.VoidReturn(ctx, event.TargetKey(), event.TransactionNo, event.StaffID)
	default:
		return fmt.Errorf("%w: unknown transaction_type %q", ErrEventMalformed, event.TransactionType)
	}
}

// notify — best-effort: сбой уведомления логируется и никогда не влияет
// на результат обработки события.
func (p *Processor) notify(ctx context.Context, event TranlogEvent, deliveryStatus string) {
	if p.notifier == nil {
		return
	}

	if err := p.notifier.NotifyDeliveryStatus(ctx, event.TenantID, event.TransactionNo, deliveryStatus); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"event_id": event.EventID,
			"status":   deliveryStatus,
		}).Warn("delivery status notification failed")
	}
}
