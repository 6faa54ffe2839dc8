package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 100 * time.Millisecond
)

// Tracker ведёт записи статуса транзакций: флаги отмены и возврата
// с перекрёстными ссылками. Конкурентные записи по одному ключу разрешаются
// optimistic locking по версии с ограниченным числом повторов.
type Tracker struct {
	statuses domain.StatusRepository
	metrics  *metrics.PosMetrics
	logger   *log.Entry

	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
}

// Option настраивает Tracker.
type Option func(*Tracker)

// WithMaxRetries задаёт число повторов при конфликте записи.
func WithMaxRetries(maxRetries int) Option {
	return func(t *Tracker) {
		if maxRetries > 0 {
			t.maxRetries = maxRetries
		}
	}
}

// WithBaseDelay задаёт базовую задержку линейного backoff между повторами.
func WithBaseDelay(baseDelay time.Duration) Option {
	return func(t *Tracker) {
		if baseDelay > 0 {
			t.baseDelay = baseDelay
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker создаёт трекер статусов транзакций.
func NewTracker(statuses domain.StatusRepository, posMetrics *metrics.PosMetrics, logger *log.Entry, opts ...Option) *Tracker {
	if logger == nil {
		logger = log.WithField("component", "status-tracker")
	}

	tracker := &Tracker{
		statuses:   statuses,
		metrics:    posMetrics,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker
}

// MarkAsVoided помечает исходную транзакцию отменённой операцией voidTxNo.
// Повторная отмена — ErrAlreadyVoided. Поля возврата не затрагиваются.
func (t *Tracker) MarkAsVoided(ctx context.Context, key domain.TransactionKey, voidTxNo int, staffID string) error {
	err := t.withConflictRetry(ctx, key, func(ctx context.Context) error {
		return t.applyVoid(ctx, key, voidTxNo, staffID)
	})
	t.recordOutcome("mark_as_voided", err)
	return err
}

// MarkAsRefunded помечает исходную транзакцию возвращённой операцией returnTxNo.
// Повторный возврат — ErrAlreadyRefunded, возврат отменённой продажи — ErrAlreadyVoided.
func (t *Tracker) MarkAsRefunded(ctx context.Context, key domain.TransactionKey, returnTxNo int, staffID string) error {
	err := t.withConflictRetry(ctx, key, func(ctx context.Context) error {
		return t.applyRefund(ctx, key, returnTxNo, staffID)
	})
	t.recordOutcome("mark_as_refunded", err)
	return err
}

// VoidReturn обрабатывает отмену транзакции-возврата: сама транзакция возврата
// помечается отменённой, а у исходной продажи сбрасывается флаг возврата.
// Если ни одна продажа не ссылается на returnKey как на возврат — ErrStatusNotFound.
func (t *Tracker) VoidReturn(ctx context.Context, returnKey domain.TransactionKey, voidTxNo int, staffID string) error {
	original, err := t.statuses.FindByReturnTransactionNo(ctx, returnKey.TenantID, returnKey.StoreCode, returnKey.TransactionNo)
	if err != nil {
		t.recordOutcome("void_return", err)
		return fmt.Errorf("find original sale for return %s: %w", returnKey, err)
	}

	if err := t.withConflictRetry(ctx, returnKey, func(ctx context.Context) error {
		return t.applyVoid(ctx, returnKey, voidTxNo, staffID)
	}); err != nil {
		t.recordOutcome("void_return", err)
		return err
	}

	// Перекрёстный эффект: отмена возврата восстанавливает исходную продажу.
	if err := t.ResetRefundStatus(ctx, original.Key()); err != nil {
		t.recordOutcome("void_return", err)
		return fmt.Errorf("reset refund of original sale %s: %w", original.Key(), err)
	}

	t.recordOutcome("void_return", nil)
	return nil
}

// ResetRefundStatus сбрасывает поля возврата записи статуса. Поля отмены
// остаются без изменений. Отсутствие записи — no-op.
func (t *Tracker) ResetRefundStatus(ctx context.Context, key domain.TransactionKey) error {
	err := t.withConflictRetry(ctx, key, func(ctx context.Context) error {
		current, err := t.statuses.Get(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrStatusNotFound) {
				return nil
			}
			return fmt.Errorf("get transaction status %s: %w", key, err)
		}

		cleared := false
		zeroInt := 0
		zeroTime := time.Time{}
		zeroStaff := ""
		update := domain.StatusUpdate{
			IsRefunded:          &cleared,
			ReturnTransactionNo: &zeroInt,
			ReturnDateTime:      &zeroTime,
			ReturnStaffID:       &zeroStaff,
		}
		return t.statuses.UpdateFields(ctx, key, current.Version, update)
	})
	t.recordOutcome("reset_refund_status", err)
	return err
}

// GetStatus возвращает запись статуса транзакции или ErrStatusNotFound.
func (t *Tracker) GetStatus(ctx context.Context, key domain.TransactionKey) (domain.TransactionStatus, error) {
	return t.statuses.Get(ctx, key)
}

// GetStatusForMany возвращает записи для перечисленных номеров транзакций.
// Номера без записи в результат не попадают: вызывающая сторона трактует их как clean.
func (t *Tracker) GetStatusForMany(ctx context.Context, tenantID, storeCode string, terminalNo int, transactionNos []int) (map[int]domain.TransactionStatus, error) {
	return t.statuses.GetMany(ctx, tenantID, storeCode, terminalNo, transactionNos)
}

// applyVoid — одна попытка read-modify-write отметки об отмене.
func (t *Tracker) applyVoid(ctx context.Context, key domain.TransactionKey, voidTxNo int, staffID string) error {
	current, err := t.statuses.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrStatusNotFound) {
			return fmt.Errorf("get transaction status %s: %w", key, err)
		}
		// Запись создаётся лениво при первой отмене/возврате.
		fresh := t.newStatus(key)
		if err := fresh.ApplyVoid(voidTxNo, staffID, t.now()); err != nil {
			return err
		}
		return t.statuses.Create(ctx, fresh)
	}

	if err := current.ApplyVoid(voidTxNo, staffID, t.now()); err != nil {
		return err
	}
	update := domain.StatusUpdate{
		IsVoided:          &current.IsVoided,
		VoidTransactionNo: &current.VoidTransactionNo,
		VoidDateTime:      &current.VoidDateTime,
		VoidStaffID:       &current.VoidStaffID,
	}
	return t.statuses.UpdateFields(ctx, key, current.Version, update)
}

// applyRefund — одна попытка read-modify-write отметки о возврате.
func (t *Tracker) applyRefund(ctx context.Context, key domain.TransactionKey, returnTxNo int, staffID string) error {
	current, err := t.statuses.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrStatusNotFound) {
			return fmt.Errorf("get transaction status %s: %w", key, err)
		}
		fresh := t.newStatus(key)
		if err := fresh.ApplyRefund(returnTxNo, staffID, t.now()); err != nil {
			return err
		}
		return t.statuses.Create(ctx, fresh)
	}

	if err := current.ApplyRefund(returnTxNo, staffID, t.now()); err != nil {
		return err
	}
	update := domain.StatusUpdate{
		IsRefunded:          &current.IsRefunded,
		ReturnTransactionNo: &current.ReturnTransactionNo,
		ReturnDateTime:      &current.ReturnDateTime,
		ReturnStaffID:       &current.ReturnStaffID,
	}
	return t.statuses.UpdateFields(ctx, key, current.Version, update)
}

func (t *Tracker) newStatus(key domain.TransactionKey) domain.TransactionStatus {
	now := t.now()
	return domain.TransactionStatus{
		TenantID:      key.TenantID,
		StoreCode:     key.StoreCode,
		TerminalNo:    key.TerminalNo,
		TransactionNo: key.TransactionNo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// withConflictRetry выполняет fn с повторами при ErrWriteConflict.
// Задержка растёт линейно: baseDelay * номер попытки. Бизнес-ошибки
// и прочие сбои хранилища не повторяются.
func (t *Tracker) withConflictRetry(ctx context.Context, key domain.TransactionKey, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsWriteConflict(lastErr) {
			return lastErr
		}

		t.metrics.RecordStatusConflict()
		t.logger.WithFields(log.Fields{
			"transaction": key.String(),
			"attempt":     attempt,
		}).Warn("write conflict on transaction status, retrying")

		if attempt == t.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.baseDelay * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("update transaction status %s: retries exhausted after %d attempts: %w", key, t.maxRetries, lastErr)
}

func (t *Tracker) recordOutcome(operation string, err error) {
	switch {
	case err == nil:
		t.metrics.RecordStatusOperation(operation, "ok")
	case domain.IsBusinessError(err):
		t.metrics.RecordStatusOperation(operation, "rejected")
	default:
		t.metrics.RecordStatusOperation(operation, "error")
	}
}
