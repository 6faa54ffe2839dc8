package domain

import (
	"context"
	"time"
)

// CartRepository описывает требования к durable-хранилищу корзин.
// Это авторитетный ярус: кэш поверх него — лишь оптимизация задержки.
type CartRepository interface {
	// Upsert сохраняет корзину по естественному ключу (update-if-exists else insert).
	Upsert(ctx context.Context, cart Cart) error
	// Get возвращает корзину по ключу или ErrCartNotFound, если её нет.
	Get(ctx context.Context, key CartKey) (Cart, error)
	// Delete удаляет корзину. Отсутствие записи ошибкой не считается.
	Delete(ctx context.Context, key CartKey) error
}

// StatusUpdate описывает изменяемые поля записи статуса транзакции.
// Nil-поле означает «не трогать». Используется условным обновлением
// с optimistic locking по версии.
type StatusUpdate struct {
	IsVoided          *bool
	VoidTransactionNo *int
	VoidDateTime      *time.Time
	VoidStaffID       *string

	IsRefunded          *bool
	ReturnTransactionNo *int
	ReturnDateTime      *time.Time
	ReturnStaffID       *string
}

// StatusRepository описывает требования к хранилищу статусов транзакций.
type StatusRepository interface {
	// Get возвращает запись статуса или ErrStatusNotFound, если её нет.
	Get(ctx context.Context, key TransactionKey) (TransactionStatus, error)
	// GetMany возвращает записи для перечисленных номеров транзакций;
	// номера без записи в результат не попадают (трактуются как clean).
	GetMany(ctx context.Context, tenantID, storeCode string, terminalNo int, transactionNos []int) (map[int]TransactionStatus, error)
	// FindByReturnTransactionNo ищет запись исходной продажи, на которую
	// ссылается возврат returnTxNo (в пределах tenant+store, терминалы
	// продажи и возврата могут различаться). Нет записи — ErrStatusNotFound.
	FindByReturnTransactionNo(ctx context.Context, tenantID, storeCode string, returnTxNo int) (TransactionStatus, error)
	// Create вставляет новую запись; занятый ключ — ErrWriteConflict.
	Create(ctx context.Context, status TransactionStatus) error
	// UpdateFields применяет условное обновление по ключу и версии.
	// Конкурентная запись (несовпадение версии) — ErrWriteConflict.
	UpdateFields(ctx context.Context, key TransactionKey, version int64, update StatusUpdate) error
}

// ProcessedEventRepository описывает хранилище маркеров обработанных событий.
type ProcessedEventRepository interface {
	// Exists проверяет наличие маркера по идентификатору события.
	Exists(ctx context.Context, eventID string) (bool, error)
	// Create сохраняет маркер; повторная вставка — ErrEventAlreadyProcessed.
	Create(ctx context.Context, event ProcessedEvent) error
	// DeleteOlderThan удаляет маркеры старше before порциями limit (если >0).
	DeleteOlderThan(ctx context.Context, before time.Time, limit int) (int, error)
}
