package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

// statusRepositoryInMemory — in-memory реализация StatusRepository
// с optimistic locking по версии записи.
type statusRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[domain.TransactionKey]domain.TransactionStatus
}

// NewStatusRepository возвращает in-memory репозиторий статусов транзакций.
func NewStatusRepository() domain.StatusRepository {
	return &statusRepositoryInMemory{
		items: make(map[domain.TransactionKey]domain.TransactionStatus),
	}
}

// Get возвращает запись статуса или ErrStatusNotFound.
func (r *statusRepositoryInMemory) Get(_ context.Context, key domain.TransactionKey) (domain.TransactionStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.items[key]
	if !ok {
		return domain.TransactionStatus{}, domain.ErrStatusNotFound
	}
	return status, nil
}

// GetMany возвращает записи для перечисленных номеров транзакций.
// Номера без записи в результат не попадают.
func (r *statusRepositoryInMemory) GetMany(_ context.Context, tenantID, storeCode string, terminalNo int, transactionNos []int) (map[int]domain.TransactionStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[int]domain.TransactionStatus, len(transactionNos))
	for _, txNo := range transactionNos {
		key := domain.TransactionKey{
			TenantID:      tenantID,
			StoreCode:     storeCode,
			TerminalNo:    terminalNo,
			TransactionNo: txNo,
		}
		if status, ok := r.items[key]; ok {
			result[txNo] = status
		}
	}
	return result, nil
}

// FindByReturnTransactionNo ищет запись исходной продажи по номеру возврата.
func (r *statusRepositoryInMemory) FindByReturnTransactionNo(_ context.Context, tenantID, storeCode string, returnTxNo int) (domain.TransactionStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, status := range r.items {
		if key.TenantID == tenantID && key.StoreCode == storeCode &&
			status.IsRefunded && status.ReturnTransactionNo == returnTxNo {
			return status, nil
		}
	}
	return domain.TransactionStatus{}, domain.ErrStatusNotFound
}

// Create вставляет новую запись; занятый ключ — ErrWriteConflict.
func (r *statusRepositoryInMemory) Create(_ context.Context, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := status.Key()
	if _, exists := r.items[key]; exists {
		return domain.ErrWriteConflict
	}
	r.items[key] = status
	return nil
}

// UpdateFields применяет условное обновление: несовпадение версии — ErrWriteConflict.
func (r *statusRepositoryInMemory) UpdateFields(_ context.Context, key domain.TransactionKey, version int64, update domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[key]
	if !ok {
		return domain.ErrStatusNotFound
	}
	if current.Version != version {
		return domain.ErrWriteConflict
	}

	applyStatusUpdate(&current, update)
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	r.items[key] = current
	return nil
}

func applyStatusUpdate(status *domain.TransactionStatus, update domain.StatusUpdate) {
	if update.IsVoided != nil {
		status.IsVoided = *update.IsVoided
	}
	if update.VoidTransactionNo != nil {
		status.VoidTransactionNo = *update.VoidTransactionNo
	}
	if update.VoidDateTime != nil {
		status.VoidDateTime = *update.VoidDateTime
	}
	if update.VoidStaffID != nil {
		status.VoidStaffID = *update.VoidStaffID
	}
	if update.IsRefunded != nil {
		status.IsRefunded = *update.IsRefunded
	}
	if update.ReturnTransactionNo != nil {
		status.ReturnTransactionNo = *update.ReturnTransactionNo
	}
	if update.ReturnDateTime != nil {
		status.ReturnDateTime = *update.ReturnDateTime
	}
	if update.ReturnStaffID != nil {
		status.ReturnStaffID = *update.ReturnStaffID
	}
}

var _ domain.StatusRepository = (*statusRepositoryInMemory)(nil)
