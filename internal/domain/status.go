package domain

import (
	"fmt"
	"time"
)

// TransactionKey — естественный ключ записи статуса транзакции.
type TransactionKey struct {
	TenantID      string
	StoreCode     string
	TerminalNo    int
	TransactionNo int
}

// String возвращает ключ в виде, пригодном для логов и диагностики.
func (k TransactionKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%d", k.TenantID, k.StoreCode, k.TerminalNo, k.TransactionNo)
}

// TransactionStatus хранит флаги отмены и возврата завершённой транзакции.
// Запись принадлежит исходной транзакции: операция void/return выполняется
// ПРОТИВ исходного номера и никогда не помечает саму себя.
// Запись создаётся лениво при первом void/return и никогда не удаляется,
// только сбрасываются отдельные поля.
type TransactionStatus struct {
	TenantID      string
	StoreCode     string
	TerminalNo    int
	TransactionNo int

	IsVoided          bool
	VoidTransactionNo int
	VoidDateTime      time.Time
	VoidStaffID       string

	IsRefunded          bool
	ReturnTransactionNo int
	ReturnDateTime      time.Time
	ReturnStaffID       string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key возвращает естественный ключ записи.
func (s *TransactionStatus) Key() TransactionKey {
	return TransactionKey{
		TenantID:      s.TenantID,
		StoreCode:     s.StoreCode,
		TerminalNo:    s.TerminalNo,
		TransactionNo: s.TransactionNo,
	}
}

// Clean сообщает, что транзакция не отменена и не возвращена.
func (s *TransactionStatus) Clean() bool {
	return !s.IsVoided && !s.IsRefunded
}

// ApplyVoid помечает транзакцию отменённой. Поля возврата не трогаем:
// отмена продажи не затрагивает чужое состояние возврата.
func (s *TransactionStatus) ApplyVoid(voidTxNo int, staffID string, now time.Time) error {
	if s.IsVoided {
		return ErrAlreadyVoided
	}
	s.IsVoided = true
	s.VoidTransactionNo = voidTxNo
	s.VoidDateTime = now
	s.VoidStaffID = staffID
	s.UpdatedAt = now
	return nil
}

// ApplyRefund помечает транзакцию возвращённой. Отменённую продажу
// вернуть нельзя.
func (s *TransactionStatus) ApplyRefund(returnTxNo int, staffID string, now time.Time) error {
	if s.IsRefunded {
		return ErrAlreadyRefunded
	}
	if s.IsVoided {
		return ErrAlreadyVoided
	}
	s.IsRefunded = true
	s.ReturnTransactionNo = returnTxNo
	s.ReturnDateTime = now
	s.ReturnStaffID = staffID
	s.UpdatedAt = now
	return nil
}

// ClearRefund сбрасывает поля возврата, поля отмены остаются без изменений.
func (s *TransactionStatus) ClearRefund(now time.Time) {
	s.IsRefunded = false
	s.ReturnTransactionNo = 0
	s.ReturnDateTime = time.Time{}
	s.ReturnStaffID = ""
	s.UpdatedAt = now
}
