package tranlog

import (
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

// Типы транзакций журнала продаж.
const (
	TypeSale       = "sale"
	TypeVoidSale   = "void_sale"
	TypeReturnSale = "return_sale"
	TypeVoidReturn = "void_return"
)

// ErrEventMalformed — событие не проходит валидацию и не должно
// доставляться повторно.
var ErrEventMalformed = errors.New("tranlog event is malformed")

// Envelope — конверт входящего события: `{"data": {...}}`.
type Envelope struct {
	Data TranlogEvent `json:"data"`
}

// TranlogEvent — событие журнала транзакций POS-терминала.
// Для void/return операций TargetTransactionNo указывает транзакцию,
// ПРОТИВ которой выполняется операция; TransactionNo — номер самой
// операции (нового чека).
type TranlogEvent struct {
	EventID             string `json:"event_id"`
	TenantID            string `json:"tenant_id"`
	StoreCode           string `json:"store_code"`
	TerminalNo          int    `json:"terminal_no"`
	TransactionNo       int    `json:"transaction_no"`
	TransactionType     string `json:"transaction_type"`
	TargetTransactionNo int    `json:"target_transaction_no,omitempty"`
	StaffID             string `json:"staff_id,omitempty"`
	BusinessDate        string `json:"business_date,omitempty"`
}

// Validate проверяет обязательные поля события.
// Отсутствие event_id — отдельная ошибка ErrEventIDRequired (спец-обработка
// в gate), остальные нарушения заворачиваются в ErrEventMalformed.
func (e TranlogEvent) Validate() error {
	if e.EventID == "" {
		return domain.ErrEventIDRequired
	}
	if e.TenantID == "" {
		return fmt.Errorf("%w: %v", ErrEventMalformed, domain.ErrTenantRequired)
	}
	if e.StoreCode == "" {
		return fmt.Errorf("%w: %v", ErrEventMalformed, domain.ErrStoreRequired)
	}
	if e.TerminalNo <= 0 {
		return fmt.Errorf("%w: %v", ErrEventMalformed, domain.ErrTerminalInvalid)
	}
	if e.TransactionNo <= 0 {
		return fmt.Errorf("%w: transaction_no must be greater than zero", ErrEventMalformed)
	}

	switch e.TransactionType {
	case TypeSale:
	case TypeVoidSale, TypeReturnSale, TypeVoidReturn:
		if e.TargetTransactionNo <= 0 {
			return fmt.Errorf("%w: target_transaction_no is required for %s", ErrEventMalformed, e.TransactionType)
		}
	default:
		return fmt.Errorf("%w: unknown transaction_type %q", ErrEventMalformed, e.TransactionType)
	}

	return nil
}

// TargetKey возвращает ключ транзакции, против которой выполняется операция.
func (e TranlogEvent) TargetKey() domain.TransactionKey {
	return domain.TransactionKey{
		TenantID:      e.TenantID,
		StoreCode:     e.StoreCode,
		TerminalNo:    e.TerminalNo,
		TransactionNo: e.TargetTransactionNo,
	}
}
