package domain

import (
	"fmt"
	"time"
)

// CartStatus описывает жизненный цикл корзины на терминале.
type CartStatus string

const (
	// CartStatusEnteringItem — кассир добавляет позиции в чек.
	CartStatusEnteringItem CartStatus = "entering-item"
	// CartStatusPaying — начат приём оплаты, позиции заморожены.
	CartStatusPaying CartStatus = "paying"
	// CartStatusCompleted — продажа завершена, корзина подлежит удалению.
	CartStatusCompleted CartStatus = "completed"
	// CartStatusCancelled — продажа прервана до завершения.
	CartStatusCancelled CartStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s CartStatus) Valid() bool {
	switch s {
	case CartStatusEnteringItem, CartStatusPaying, CartStatusCompleted, CartStatusCancelled:
		return true
	default:
		return false
	}
}

// CartKey — естественный ключ корзины в пределах арендатора.
type CartKey struct {
	TenantID   string
	StoreCode  string
	TerminalNo int
	CartID     string
}

// String возвращает ключ в виде, пригодном для key-value стора и логов.
func (k CartKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", k.TenantID, k.StoreCode, k.TerminalNo, k.CartID)
}

// CartLineItem представляет одну позицию чека.
type CartLineItem struct {
	LineNo      int
	ItemCode    string
	Description string
	Qty         int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	AmountMinor    int64
	CreatedAt      time.Time
}

// CartPayment представляет один принятый платёж по корзине.
type CartPayment struct {
	PaymentNo   int
	PaymentCode string
	AmountMinor int64
	DepositAt   time.Time
}

// Cart агрегирует состояние активной продажи на терминале.
// Корзина принадлежит создавшей её терминальной сессии и удаляется
// после финализации или отмены продажи.
type Cart struct {
	TenantID   string
	StoreCode  string
	TerminalNo int
	CartID     string

	Status        CartStatus
	LineItems     []CartLineItem
	Payments      []CartPayment
	SubtotalMinor int64
	TotalMinor    int64
	ReceiptNo     int

	// BusinessDate — операционный день магазина в формате YYYY-MM-DD.
	BusinessDate string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key возвращает естественный ключ корзины.
func (c Cart) Key() CartKey {
	return CartKey{
		TenantID:   c.TenantID,
		StoreCode:  c.StoreCode,
		TerminalNo: c.TerminalNo,
		CartID:     c.CartID,
	}
}

// ShardKey возвращает ключ шардирования (tenant, store, business date).
func (c Cart) ShardKey() string {
	return fmt.Sprintf("%s:%s:%s", c.TenantID, c.StoreCode, c.BusinessDate)
}

// ValidateInvariants проверяет базовые инварианты корзины и возвращает список замечаний.
func (c Cart) ValidateInvariants() []error {
	var errs []error

	if c.TenantID == "" {
		errs = append(errs, ErrTenantRequired)
	}
	if c.StoreCode == "" {
		errs = append(errs, ErrStoreRequired)
	}
	if c.TerminalNo <= 0 {
		errs = append(errs, ErrTerminalInvalid)
	}
	if c.CartID == "" {
		errs = append(errs, ErrCartIDRequired)
	}
	if !c.Status.Valid() {
		errs = append(errs, ErrCartStatusInvalid)
	}

	// Сверяем промежуточный итог с суммой позиций: qty * price.
	var calc int64
	for _, item := range c.LineItems {
		if item.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if len(c.LineItems) > 0 && calc != c.SubtotalMinor {
		errs = append(errs, ErrSubtotalMismatch)
	}

	return errs
}
