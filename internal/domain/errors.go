package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора арендатора.
	ErrTenantRequired = errors.New("tenant_id is required")
	// Ошибка отсутствующего кода магазина.
	ErrStoreRequired = errors.New("store_code is required")
	// Ошибка некорректного номера терминала (<= 0).
	ErrTerminalInvalid = errors.New("terminal_no must be greater than zero")
	// Ошибка отсутствующего идентификатора корзины.
	ErrCartIDRequired = errors.New("cart_id is required")
	// Ошибка неизвестного статуса корзины.
	ErrCartStatusInvalid = errors.New("cart status is invalid")
	// Ошибка при некорректном количестве в позиции чека (<= 0).
	ErrLineQtyInvalid = errors.New("line item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line item price must be non-negative")
	// Ошибка несоответствия промежуточного итога и сумм позиций.
	ErrSubtotalMismatch = errors.New("cart subtotal does not match line items sum")

	// ErrCartNotFound возвращается, если корзина не найдена ни в одном из ярусов хранения.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartAlreadyExists возвращается при попытке создать корзину с занятым ключом.
	ErrCartAlreadyExists = errors.New("cart already exists")
	// ErrCartUnavailable — отказ обоих ярусов хранения (кэш и durable store).
	ErrCartUnavailable = errors.New("cart storage unavailable in both tiers")

	// ErrAlreadyVoided — бизнес-ошибка: транзакция уже отменена.
	ErrAlreadyVoided = errors.New("transaction already voided")
	// ErrAlreadyRefunded — бизнес-ошибка: по транзакции уже оформлен возврат.
	ErrAlreadyRefunded = errors.New("transaction already refunded")
	// ErrStatusNotFound возвращается, если записи статуса транзакции нет.
	ErrStatusNotFound = errors.New("transaction status not found")
	// ErrWriteConflict сигнализирует о конфликте конкурентной записи; операция повторяется.
	ErrWriteConflict = errors.New("storage write conflict")

	// ErrEventIDRequired — событие без идентификатора; не подлежит повторной доставке.
	ErrEventIDRequired = errors.New("event_id is required")
	// ErrEventAlreadyProcessed — маркер события уже сохранён.
	ErrEventAlreadyProcessed = errors.New("event already processed")

	// ErrCacheMiss — ключ отсутствует в state store (это не сбой яруса).
	ErrCacheMiss = errors.New("state store key not found")
	// ErrCacheUnavailable — сбой обращения к state store (таймаут, не-2xx ответ).
	ErrCacheUnavailable = errors.New("state store unavailable")
)

// IsWriteConflict проверяет, является ли ошибка конфликтом конкурентной записи.
func IsWriteConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}

// IsBusinessError отличает нарушение бизнес-предусловия от инфраструктурного сбоя.
// Такие ошибки возвращаются вызывающей стороне сразу и не повторяются.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrAlreadyVoided) ||
		errors.Is(err, ErrAlreadyRefunded) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrEventIDRequired)
}
