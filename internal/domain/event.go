package domain

import "time"

// ProcessedEvent — маркер успешно применённого события.
// Используется только для проверки существования: запись создаётся один раз
// и никогда не обновляется. Устаревшие маркеры удаляет воркер очистки.
type ProcessedEvent struct {
	EventID       string
	TenantID      string
	SourceTopic   string
	TransactionNo int
	ProcessedAt   time.Time
}
