package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

// eventRepositoryInMemory — in-memory реализация ProcessedEventRepository.
type eventRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.ProcessedEvent
}

// NewProcessedEventRepository возвращает in-memory хранилище маркеров событий.
func NewProcessedEventRepository() domain.ProcessedEventRepository {
	return &eventRepositoryInMemory{
		items: make(map[string]domain.ProcessedEvent),
	}
}

// Exists проверяет наличие маркера по идентификатору события.
func (r *eventRepositoryInMemory) Exists(_ context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, domain.ErrEventIDRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[eventID]
	return ok, nil
}

// Create сохраняет маркер; повторная вставка — ErrEventAlreadyProcessed.
func (r *eventRepositoryInMemory) Create(_ context.Context, event domain.ProcessedEvent) error {
	event.EventID = strings.TrimSpace(event.EventID)
	if event.EventID == "" {
		return domain.ErrEventIDRequired
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[event.EventID]; exists {
		return domain.ErrEventAlreadyProcessed
	}
	r.items[event.EventID] = event
	return nil
}

// DeleteOlderThan удаляет маркеры старше before порциями limit (если >0).
func (r *eventRepositoryInMemory) DeleteOlderThan(_ context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, event := range r.items {
		if !event.ProcessedAt.Before(before) {
			continue
		}

		delete(r.items, id)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

var _ domain.ProcessedEventRepository = (*eventRepositoryInMemory)(nil)
