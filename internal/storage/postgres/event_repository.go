package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

type eventRepository struct {
	db *sql.DB
}

// NewProcessedEventRepository создаёт PostgreSQL-реализацию ProcessedEventRepository.
func NewProcessedEventRepository(store *Store) domain.ProcessedEventRepository {
	return &eventRepository{db: store.DB()}
}

func (r *eventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, domain.ErrEventIDRequired
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var one int
	err := r.db.QueryRowContext(queryCtx, `
		SELECT 1 FROM processed_events WHERE event_id = $1
	`, eventID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check processed event %s: %w", eventID, err)
}

func (r *eventRepository) Create(ctx context.Context, event domain.ProcessedEvent) error {
	event.EventID = strings.TrimSpace(event.EventID)
	if event.EventID == "" {
		return domain.ErrEventIDRequired
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(queryCtx, `
		INSERT INTO processed_events (event_id, tenant_id, source_topic, transaction_no, processed_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		event.EventID, event.TenantID, event.SourceTopic, event.TransactionNo, event.ProcessedAt,
	)
	if err != nil {
		if isWriteConflict(err) {
			return domain.ErrEventAlreadyProcessed
		}
		return fmt.Errorf("insert processed event %s: %w", event.EventID, err)
	}

	return nil
}

func (r *eventRepository) DeleteOlderThan(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	if limit > 0 {
		res, err = r.db.ExecContext(queryCtx, `
			DELETE FROM processed_events
			WHERE event_id IN (
				SELECT event_id
				FROM processed_events
				WHERE processed_at < $1
				ORDER BY processed_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(queryCtx, `
			DELETE FROM processed_events
			WHERE processed_at < $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete processed events: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("processed events rows affected: %w", err)
	}

	return int(affected), nil
}

var _ domain.ProcessedEventRepository = (*eventRepository)(nil)
