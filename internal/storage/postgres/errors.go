package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Классы ошибок PostgreSQL, трактуемые как конфликт конкурентной записи:
// 23505 unique_violation, 40001 serialization_failure, 40P01 deadlock_detected.
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return true
		}
	}
	return false
}
