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

const (
	opTimeout = 5 * time.Second
)

type statusRepository struct {
	db *sql.DB
}

// NewStatusRepository создаёт PostgreSQL-реализацию StatusRepository.
func NewStatusRepository(store *Store) domain.StatusRepository {
	return &statusRepository{db: store.DB()}
}

func (r *statusRepository) Get(ctx context.Context, key domain.TransactionKey) (domain.TransactionStatus, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(queryCtx, `
		SELECT tenant_id, store_code, terminal_no, transaction_no,
		       is_voided, void_transaction_no, void_date_time, void_staff_id,
		       is_refunded, return_transaction_no, return_date_time, return_staff_id,
		       version, created_at, updated_at
		FROM transaction_statuses
		WHERE tenant_id = $1 AND store_code = $2 AND terminal_no = $3 AND transaction_no = $4
	`, key.TenantID, key.StoreCode, key.TerminalNo, key.TransactionNo)

	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransactionStatus{}, domain.ErrStatusNotFound
		}
		return domain.TransactionStatus{}, fmt.Errorf("select transaction status %s: %w", key, err)
	}

	return status, nil
}

func (r *statusRepository) GetMany(ctx context.Context, tenantID, storeCode string, terminalNo int, transactionNos []int) (map[int]domain.TransactionStatus, error) {
	result := make(map[int]domain.TransactionStatus, len(transactionNos))
	if len(transactionNos) == 0 {
		return result, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Плейсхолдеры собираются динамически: $4, $5, ...
	placeholders := make([]string, 0, len(transactionNos))
	args := []any{tenantID, storeCode, terminalNo}
	for i, txNo := range transactionNos {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+4))
		args = append(args, txNo)
	}

	rows, err := r.db.QueryContext(queryCtx, fmt.Sprintf(`
		SELECT tenant_id, store_code, terminal_no, transaction_no,
		       is_voided, void_transaction_no, void_date_time, void_staff_id,
		       is_refunded, return_transaction_no, return_date_time, return_staff_id,
		       version, created_at, updated_at
		FROM transaction_statuses
		WHERE tenant_id = $1 AND store_code = $2 AND terminal_no = $3
		  AND transaction_no IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("select transaction statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction status row: %w", err)
		}
		result[status.TransactionNo] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction status rows: %w", err)
	}

	return result, nil
}

func (r *statusRepository) FindByReturnTransactionNo(ctx context.Context, tenantID, storeCode string, returnTxNo int) (domain.TransactionStatus, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(queryCtx, `
		SELECT tenant_id, store_code, terminal_no, transaction_no,
		       is_voided, void_transaction_no, void_date_time, void_staff_id,
		       is_refunded, return_transaction_no, return_date_time, return_staff_id,
		       version, created_at, updated_at
		FROM transaction_statuses
		WHERE tenant_id = $1 AND store_code = $2
		  AND is_refunded AND return_transaction_no = $3
	`, tenantID, storeCode, returnTxNo)

	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransactionStatus{}, domain.ErrStatusNotFound
		}
		return domain.TransactionStatus{}, fmt.Errorf("select transaction status by return %d: %w", returnTxNo, err)
	}

	return status, nil
}

func (r *statusRepository) Create(ctx context.Context, status domain.TransactionStatus) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if status.CreatedAt.IsZero() {
		status.CreatedAt = now
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = now
	}

	_, err := r.db.ExecContext(queryCtx, `
		INSERT INTO transaction_statuses (
			tenant_id, store_code, terminal_no, transaction_no,
			is_voided, void_transaction_no, void_date_time, void_staff_id,
			is_refunded, return_transaction_no, return_date_time, return_staff_id,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		status.TenantID, status.StoreCode, status.TerminalNo, status.TransactionNo,
		status.IsVoided, nullableInt(status.VoidTransactionNo), nullableTime(status.VoidDateTime), nullableString(status.VoidStaffID),
		status.IsRefunded, nullableInt(status.ReturnTransactionNo), nullableTime(status.ReturnDateTime), nullableString(status.ReturnStaffID),
		status.Version, status.CreatedAt, status.UpdatedAt,
	)
	if err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("insert transaction status %s: %w", status.Key(), domain.ErrWriteConflict)
		}
		return fmt.Errorf("insert transaction status %s: %w", status.Key(), err)
	}

	return nil
}

func (r *statusRepository) UpdateFields(ctx context.Context, key domain.TransactionKey, version int64, update domain.StatusUpdate) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// COALESCE с NULL-аргументами сохраняет нетронутые поля.
	res, err := r.db.ExecContext(queryCtx, `
		UPDATE transaction_statuses
		SET is_voided             = COALESCE($1::boolean, is_voided),
		    void_transaction_no   = CASE WHEN $9::boolean THEN $2::int ELSE void_transaction_no END,
		    void_date_time        = CASE WHEN $9::boolean THEN $3::timestamptz ELSE void_date_time END,
		    void_staff_id         = CASE WHEN $9::boolean THEN $4::text ELSE void_staff_id END,
		    is_refunded           = COALESCE($5::boolean, is_refunded),
		    return_transaction_no = CASE WHEN $10::boolean THEN $6::int ELSE return_transaction_no END,
		    return_date_time      = CASE WHEN $10::boolean THEN $7::timestamptz ELSE return_date_time END,
		    return_staff_id       = CASE WHEN $10::boolean THEN $8::text ELSE return_staff_id END,
		    version               = version + 1,
		    updated_at            = NOW()
		WHERE tenant_id = $11 AND store_code = $12 AND terminal_no = $13 AND transaction_no = $14
		  AND version = $15
	`,
		update.IsVoided,
		ptrNullableInt(update.VoidTransactionNo), ptrNullableTime(update.VoidDateTime), ptrNullableString(update.VoidStaffID),
		update.IsRefunded,
		ptrNullableInt(update.ReturnTransactionNo), ptrNullableTime(update.ReturnDateTime), ptrNullableString(update.ReturnStaffID),
		update.VoidTransactionNo != nil,
		update.ReturnTransactionNo != nil,
		key.TenantID, key.StoreCode, key.TerminalNo, key.TransactionNo,
		version,
	)
	if err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("update transaction status %s: %w", key, domain.ErrWriteConflict)
		}
		return fmt.Errorf("update transaction status %s: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transaction status rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.statusExists(queryCtx, key)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrStatusNotFound
		}
		return fmt.Errorf("update transaction status %s (stale version %d): %w", key, version, domain.ErrWriteConflict)
	}

	return nil
}

func (r *statusRepository) statusExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM transaction_statuses
		WHERE tenant_id = $1 AND store_code = $2 AND terminal_no = $3 AND transaction_no = $4
	`, key.TenantID, key.StoreCode, key.TerminalNo, key.TransactionNo).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check transaction status exists: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (domain.TransactionStatus, error) {
	var (
		status      domain.TransactionStatus
		voidTxNo    sql.NullInt64
		voidTime    sql.NullTime
		voidStaff   sql.NullString
		returnTxNo  sql.NullInt64
		returnTime  sql.NullTime
		returnStaff sql.NullString
	)

	err := row.Scan(
		&status.TenantID, &status.StoreCode, &status.TerminalNo, &status.TransactionNo,
		&status.IsVoided, &voidTxNo, &voidTime, &voidStaff,
		&status.IsRefunded, &returnTxNo, &returnTime, &returnStaff,
		&status.Version, &status.CreatedAt, &status.UpdatedAt,
	)
	if err != nil {
		return domain.TransactionStatus{}, err
	}

	if voidTxNo.Valid {
		status.VoidTransactionNo = int(voidTxNo.Int64)
	}
	if voidTime.Valid {
		status.VoidDateTime = voidTime.Time
	}
	if voidStaff.Valid {
		status.VoidStaffID = voidStaff.String
	}
	if returnTxNo.Valid {
		status.ReturnTransactionNo = int(returnTxNo.Int64)
	}
	if returnTime.Valid {
		status.ReturnDateTime = returnTime.Time
	}
	if returnStaff.Valid {
		status.ReturnStaffID = returnStaff.String
	}

	return status, nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// Указатель на нулевое значение означает «очистить поле до NULL».
func ptrNullableInt(v *int) any {
	if v == nil || *v == 0 {
		return nil
	}
	return *v
}

func ptrNullableTime(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return *v
}

func ptrNullableString(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var _ domain.StatusRepository = (*statusRepository)(nil)
