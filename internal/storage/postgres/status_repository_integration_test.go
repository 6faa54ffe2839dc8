package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

func integrationStatus(txNo int) domain.TransactionStatus {
	return domain.TransactionStatus{
		TenantID:      "tenant-it",
		StoreCode:     "5825",
		TerminalNo:    9,
		TransactionNo: txNo,
	}
}

func TestStatusRepository_PostgresCreateGetUpdate(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStatusRepository(store)
	ctx := context.Background()

	status := integrationStatus(100)
	require.NoError(t, repo.Create(ctx, status))

	got, err := repo.Get(ctx, status.Key())
	require.NoError(t, err)
	require.False(t, got.IsVoided)
	require.False(t, got.IsRefunded)
	require.EqualValues(t, 0, got.Version)

	voided := true
	voidTxNo := 300
	staff := "S1"
	now := time.Now().UTC().Round(time.Millisecond)
	err = repo.UpdateFields(ctx, status.Key(), got.Version, domain.StatusUpdate{
		IsVoided:          &voided,
		VoidTransactionNo: &voidTxNo,
		VoidDateTime:      &now,
		VoidStaffID:       &staff,
	})
	require.NoError(t, err)

	got, err = repo.Get(ctx, status.Key())
	require.NoError(t, err)
	require.True(t, got.IsVoided)
	require.Equal(t, 300, got.VoidTransactionNo)
	require.Equal(t, "S1", got.VoidStaffID)
	require.EqualValues(t, 1, got.Version)
	// Поля возврата не тронуты.
	require.False(t, got.IsRefunded)
	require.Zero(t, got.ReturnTransactionNo)
}

func TestStatusRepository_PostgresStaleVersionConflict(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStatusRepository(store)
	ctx := context.Background()

	status := integrationStatus(101)
	require.NoError(t, repo.Create(ctx, status))

	refunded := true
	returnTxNo := 200
	err := repo.UpdateFields(ctx, status.Key(), 7, domain.StatusUpdate{
		IsRefunded:          &refunded,
		ReturnTransactionNo: &returnTxNo,
	})
	require.ErrorIs(t, err, domain.ErrWriteConflict)
}

func TestStatusRepository_PostgresClearRefundFields(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStatusRepository(store)
	ctx := context.Background()

	status := integrationStatus(102)
	now := time.Now().UTC()
	status.IsRefunded = true
	status.ReturnTransactionNo = 200
	status.ReturnDateTime = now
	status.ReturnStaffID = "S1"
	require.NoError(t, repo.Create(ctx, status))

	cleared := false
	zeroTx := 0
	zeroTime := time.Time{}
	zeroStaff := ""
	err := repo.UpdateFields(ctx, status.Key(), 0, domain.StatusUpdate{
		IsRefunded:          &cleared,
		ReturnTransactionNo: &zeroTx,
		ReturnDateTime:      &zeroTime,
		ReturnStaffID:       &zeroStaff,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, status.Key())
	require.NoError(t, err)
	require.False(t, got.IsRefunded)
	require.Zero(t, got.ReturnTransactionNo)
	require.True(t, got.ReturnDateTime.IsZero())
	require.Empty(t, got.ReturnStaffID)
}

func TestStatusRepository_PostgresGetMany(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStatusRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, integrationStatus(110)))
	require.NoError(t, repo.Create(ctx, integrationStatus(111)))

	result, err := repo.GetMany(ctx, "tenant-it", "5825", 9, []int{110, 111, 112})
	require.NoError(t, err)
	require.Len(t, result, 2)
	_, ok := result[112]
	require.False(t, ok)
}
