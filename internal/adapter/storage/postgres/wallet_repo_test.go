package postgres

import (
	"context"
	"testing"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Balance:   dec("1500.00"),
		CreatedAt: now(),
		UpdatedAt: now(),
	}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "balance", "is_locked", "created_at", "updated_at"}).
		AddRow(w.ID, w.UserID, w.Balance, w.IsLocked, w.CreatedAt, w.UpdatedAt)
}

func beginTx(t *testing.T, mock pgxmock.PgxPoolIface) pgx.Tx {
	t.Helper()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestWalletRepo_Create(t *testing.T) {
	mock := newMock(t)
	w := newTestWallet()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.UserID, w.Balance, false, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx := beginTx(t, mock)
	require.NoError(t, NewWalletRepo(mock).Create(context.Background(), tx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID(t *testing.T) {
	mock := newMock(t)
	w := newTestWallet()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(w.UserID).
		WillReturnRows(walletRow(w))

	got, err := NewWalletRepo(mock).GetByUserID(context.Background(), w.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Balance.Equal(dec("1500")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID_NotFound(t *testing.T) {
	mock := newMock(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	got, err := NewWalletRepo(mock).GetByUserID(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWalletRepo_GetByUserIDForUpdate(t *testing.T) {
	mock := newMock(t)
	w := newTestWallet()
	w.IsLocked = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id .+ FOR UPDATE").
		WithArgs(w.UserID).
		WillReturnRows(walletRow(w))

	tx := beginTx(t, mock)
	got, err := NewWalletRepo(mock).GetByUserIDForUpdate(context.Background(), tx, w.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance(t *testing.T) {
	mock := newMock(t)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(dec("1071.00"), pgxmock.AnyArg(), walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx := beginTx(t, mock)
	require.NoError(t, NewWalletRepo(mock).UpdateBalance(context.Background(), tx, walletID, dec("1071.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance_NotFound(t *testing.T) {
	mock := newMock(t)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx := beginTx(t, mock)
	err := NewWalletRepo(mock).UpdateBalance(context.Background(), tx, walletID, dec("10.00"))
	assert.ErrorContains(t, err, "wallet not found")
}

func TestWalletRepo_SetLocked(t *testing.T) {
	mock := newMock(t)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET is_locked").
		WithArgs(true, pgxmock.AnyArg(), walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx := beginTx(t, mock)
	require.NoError(t, NewWalletRepo(mock).SetLocked(context.Background(), tx, walletID, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}
