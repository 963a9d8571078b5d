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

func newTestUser() *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        "Ada@Example.com",
		FullName:     "Ada Obi",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         domain.RoleReseller,
		IsActive:     true,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}
}

func userRow(u *domain.User, role string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "full_name", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(u.ID, u.Email, u.FullName, u.PasswordHash, role, u.IsActive, u.CreatedAt, u.UpdatedAt)
}

func TestUserRepo_Create_LowercasesEmail(t *testing.T) {
	mock := newMock(t)
	u := newTestUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, "ada@example.com", u.FullName, u.PasswordHash, "reseller", true, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewUserRepo(mock).Create(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	mock := newMock(t)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("ada@example.com").
		WillReturnRows(userRow(u, "reseller"))

	got, err := NewUserRepo(mock).GetByEmail(context.Background(), "  ADA@example.com ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleReseller, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	got, err := NewUserRepo(mock).GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_GetByID_UnknownRole(t *testing.T) {
	mock := newMock(t)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(u.ID).
		WillReturnRows(userRow(u, "superuser"))

	_, err := NewUserRepo(mock).GetByID(context.Background(), u.ID)
	assert.ErrorContains(t, err, "unknown role")
}

func TestUserRepo_SetActive(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE users SET is_active").
		WithArgs(false, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET is_active").
		WithArgs(true, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewUserRepo(mock)
	assert.NoError(t, repo.SetActive(context.Background(), id, false))
	assert.ErrorContains(t, repo.SetActive(context.Background(), id, true), "user not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Count(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

	n, err := NewUserRepo(mock).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
