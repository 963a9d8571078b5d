package postgres

import (
	"context"
	"errors"
	"testing"

	"vtu-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock := newMock(t)
	actor := uuid.New()
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      &actor,
		Action:       domain.AuditActionPricingUpsert,
		ResourceType: "pricing_rule",
		ResourceID:   "mtn:user",
		Details:      `{"margin":"20"}`,
		IPAddress:    "10.0.0.4",
		CreatedAt:    now(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, &actor, "PRICING_UPSERT", "pricing_rule", "mtn:user",
			`{"margin":"20"}`, "10.0.0.4", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAuditRepo(mock).Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_EmptyDetailsStoredAsNull(t *testing.T) {
	mock := newMock(t)
	entry := &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionLogin, ResourceType: "user", CreatedAt: now()}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.ActorID, "LOGIN", "user", "", nil, "", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAuditRepo(mock).Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPICallLogRepo_Create(t *testing.T) {
	mock := newMock(t)
	userID := uuid.New()
	entry := &domain.APICallLog{
		ID:         uuid.New(),
		UserID:     &userID,
		Service:    "amigo",
		Endpoint:   "/data/",
		StatusCode: 200,
		DurationMS: 840,
		Reference:  "DATA_0123456789abcdef",
		Success:    true,
		CreatedAt:  now(),
	}

	mock.ExpectExec("INSERT INTO api_call_logs").
		WithArgs(entry.ID, &userID, "amigo", "/data/", 200, int64(840), entry.Reference, true, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAPICallLogRepo(mock).Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPICallLogRepo_CountByOutcome(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT.+ FROM api_call_logs").
		WillReturnRows(pgxmock.NewRows([]string{"success", "failed"}).AddRow(int64(90), int64(10)))

	ok, failed, err := NewAPICallLogRepo(mock).CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(90), ok)
	assert.Equal(t, int64(10), failed)
}

func TestAPICallLogRepo_Create_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("INSERT INTO api_call_logs").WillReturnError(errors.New("disk full"))

	err := NewAPICallLogRepo(mock).Create(context.Background(), &domain.APICallLog{ID: uuid.New()})
	assert.ErrorContains(t, err, "insert api call log")
}
