package service

import (
	"context"
	"errors"
	"testing"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsAsync(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(repo, zerolog.Nop())

	adminID := uuid.New()
	done := make(chan struct{})
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			defer close(done)
			assert.Equal(t, domain.AuditActionAdminFund, entry.Action)
			assert.Equal(t, &adminID, entry.ActorID)
			assert.NotEqual(t, uuid.Nil, entry.ID)
			assert.False(t, entry.CreatedAt.IsZero())
			return nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Log(ctx, &domain.AuditLog{
		ActorID:      &adminID,
		Action:       domain.AuditActionAdminFund,
		ResourceType: "wallet",
		ResourceID:   uuid.NewString(),
		IPAddress:    "127.0.0.1",
	})
	cancel()

	<-done
	svc.Wait()
}

func TestAuditService_Log_RepoErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(repo, zerolog.Nop())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionLogin})
	svc.Wait()
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, zerolog.Nop())
	svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionRegister})
	svc.Wait()
}

func TestAuditService_Wait_CoversEveryEntry(t *testing.T) {
	s := newStore(t)
	svc := NewAuditService(s.audits, zerolog.Nop())

	for i := 0; i < 20; i++ {
		svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionLogin, ResourceType: "user"})
	}
	svc.Wait()
	require.Len(t, s.audits.Entries(), 20)
}

func TestAuditService_Log_TakesIPFromContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(repo, zerolog.Nop())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			assert.Equal(t, "10.0.0.7", entry.IPAddress)
			return nil
		},
	)

	svc.Log(domain.WithClientIP(context.Background(), "10.0.0.7"), &domain.AuditLog{Action: domain.AuditActionRegister})
	svc.Wait()
}
