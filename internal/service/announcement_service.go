package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	liveAnnouncementLimit  = 30
	adminAnnouncementLimit = 300

	minTitleLen, maxTitleLen     = 2, 120
	minMessageLen, maxMessageLen = 6, 2000
)

// AnnouncementServiceImpl implements ports.AnnouncementService.
type AnnouncementServiceImpl struct {
	repo     ports.AnnouncementRepository
	auditSvc ports.AuditService
	now      func() time.Time
	log      zerolog.Logger
}

// NewAnnouncementService creates a new AnnouncementServiceImpl.
func NewAnnouncementService(repo ports.AnnouncementRepository, auditSvc ports.AuditService, log zerolog.Logger) *AnnouncementServiceImpl {
	return &AnnouncementServiceImpl{
		repo:     repo,
		auditSvc: auditSvc,
		now:      time.Now,
		log:      log,
	}
}

// Live returns what signed-in users should see right now, newest first.
func (s *AnnouncementServiceImpl) Live(ctx context.Context) ([]domain.Announcement, error) {
	list, err := s.repo.ListLive(ctx, s.now().UTC(), liveAnnouncementLimit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list live announcements: %w", err))
	}
	return nonNil(list), nil
}

// List returns every announcement, including inactive and expired ones.
func (s *AnnouncementServiceImpl) List(ctx context.Context) ([]domain.Announcement, error) {
	list, err := s.repo.List(ctx, adminAnnouncementLimit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list announcements: %w", err))
	}
	return nonNil(list), nil
}

func (s *AnnouncementServiceImpl) Create(ctx context.Context, admin domain.Actor, in ports.AnnouncementInput) (*domain.Announcement, error) {
	level, err := domain.ParseAnnouncementLevel(in.Level)
	if err != nil {
		return nil, apperror.Validation("Invalid announcement level")
	}

	now := s.now().UTC()
	a := &domain.Announcement{
		Title:          strings.TrimSpace(in.Title),
		Message:        strings.TrimSpace(in.Message),
		Level:          level,
		IsActive:       in.IsActive,
		StartsAt:       utcPtr(in.StartsAt),
		EndsAt:         utcPtr(in.EndsAt),
		CreatedByEmail: admin.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validateAnnouncement(a); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create announcement: %w", err))
	}

	s.audit(ctx, admin, domain.AuditActionAnnouncementCreate, a)
	s.log.Info().Int64("announcement_id", a.ID).Str("level", string(a.Level)).Msg("announcement created")
	return a, nil
}

// Update applies patch and re-validates the resulting window.
func (s *AnnouncementServiceImpl) Update(ctx context.Context, admin domain.Actor, id int64, patch ports.AnnouncementPatch) (*domain.Announcement, error) {
	if patch.Empty() {
		return nil, apperror.Validation("Nothing to update")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get announcement %d: %w", id, err))
	}
	if a == nil {
		return nil, apperror.ErrAnnouncementNotFound()
	}

	if patch.Title != nil {
		a.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Message != nil {
		a.Message = strings.TrimSpace(*patch.Message)
	}
	if patch.Level != nil {
		if a.Level, err = domain.ParseAnnouncementLevel(*patch.Level); err != nil {
			return nil, apperror.Validation("Invalid announcement level")
		}
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}
	if patch.StartsAtSet {
		a.StartsAt = utcPtr(patch.StartsAt)
	}
	if patch.EndsAtSet {
		a.EndsAt = utcPtr(patch.EndsAt)
	}
	if err := validateAnnouncement(a); err != nil {
		return nil, err
	}

	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update announcement: %w", err))
	}

	s.audit(ctx, admin, domain.AuditActionAnnouncementUpdate, a)
	return a, nil
}

func (s *AnnouncementServiceImpl) audit(ctx context.Context, admin domain.Actor, action domain.AuditAction, a *domain.Announcement) {
	adminID := admin.UserID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ActorID:      &adminID,
		Action:       action,
		ResourceType: "announcement",
		ResourceID:   strconv.FormatInt(a.ID, 10),
		Details:      fmt.Sprintf(`{"level":%q,"is_active":%t}`, a.Level, a.IsActive),
		IPAddress:    admin.IP,
	})
}

func validateAnnouncement(a *domain.Announcement) error {
	if n := utf8.RuneCountInString(a.Title); n < minTitleLen || n > maxTitleLen {
		return apperror.Validation(fmt.Sprintf("title must be %d-%d characters", minTitleLen, maxTitleLen))
	}
	if n := utf8.RuneCountInString(a.Message); n < minMessageLen || n > maxMessageLen {
		return apperror.Validation(fmt.Sprintf("message must be %d-%d characters", minMessageLen, maxMessageLen))
	}
	if !a.ValidWindow() {
		return apperror.Validation("ends_at must be after starts_at")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(list []domain.Announcement) []domain.Announcement {
	if list == nil {
		return []domain.Announcement{}
	}
	return list
}
