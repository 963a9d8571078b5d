package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const announcementColumns = `id, title, message, level, is_active, starts_at, ends_at, created_by_email, created_at, updated_at`

// AnnouncementRepo implements ports.AnnouncementRepository.
type AnnouncementRepo struct {
	pool Pool
}

func NewAnnouncementRepo(pool Pool) *AnnouncementRepo {
	return &AnnouncementRepo{pool: pool}
}

func (r *AnnouncementRepo) Create(ctx context.Context, a *domain.Announcement) error {
	query := `INSERT INTO broadcast_announcements
		(title, message, level, is_active, starts_at, ends_at, created_by_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		a.Title, a.Message, string(a.Level), a.IsActive, a.StartsAt, a.EndsAt,
		a.CreatedByEmail, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

func (r *AnnouncementRepo) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM broadcast_announcements WHERE id = $1`
	return scanAnnouncement(r.pool.QueryRow(ctx, query, id))
}

func (r *AnnouncementRepo) Update(ctx context.Context, a *domain.Announcement) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE broadcast_announcements
		 SET title = $2, message = $3, level = $4, is_active = $5, starts_at = $6, ends_at = $7, updated_at = $8
		 WHERE id = $1`,
		a.ID, a.Title, a.Message, string(a.Level), a.IsActive, a.StartsAt, a.EndsAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update announcement %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update announcement %d: not found", a.ID)
	}
	return nil
}

func (r *AnnouncementRepo) ListLive(ctx context.Context, now time.Time, limit int) ([]domain.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM broadcast_announcements
		WHERE is_active
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at >= $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	return r.list(ctx, query, now, limit)
}

func (r *AnnouncementRepo) List(ctx context.Context, limit int) ([]domain.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM broadcast_announcements
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *AnnouncementRepo) list(ctx context.Context, query string, args ...any) ([]domain.Announcement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcement rows: %w", err)
	}
	return out, nil
}

func scanAnnouncement(row rowScanner) (*domain.Announcement, error) {
	var (
		a     domain.Announcement
		level string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Message, &level, &a.IsActive, &a.StartsAt, &a.EndsAt,
		&a.CreatedByEmail, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan announcement: %w", err)
	}
	if a.Level, err = domain.ParseAnnouncementLevel(level); err != nil {
		return nil, fmt.Errorf("scan announcement %d: %w", a.ID, err)
	}
	return &a, nil
}
