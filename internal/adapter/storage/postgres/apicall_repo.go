package postgres

import (
	"context"
	"fmt"

	"vtu-backend/internal/core/domain"
)

// APICallLogRepo implements ports.APICallLogRepository.
type APICallLogRepo struct {
	pool Pool
}

func NewAPICallLogRepo(pool Pool) *APICallLogRepo {
	return &APICallLogRepo{pool: pool}
}

func (r *APICallLogRepo) Create(ctx context.Context, e *domain.APICallLog) error {
	query := `INSERT INTO api_call_logs (id, user_id, service, endpoint, status_code, duration_ms, reference, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Service, e.Endpoint, e.StatusCode,
		e.DurationMS, e.Reference, e.Success, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api call log: %w", err)
	}
	return nil
}

// CountByOutcome feeds the provider success rate on the analytics view.
func (r *APICallLogRepo) CountByOutcome(ctx context.Context) (int64, int64, error) {
	query := `SELECT COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success) FROM api_call_logs`

	var success, failed int64
	if err := r.pool.QueryRow(ctx, query).Scan(&success, &failed); err != nil {
		return 0, 0, fmt.Errorf("count api calls: %w", err)
	}
	return success, failed, nil
}
