package postgres

import (
	"context"
	"errors"
	"fmt"

	"vtu-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const planColumns = `id, network, plan_code, plan_name, data_size, validity, base_price, is_active, created_at, updated_at`

// PlanRepo implements ports.PlanRepository.
type PlanRepo struct {
	pool Pool
}

func NewPlanRepo(pool Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) GetByCode(ctx context.Context, planCode string) (*domain.DataPlan, error) {
	query := `SELECT ` + planColumns + ` FROM data_plans WHERE plan_code = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, planCode))
}

// FindBySuffix matches active plans by the provider code after the network prefix.
func (r *PlanRepo) FindBySuffix(ctx context.Context, code string) ([]domain.DataPlan, error) {
	query := `SELECT ` + planColumns + ` FROM data_plans
		WHERE is_active AND split_part(plan_code, ':', 2) = $1 ORDER BY plan_code`
	return r.list(ctx, query, code)
}

func (r *PlanRepo) ListActive(ctx context.Context) ([]domain.DataPlan, error) {
	query := `SELECT ` + planColumns + ` FROM data_plans
		WHERE is_active ORDER BY network, base_price, plan_code`
	return r.list(ctx, query)
}

// Upsert inserts a plan or refreshes an existing one keyed by plan_code.
// created is true when a new row was inserted (xmax is zero only for fresh tuples).
func (r *PlanRepo) Upsert(ctx context.Context, p *domain.DataPlan) (bool, error) {
	query := `INSERT INTO data_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (plan_code) DO UPDATE SET
			network = EXCLUDED.network,
			plan_name = EXCLUDED.plan_name,
			data_size = EXCLUDED.data_size,
			validity = EXCLUDED.validity,
			base_price = EXCLUDED.base_price,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0)`

	var created bool
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Network, p.PlanCode, p.PlanName, p.DataSize, p.Validity,
		domain.Money(p.BasePrice), p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert plan %s: %w", p.PlanCode, err)
	}
	return created, nil
}

func (r *PlanRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM data_plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}

func (r *PlanRepo) list(ctx context.Context, query string, args ...any) ([]domain.DataPlan, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.DataPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan rows: %w", err)
	}
	return plans, nil
}

func scanPlan(row rowScanner) (*domain.DataPlan, error) {
	p := &domain.DataPlan{}
	err := row.Scan(
		&p.ID, &p.Network, &p.PlanCode, &p.PlanName, &p.DataSize, &p.Validity,
		&p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return p, nil
}
