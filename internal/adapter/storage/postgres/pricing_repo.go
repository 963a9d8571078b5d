package postgres

import (
	"context"
	"errors"
	"fmt"

	"vtu-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const pricingColumns = `id, key, role, margin, updated_at`

// PricingRepo implements ports.PricingRepository.
type PricingRepo struct {
	pool Pool
}

func NewPricingRepo(pool Pool) *PricingRepo {
	return &PricingRepo{pool: pool}
}

func (r *PricingRepo) Get(ctx context.Context, key string, role domain.PricingRole) (*domain.PricingRule, error) {
	query := `SELECT ` + pricingColumns + ` FROM pricing_rules WHERE key = $1 AND role = $2`
	return scanPricingRule(r.pool.QueryRow(ctx, query, key, string(role)))
}

// Upsert inserts or replaces the margin for (key, role). On conflict the
// existing row keeps its id, which is written back into rule.
func (r *PricingRepo) Upsert(ctx context.Context, rule *domain.PricingRule) error {
	query := `INSERT INTO pricing_rules (` + pricingColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, role) DO UPDATE SET margin = EXCLUDED.margin, updated_at = EXCLUDED.updated_at
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		rule.ID, rule.Key, string(rule.Role), rule.Margin, rule.UpdatedAt,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("upsert pricing rule: %w", err)
	}
	return nil
}

func (r *PricingRepo) List(ctx context.Context) ([]domain.PricingRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pricingColumns+` FROM pricing_rules ORDER BY key, role`)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.PricingRule
	for rows.Next() {
		rule, err := scanPricingRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rows: %w", err)
	}
	return rules, nil
}

func scanPricingRule(row rowScanner) (*domain.PricingRule, error) {
	var (
		rule domain.PricingRule
		role string
	)
	err := row.Scan(&rule.ID, &rule.Key, &role, &rule.Margin, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pricing rule: %w", err)
	}
	if rule.Role, err = domain.ParsePricingRole(role); err != nil {
		return nil, fmt.Errorf("scan pricing rule %s: %w", rule.Key, err)
	}
	return &rule, nil
}
