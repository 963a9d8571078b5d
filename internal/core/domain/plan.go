package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DataPlan is a purchasable data bundle. PlanCode is canonical: "network:code".
type DataPlan struct {
	ID        uuid.UUID       `json:"id"`
	Network   string          `json:"network"`
	PlanCode  string          `json:"plan_code"`
	PlanName  string          `json:"plan_name"`
	DataSize  string          `json:"data_size"`
	Validity  string          `json:"validity"`
	BasePrice decimal.Decimal `json:"base_price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProviderCode returns the code the provider knows the plan by.
func (p *DataPlan) ProviderCode() string {
	if i := strings.LastIndex(p.PlanCode, ":"); i >= 0 {
		return p.PlanCode[i+1:]
	}
	return p.PlanCode
}

// CanonicalPlanCode prefixes a provider code with its network unless it is
// already prefixed.
func CanonicalPlanCode(network, code string) string {
	network = strings.ToLower(strings.TrimSpace(network))
	code = strings.TrimSpace(code)
	if strings.Contains(code, ":") {
		return code
	}
	return network + ":" + code
}

// PricedPlan is a plan with the caller's price applied.
type PricedPlan struct {
	DataPlan
	Price decimal.Decimal `json:"price"`
}

// CatalogPlan is one entry of the provider catalog before it is stored.
type CatalogPlan struct {
	Network  string
	Code     string
	Name     string
	Size     string
	Validity string
	Price    decimal.Decimal
}
