package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingRole selects which margin column applies to a caller.
type PricingRole string

const (
	PricingRoleUser     PricingRole = "user"
	PricingRoleReseller PricingRole = "reseller"
)

// ParsePricingRole accepts only user and reseller.
func ParsePricingRole(s string) (PricingRole, error) {
	switch r := PricingRole(strings.ToLower(strings.TrimSpace(s))); r {
	case PricingRoleUser, PricingRoleReseller:
		return r, nil
	default:
		return "", fmt.Errorf("invalid pricing role %q", s)
	}
}

// PricingRoleFor maps an account role to its pricing role. Only resellers get
// reseller margins; admins see customer prices.
func PricingRoleFor(role UserRole) PricingRole {
	if role == RoleReseller {
		return PricingRoleReseller
	}
	return PricingRoleUser
}

const servicePricingPrefix = "svc"

// ServicePricingKey builds the composite key used for non-data services.
func ServicePricingKey(txType TransactionType, provider string) string {
	return fmt.Sprintf("%s:%s:%s",
		servicePricingPrefix,
		strings.ToLower(strings.TrimSpace(string(txType))),
		strings.ToLower(strings.TrimSpace(provider)),
	)
}

// ParseServicePricingKey splits a composite key. ok is false for plain network keys.
func ParseServicePricingKey(key string) (txType TransactionType, provider string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] != servicePricingPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return TransactionType(parts[1]), parts[2], true
}

// NormalizePricingKey lowercases and trims a rule key.
func NormalizePricingKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// PricingRule is the margin for a (key, role) pair. Key is a network name for
// data plans or a ServicePricingKey for other services.
type PricingRule struct {
	ID        uuid.UUID       `json:"id"`
	Key       string          `json:"key"`
	Role      PricingRole     `json:"role"`
	Margin    decimal.Decimal `json:"margin"`
	UpdatedAt time.Time       `json:"updated_at"`
}
