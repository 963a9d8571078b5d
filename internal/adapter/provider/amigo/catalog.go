package amigo

import (
	"vtu-backend/internal/core/domain"

	"github.com/shopspring/decimal"
)

// networkIDs maps network names to the provider's numeric network ids.
var networkIDs = map[string]int{
	"mtn": 1,
	"glo": 2,
}

type staticPlan struct {
	network, code, name, size string
	price                     string
}

// staticPlans is the published price list, used when the catalog endpoint is
// disabled or unreachable.
var staticPlans = []staticPlan{
	{"mtn", "5000", "MTN 500MB", "500MB", "299.00"},
	{"mtn", "1001", "MTN 1GB", "1GB", "429.00"},
	{"mtn", "6666", "MTN 2GB", "2GB", "849.00"},
	{"mtn", "3333", "MTN 3GB", "3GB", "1329.00"},
	{"mtn", "9999", "MTN 5GB", "5GB", "1799.00"},
	{"mtn", "1110", "MTN 10GB", "10GB", "3899.00"},
	{"mtn", "1515", "MTN 15GB", "15GB", "5690.00"},
	{"mtn", "424", "MTN 20GB", "20GB", "7899.00"},
	{"mtn", "379", "MTN 36GB", "36GB", "11900.00"},
	{"mtn", "360", "MTN 75GB", "75GB", "18990.00"},
	{"glo", "218", "Glo 200MB", "200MB", "99.00"},
	{"glo", "217", "Glo 500MB", "500MB", "199.00"},
	{"glo", "206", "Glo 1GB", "1GB", "399.00"},
	{"glo", "195", "Glo 2GB", "2GB", "799.00"},
	{"glo", "196", "Glo 3GB", "3GB", "1199.00"},
	{"glo", "222", "Glo 5GB", "5GB", "1999.00"},
	{"glo", "512", "Glo 10GB", "10GB", "3990.00"},
}

// StaticCatalog returns a fresh copy of the published plans.
func StaticCatalog() []domain.CatalogPlan {
	plans := make([]domain.CatalogPlan, 0, len(staticPlans))
	for _, p := range staticPlans {
		plans = append(plans, domain.CatalogPlan{
			Network:  p.network,
			Code:     p.code,
			Name:     p.name,
			Size:     p.size,
			Validity: "30d",
			Price:    decimal.RequireFromString(p.price),
		})
	}
	return plans
}
