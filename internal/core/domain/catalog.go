package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExamPinUnitPrice is the base price of one exam pin.
var ExamPinUnitPrice = decimal.NewFromInt(2000)

const (
	MinExamQuantity = 1
	MaxExamQuantity = 10
)

// ServiceCatalog lists the providers accepted per bill service.
var ServiceCatalog = map[TransactionType][]string{
	TxTypeAirtime:     {"mtn", "glo", "airtel", "9mobile"},
	TxTypeCable:       {"dstv", "gotv", "startimes"},
	TxTypeElectricity: {"ikeja", "eko", "abuja", "kano", "ibadan", "enugu", "portharcourt", "kaduna"},
	TxTypeExam:        {"waec", "neco", "jamb"},
}

// IsCatalogProvider reports whether provider is offered for txType.
func IsCatalogProvider(txType TransactionType, provider string) bool {
	provider = strings.ToLower(strings.TrimSpace(provider))
	for _, p := range ServiceCatalog[txType] {
		if p == provider {
			return true
		}
	}
	return false
}
