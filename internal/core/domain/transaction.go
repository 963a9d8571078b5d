package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of purchase or funding attempt.
type TransactionType string

const (
	TxTypeData        TransactionType = "data"
	TxTypeWalletFund  TransactionType = "wallet_fund"
	TxTypeAirtime     TransactionType = "airtime"
	TxTypeCable       TransactionType = "cable"
	TxTypeElectricity TransactionType = "electricity"
	TxTypeExam        TransactionType = "exam"
)

var referencePrefixes = map[TransactionType]string{
	TxTypeData:        "DATA",
	TxTypeWalletFund:  "FUND",
	TxTypeAirtime:     "AIRTIME",
	TxTypeCable:       "CABLE",
	TxTypeElectricity: "ELECTRICITY",
	TxTypeExam:        "EXAM",
}

// ParseTransactionType converts a stored or client value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := referencePrefixes[t]; !ok {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

func (t TransactionType) String() string { return string(t) }

// IsPurchase reports whether the type debits the wallet.
func (t TransactionType) IsPurchase() bool {
	return t != TxTypeWalletFund
}

// ReferencePrefix is the prefix used for generated references of this type.
func (t TransactionType) ReferencePrefix() string {
	return referencePrefixes[t]
}

// TransactionStatus is the lifecycle state of a transaction.
// pending -> success, or pending -> failed -> refunded (applied as one step for purchases).
type TransactionStatus string

const (
	TxStatusPending  TransactionStatus = "pending"
	TxStatusSuccess  TransactionStatus = "success"
	TxStatusFailed   TransactionStatus = "failed"
	TxStatusRefunded TransactionStatus = "refunded"
)

// ParseTransactionStatus is the single parse point for status values read
// from storage or from the wire. Case-insensitive.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case TxStatusPending, TxStatusSuccess, TxStatusFailed, TxStatusRefunded:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

func (s TransactionStatus) String() string { return string(s) }

// IsTerminal returns true if no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxStatusSuccess || s == TxStatusFailed || s == TxStatusRefunded
}

// Transaction is a purchase or funding record keyed by its reference.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Reference         string            `json:"reference"`
	TxType            TransactionType   `json:"tx_type"`
	Amount            decimal.Decimal   `json:"amount"`
	Status            TransactionStatus `json:"status"`
	Provider          string            `json:"provider,omitempty"`
	Network           string            `json:"network,omitempty"`
	ProductCode       string            `json:"product_code,omitempty"`
	Customer          string            `json:"customer,omitempty"`
	ExternalReference *string           `json:"external_reference,omitempty"`
	FailureReason     *string           `json:"failure_reason,omitempty"`
	Meta              map[string]any    `json:"meta,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// SetMeta records a provider-specific extra.
func (t *Transaction) SetMeta(key string, value any) {
	if t.Meta == nil {
		t.Meta = make(map[string]any)
	}
	t.Meta[key] = value
}
