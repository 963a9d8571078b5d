package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits stored for every amount.
const MoneyPlaces = 2

// Money rounds d to the stored precision.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Wallet holds a user's NGN balance. One per user, created lazily.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	IsLocked  bool            `json:"is_locked"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Covers reports whether the balance can absorb a debit of amount.
func (w *Wallet) Covers(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// ParseEntryType converts a stored value into an EntryType.
func ParseEntryType(s string) (EntryType, error) {
	switch e := EntryType(strings.ToLower(s)); e {
	case EntryCredit, EntryDebit:
		return e, nil
	default:
		return "", fmt.Errorf("unknown ledger entry type %q", s)
	}
}

// LedgerEntry is an immutable record of one wallet balance change.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	EntryType   EntryType       `json:"entry_type"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on the balance.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.EntryType == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// LedgerBalance sums credits minus debits. For any wallet it must equal the
// stored balance.
func LedgerBalance(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total
}
