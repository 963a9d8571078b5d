package domain

import "time"

// EventType names a transaction lifecycle event published to subscribers.
type EventType string

const (
	EventPurchaseSucceeded EventType = "purchase.succeeded"
	EventPurchaseRefunded  EventType = "purchase.refunded"
	EventPurchasePending   EventType = "purchase.pending"
	EventWalletFunded      EventType = "wallet.funded"
	EventFundingFailed     EventType = "wallet.funding_failed"
)

// TransactionEvent is the payload published when a transaction resolves.
type TransactionEvent struct {
	Type          EventType         `json:"event_type"`
	UserID        string            `json:"user_id"`
	Reference     string            `json:"reference"`
	TxType        TransactionType   `json:"tx_type"`
	Status        TransactionStatus `json:"status"`
	Amount        string            `json:"amount"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds an event from the transaction's current state.
func NewTransactionEvent(t EventType, tx *Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Type:      t,
		UserID:    tx.UserID.String(),
		Reference: tx.Reference,
		TxType:    tx.TxType,
		Status:    tx.Status,
		Amount:    tx.Amount.StringFixed(MoneyPlaces),
		Timestamp: time.Now().UTC(),
	}
	if tx.FailureReason != nil {
		ev.FailureReason = *tx.FailureReason
	}
	return ev
}
