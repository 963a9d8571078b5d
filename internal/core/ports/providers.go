package ports

import (
	"context"
	"fmt"

	"vtu-backend/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ProviderResponse is the decoded body of a fulfillment call. Body has no
// fixed schema; it is interpreted by the outcome classifier.
type ProviderResponse struct {
	StatusCode int
	Body       map[string]any
}

// ProviderError is returned when the provider answered with a non-2xx status.
// Transport failures and timeouts are returned as plain errors.
type ProviderError struct {
	StatusCode int
	Message    string
	Body       map[string]any
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// DataPurchase is the request sent to the data provider.
type DataPurchase struct {
	NetworkID      int
	MobileNumber   string
	PlanCode       string
	Ported         bool
	IdempotencyKey string
}

// DataProvider is the data bundle fulfillment provider.
type DataProvider interface {
	Name() string
	// FetchCatalog is best-effort and may fall back to a static catalog.
	FetchCatalog(ctx context.Context) ([]domain.CatalogPlan, error)
	// PurchaseData must not retry.
	PurchaseData(ctx context.Context, req DataPurchase) (*ProviderResponse, error)
	NetworkID(network string) (int, bool)
}

// BillPurchase is a request for airtime, cable, electricity or exam pins.
type BillPurchase struct {
	TxType      domain.TransactionType
	Provider    string
	Customer    string
	ProductCode string
	Amount      decimal.Decimal
	Quantity    int
	Reference   string
}

// BillsProvider fulfils non-data services.
type BillsProvider interface {
	Name() string
	Purchase(ctx context.Context, req BillPurchase) (*ProviderResponse, error)
}

// CheckoutRequest starts a hosted payment for wallet funding.
type CheckoutRequest struct {
	Email       string
	Name        string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
}

// CheckoutResponse is what the client needs to complete payment.
type CheckoutResponse struct {
	CheckoutURL string         `json:"checkout_url"`
	AccessCode  string         `json:"access_code,omitempty"`
	Reference   string         `json:"reference"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// GatewayStatus is a gateway's view of a payment.
type GatewayStatus string

const (
	GatewayPaid    GatewayStatus = "paid"
	GatewayFailed  GatewayStatus = "failed"
	GatewayPending GatewayStatus = "pending"
)

// GatewayVerification is the result of a verify-by-reference call.
type GatewayVerification struct {
	Status     GatewayStatus
	ExternalID string
	Amount     decimal.Decimal
}

// GatewayEventKind classifies a webhook payload.
type GatewayEventKind string

const (
	EventPaymentSucceeded GatewayEventKind = "payment_succeeded"
	EventPaymentFailed    GatewayEventKind = "payment_failed"
	// EventReservedTransfer is an inbound bank transfer to a user's reserved
	// account with no internal transaction behind it.
	EventReservedTransfer GatewayEventKind = "reserved_transfer"
	EventIgnored          GatewayEventKind = "ignored"
)

// GatewayEvent is a parsed, signature-verified webhook.
type GatewayEvent struct {
	Kind          GatewayEventKind
	Reference     string
	ExternalID    string
	Amount        decimal.Decimal
	CustomerEmail string
}

// PaymentGateway is one wallet funding rail.
type PaymentGateway interface {
	Name() string
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	VerifySignature(body []byte, signature string) bool
	VerifyTransaction(ctx context.Context, reference string) (*GatewayVerification, error)
	ParseWebhook(body []byte) (*GatewayEvent, error)
}
