package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"vtu-backend/config"
	"vtu-backend/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const PaystackName = "paystack"

// Paystack implements ports.PaymentGateway against the Paystack API.
// Amounts cross the wire in kobo.
type Paystack struct {
	client    jsonClient
	secretKey string
	signing   string
	signer    ports.SignatureService
}

func NewPaystack(cfg config.PaystackConfig, signer ports.SignatureService, log zerolog.Logger) *Paystack {
	return &Paystack{
		client:    newJSONClient(PaystackName, cfg.BaseURL, log),
		secretKey: cfg.SecretKey,
		signing:   cfg.SigningSecret(),
		signer:    signer,
	}
}

func (p *Paystack) Name() string { return PaystackName }

type paystackEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paystackInit struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTransaction struct {
	ID        flexString `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (p *Paystack) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.secretKey}
}

// InitiateCheckout initializes a hosted Paystack transaction under the
// internal reference.
func (p *Paystack) InitiateCheckout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResponse, error) {
	if p.secretKey == "" {
		return nil, errors.New("paystack secret key not configured")
	}
	payload := map[string]any{
		"email":     req.Email,
		"amount":    req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	}

	var env paystackEnvelope[paystackInit]
	if err := p.client.do(ctx, "POST", "/transaction/initialize", p.headers(), payload, &env); err != nil {
		return nil, err
	}
	if !env.Status || env.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize rejected: %s", env.Message)
	}

	reference := env.Data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &ports.CheckoutResponse{
		CheckoutURL: env.Data.AuthorizationURL,
		AccessCode:  env.Data.AccessCode,
		Reference:   reference,
	}, nil
}

// VerifySignature checks x-paystack-signature.
func (p *Paystack) VerifySignature(body []byte, signature string) bool {
	return p.signer.Verify(p.signing, body, signature)
}

// VerifyTransaction asks Paystack for the current state of reference.
func (p *Paystack) VerifyTransaction(ctx context.Context, reference string) (*ports.GatewayVerification, error) {
	var env paystackEnvelope[paystackTransaction]
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := p.client.do(ctx, "GET", path, p.headers(), nil, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("paystack verify rejected: %s", env.Message)
	}

	status := ports.GatewayPending
	switch strings.ToLower(env.Data.Status) {
	case "success":
		status = ports.GatewayPaid
	case "failed", "abandoned", "reversed":
		status = ports.GatewayFailed
	}
	return &ports.GatewayVerification{
		Status:     status,
		ExternalID: string(env.Data.ID),
		Amount:     koboToNaira(env.Data.Amount),
	}, nil
}

type paystackWebhook struct {
	Event string              `json:"event"`
	Data  paystackTransaction `json:"data"`
}

// ParseWebhook maps charge.success and charge.failed; every other event is
// ignored.
func (p *Paystack) ParseWebhook(body []byte) (*ports.GatewayEvent, error) {
	var hook paystackWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("paystack webhook: %w", err)
	}

	ev := &ports.GatewayEvent{
		Kind:          ports.EventIgnored,
		Reference:     hook.Data.Reference,
		ExternalID:    string(hook.Data.ID),
		Amount:        koboToNaira(hook.Data.Amount),
		CustomerEmail: hook.Data.Customer.Email,
	}
	switch hook.Event {
	case "charge.success":
		ev.Kind = ports.EventPaymentSucceeded
	case "charge.failed":
		ev.Kind = ports.EventPaymentFailed
	}
	if ev.Kind != ports.EventIgnored && ev.Reference == "" {
		return nil, errors.New("paystack webhook: missing reference")
	}
	return ev, nil
}
