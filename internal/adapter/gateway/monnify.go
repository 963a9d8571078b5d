package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"vtu-backend/config"
	"vtu-backend/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const MonnifyName = "monnify"

// Monnify implements ports.PaymentGateway against the Monnify API. Calls use
// a bearer token obtained with basic auth and cached until shortly before it
// expires.
type Monnify struct {
	client       jsonClient
	apiKey       string
	secretKey    string
	contractCode string
	signing      string
	signer       ports.SignatureService
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewMonnify(cfg config.MonnifyConfig, signer ports.SignatureService, log zerolog.Logger) *Monnify {
	return &Monnify{
		client:       newJSONClient(MonnifyName, cfg.BaseURL, log),
		apiKey:       cfg.APIKey,
		secretKey:    cfg.SecretKey,
		contractCode: cfg.ContractCode,
		signing:      cfg.SigningSecret(),
		signer:       signer,
		now:          time.Now,
	}
}

func (m *Monnify) Name() string { return MonnifyName }

type monnifyEnvelope[T any] struct {
	RequestSuccessful bool   `json:"requestSuccessful"`
	ResponseMessage   string `json:"responseMessage"`
	ResponseCode      string `json:"responseCode"`
	ResponseBody      T      `json:"responseBody"`
}

type monnifyLogin struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type monnifyInit struct {
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
	CheckoutURL          string `json:"checkoutUrl"`
}

type monnifyTransaction struct {
	TransactionReference string          `json:"transactionReference"`
	PaymentReference     string          `json:"paymentReference"`
	PaymentStatus        string          `json:"paymentStatus"`
	AmountPaid           decimal.Decimal `json:"amountPaid"`
	Customer             struct {
		Email string `json:"email"`
	} `json:"customer"`
	Product struct {
		Type      string `json:"type"`
		Reference string `json:"reference"`
	} `json:"product"`
}

func (m *Monnify) accessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiresAt) {
		return m.token, nil
	}
	if m.apiKey == "" || m.secretKey == "" {
		return "", errors.New("monnify credentials not configured")
	}

	basic := base64.StdEncoding.EncodeToString([]byte(m.apiKey + ":" + m.secretKey))
	var env monnifyEnvelope[monnifyLogin]
	if err := m.client.do(ctx, "POST", "/api/v1/auth/login", map[string]string{"Authorization": "Basic " + basic}, nil, &env); err != nil {
		return "", err
	}
	if !env.RequestSuccessful || env.ResponseBody.AccessToken == "" {
		return "", fmt.Errorf("monnify login rejected: %s", env.ResponseMessage)
	}

	ttl := time.Duration(env.ResponseBody.ExpiresIn) * time.Second
	if ttl <= time.Minute {
		ttl = 2 * time.Minute
	}
	m.token = env.ResponseBody.AccessToken
	m.expiresAt = m.now().Add(ttl - time.Minute)
	return m.token, nil
}

func (m *Monnify) authorized(ctx context.Context) (map[string]string, error) {
	token, err := m.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// InitiateCheckout creates a Monnify one-off payment with the internal
// reference as paymentReference.
func (m *Monnify) InitiateCheckout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResponse, error) {
	headers, err := m.authorized(ctx)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Email
	}
	payload := map[string]any{
		"amount":             req.Amount.StringFixed(2),
		"customerName":       name,
		"customerEmail":      req.Email,
		"paymentReference":   req.Reference,
		"paymentDescription": "Wallet funding",
		"currencyCode":       "NGN",
		"contractCode":       m.contractCode,
		"redirectUrl":        req.CallbackURL,
	}

	var env monnifyEnvelope[monnifyInit]
	if err := m.client.do(ctx, "POST", "/api/v1/merchant/transactions/init-transaction", headers, payload, &env); err != nil {
		return nil, err
	}
	if !env.RequestSuccessful || env.ResponseBody.CheckoutURL == "" {
		return nil, fmt.Errorf("monnify init rejected: %s", env.ResponseMessage)
	}
	return &ports.CheckoutResponse{
		CheckoutURL: env.ResponseBody.CheckoutURL,
		Reference:   req.Reference,
		Raw: map[string]any{
			"transaction_reference": env.ResponseBody.TransactionReference,
		},
	}, nil
}

// VerifySignature checks monnify-signature.
func (m *Monnify) VerifySignature(body []byte, signature string) bool {
	return m.signer.Verify(m.signing, body, signature)
}

// VerifyTransaction queries a payment by our reference.
func (m *Monnify) VerifyTransaction(ctx context.Context, reference string) (*ports.GatewayVerification, error) {
	headers, err := m.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env monnifyEnvelope[monnifyTransaction]
	path := "/api/v2/merchant/transactions/query?paymentReference=" + url.QueryEscape(reference)
	if err := m.client.do(ctx, "GET", path, headers, nil, &env); err != nil {
		return nil, err
	}
	if !env.RequestSuccessful {
		return nil, fmt.Errorf("monnify query rejected: %s", env.ResponseMessage)
	}

	status := ports.GatewayPending
	switch strings.ToUpper(env.ResponseBody.PaymentStatus) {
	case "PAID", "OVERPAID":
		status = ports.GatewayPaid
	case "FAILED", "EXPIRED", "CANCELLED", "REVERSED":
		status = ports.GatewayFailed
	}
	return &ports.GatewayVerification{
		Status:     status,
		ExternalID: env.ResponseBody.TransactionReference,
		Amount:     env.ResponseBody.AmountPaid,
	}, nil
}

type monnifyWebhook struct {
	EventType string             `json:"eventType"`
	EventData monnifyTransaction `json:"eventData"`
}

// ParseWebhook maps SUCCESSFUL_TRANSACTION and FAILED_TRANSACTION. A
// successful transfer into a reserved account has no internal transaction
// and is reported as EventReservedTransfer.
func (m *Monnify) ParseWebhook(body []byte) (*ports.GatewayEvent, error) {
	var hook monnifyWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("monnify webhook: %w", err)
	}
	data := hook.EventData

	ev := &ports.GatewayEvent{
		Kind:          ports.EventIgnored,
		Reference:     data.PaymentReference,
		ExternalID:    data.TransactionReference,
		Amount:        data.AmountPaid,
		CustomerEmail: data.Customer.Email,
	}
	switch hook.EventType {
	case "SUCCESSFUL_TRANSACTION":
		if strings.EqualFold(data.Product.Type, "RESERVED_ACCOUNT") {
			ev.Kind = ports.EventReservedTransfer
			return ev, nil
		}
		ev.Kind = ports.EventPaymentSucceeded
	case "FAILED_TRANSACTION":
		ev.Kind = ports.EventPaymentFailed
	default:
		return ev, nil
	}
	if ev.Reference == "" {
		return nil, errors.New("monnify webhook: missing paymentReference")
	}
	return ev, nil
}
