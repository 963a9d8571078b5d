// Package bills holds the fulfillment provider for airtime, cable TV,
// electricity tokens and exam pins.
package bills

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/rs/zerolog"
)

const providerName = "mock-bills"

var customerLabels = map[domain.TransactionType]string{
	domain.TxTypeAirtime:     "phone number",
	domain.TxTypeCable:       "smartcard number",
	domain.TxTypeElectricity: "meter number",
	domain.TxTypeExam:        "phone number",
}

// MockProvider answers every bill purchase locally. A customer starting with
// "0000" is rejected so the refund path can be exercised end to end.
type MockProvider struct {
	latency time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewMockProvider(latency time.Duration, log zerolog.Logger) *MockProvider {
	return &MockProvider{
		latency: latency,
		now:     time.Now,
		log:     log.With().Str("component", "bills_provider").Logger(),
	}
}

func (p *MockProvider) Name() string { return providerName }

// Purchase returns a provider-shaped body: status, message, reference and,
// for electricity and exam, the fulfilment payload.
func (p *MockProvider) Purchase(ctx context.Context, req ports.BillPurchase) (*ports.ProviderResponse, error) {
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.latency):
		}
	}

	label, ok := customerLabels[req.TxType]
	if !ok {
		return nil, &ports.ProviderError{StatusCode: 400, Message: fmt.Sprintf("unsupported service %q", req.TxType)}
	}

	if strings.HasPrefix(strings.TrimSpace(req.Customer), "0000") {
		p.log.Info().Str("reference", req.Reference).Msg("mock rejection")
		return &ports.ProviderResponse{
			StatusCode: 200,
			Body: map[string]any{
				"status":  "failed",
				"message": fmt.Sprintf("Mock failure: invalid %s.", label),
			},
		}, nil
	}

	suffix, err := randomHex(3)
	if err != nil {
		return nil, fmt.Errorf("mock reference: %w", err)
	}
	body := map[string]any{
		"status":    "success",
		"message":   fmt.Sprintf("%s purchase successful", strings.ToUpper(req.Provider)),
		"reference": fmt.Sprintf("%s-MOCK-%d-%s", req.TxType.ReferencePrefix(), p.now().Unix(), suffix),
	}

	switch req.TxType {
	case domain.TxTypeElectricity:
		token, err := randomDigits(12)
		if err != nil {
			return nil, fmt.Errorf("mock token: %w", err)
		}
		body["token"] = token
	case domain.TxTypeExam:
		pins := make([]string, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			pin, err := randomDigits(12)
			if err != nil {
				return nil, fmt.Errorf("mock pin: %w", err)
			}
			pins = append(pins, pin)
		}
		body["pins"] = pins
	}

	p.log.Info().Str("reference", req.Reference).Str("tx_type", string(req.TxType)).Msg("mock fulfilment")
	return &ports.ProviderResponse{StatusCode: 200, Body: body}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomDigits(n int) (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}
