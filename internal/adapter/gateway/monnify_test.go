package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"vtu-backend/config"
	"vtu-backend/internal/core/ports"
	"vtu-backend/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginBody = `{"requestSuccessful":true,"responseBody":{"accessToken":"tok-1","expiresIn":3600}}`

func newTestMonnify(t *testing.T, mux *http.ServeMux) *Monnify {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewMonnify(config.MonnifyConfig{
		BaseURL:      srv.URL,
		APIKey:       "MK_TEST",
		SecretKey:    "secret",
		ContractCode: "CC-1",
	}, service.NewHMACSignatureService(), zerolog.Nop())
}

func TestMonnify_InitiateCheckout_LogsInOnce(t *testing.T) {
	var logins atomic.Int32
	var got map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "MK_TEST", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(loginBody))
	})
	mux.HandleFunc("/api/v1/merchant/transactions/init-transaction", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"requestSuccessful":true,"responseBody":{"transactionReference":"MNFY|1","paymentReference":"FUND_1","checkoutUrl":"https://sandbox.monnify.com/checkout/MNFY1"}}`))
	})
	m := newTestMonnify(t, mux)

	for i := 0; i < 2; i++ {
		resp, err := m.InitiateCheckout(context.Background(), ports.CheckoutRequest{
			Email:     "ada@example.com",
			Name:      "Ada",
			Amount:    decimal.NewFromInt(2000),
			Reference: "FUND_1",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://sandbox.monnify.com/checkout/MNFY1", resp.CheckoutURL)
		assert.Equal(t, "MNFY|1", resp.Raw["transaction_reference"])
	}

	assert.Equal(t, int32(1), logins.Load())
	assert.Equal(t, "2000.00", got["amount"])
	assert.Equal(t, "CC-1", got["contractCode"])
	assert.Equal(t, "NGN", got["currencyCode"])
	assert.Equal(t, "Wallet funding", got["paymentDescription"])
}

func TestMonnify_LoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"requestSuccessful":false,"responseMessage":"bad credentials"}`))
	})
	m := newTestMonnify(t, mux)

	_, err := m.InitiateCheckout(context.Background(), ports.CheckoutRequest{Amount: decimal.NewFromInt(100)})
	assert.ErrorContains(t, err, "bad credentials")
}

func TestMonnify_MissingCredentials(t *testing.T) {
	m := NewMonnify(config.MonnifyConfig{}, service.NewHMACSignatureService(), zerolog.Nop())
	_, err := m.VerifyTransaction(context.Background(), "FUND_1")
	assert.Error(t, err)
}

func TestMonnify_VerifyTransaction(t *testing.T) {
	tests := []struct {
		remote string
		want   ports.GatewayStatus
	}{
		{"PAID", ports.GatewayPaid},
		{"OVERPAID", ports.GatewayPaid},
		{"EXPIRED", ports.GatewayFailed},
		{"PENDING", ports.GatewayPending},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(loginBody))
			})
			mux.HandleFunc("/api/v2/merchant/transactions/query", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "FUND_1", r.URL.Query().Get("paymentReference"))
				_, _ = w.Write([]byte(`{"requestSuccessful":true,"responseBody":{"transactionReference":"MNFY|9","paymentReference":"FUND_1","paymentStatus":"` + tt.remote + `","amountPaid":"1500.00"}}`))
			})
			m := newTestMonnify(t, mux)

			v, err := m.VerifyTransaction(context.Background(), "FUND_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, "MNFY|9", v.ExternalID)
			assert.True(t, v.Amount.Equal(decimal.NewFromInt(1500)))
		})
	}
}

func TestMonnify_VerifySignature_FallsBackToSecretKey(t *testing.T) {
	signer := service.NewHMACSignatureService()
	m := NewMonnify(config.MonnifyConfig{SecretKey: "secret"}, signer, zerolog.Nop())
	body := []byte(`{"eventType":"SUCCESSFUL_TRANSACTION"}`)

	assert.True(t, m.VerifySignature(body, signer.Sign("secret", body)))
	assert.False(t, m.VerifySignature(body, signer.Sign("other", body)))
}

func TestMonnify_ParseWebhook(t *testing.T) {
	m := NewMonnify(config.MonnifyConfig{}, service.NewHMACSignatureService(), zerolog.Nop())

	t.Run("one-off payment", func(t *testing.T) {
		ev, err := m.ParseWebhook([]byte(`{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"transactionReference":"MNFY|1","paymentReference":"FUND_1","amountPaid":2000,"product":{"type":"API_NOTIFICATION"}}}`))
		require.NoError(t, err)
		assert.Equal(t, ports.EventPaymentSucceeded, ev.Kind)
		assert.Equal(t, "FUND_1", ev.Reference)
		assert.Equal(t, "MNFY|1", ev.ExternalID)
		assert.True(t, ev.Amount.Equal(decimal.NewFromInt(2000)))
	})

	t.Run("reserved account transfer", func(t *testing.T) {
		ev, err := m.ParseWebhook([]byte(`{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"transactionReference":"MNFY|2","paymentReference":"MNFY|2","amountPaid":"750.50","customer":{"email":"ada@example.com"},"product":{"type":"RESERVED_ACCOUNT","reference":"acct-1"}}}`))
		require.NoError(t, err)
		assert.Equal(t, ports.EventReservedTransfer, ev.Kind)
		assert.Equal(t, "ada@example.com", ev.CustomerEmail)
		assert.Equal(t, "MNFY|2", ev.ExternalID)
		assert.True(t, ev.Amount.Equal(decimal.RequireFromString("750.50")))
	})

	t.Run("failed", func(t *testing.T) {
		ev, err := m.ParseWebhook([]byte(`{"eventType":"FAILED_TRANSACTION","eventData":{"paymentReference":"FUND_3"}}`))
		require.NoError(t, err)
		assert.Equal(t, ports.EventPaymentFailed, ev.Kind)
	})

	t.Run("unknown event", func(t *testing.T) {
		ev, err := m.ParseWebhook([]byte(`{"eventType":"SETTLEMENT","eventData":{}}`))
		require.NoError(t, err)
		assert.Equal(t, ports.EventIgnored, ev.Kind)
	})

	t.Run("missing reference", func(t *testing.T) {
		_, err := m.ParseWebhook([]byte(`{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{}}`))
		assert.Error(t, err)
	})
}
