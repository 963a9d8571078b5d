// Package amigo is the HTTP client for the data bundle fulfillment provider.
package amigo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vtu-backend/config"
	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	providerName = "amigo"
	purchasePath = "/data/"
	catalogPath  = "/data/plans/"
	maxBodyBytes = 1 << 20
)

// Client implements ports.DataProvider.
type Client struct {
	baseURL    string
	apiKey     string
	retryCount int
	useStatic  bool
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	log        zerolog.Logger
}

func NewClient(cfg config.AmigoConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		retryCount: max(cfg.RetryCount, 0),
		useStatic:  cfg.UseStaticCatalog,
		httpClient: &http.Client{Timeout: timeout},
		backoff:    func(attempt int) time.Duration { return time.Duration(attempt+1) * 500 * time.Millisecond },
		log:        log.With().Str("component", "amigo_client").Logger(),
	}
}

func (c *Client) Name() string { return providerName }

// NetworkID resolves a network name to the provider's numeric id.
func (c *Client) NetworkID(network string) (int, bool) {
	id, ok := networkIDs[strings.ToLower(strings.TrimSpace(network))]
	return id, ok
}

type catalogEntry struct {
	Network  string          `json:"network"`
	PlanCode json.RawMessage `json:"plan_code"`
	PlanName string          `json:"plan_name"`
	DataSize string          `json:"data_size"`
	Validity string          `json:"validity"`
	Price    decimal.Decimal `json:"price"`
}

// FetchCatalog reads the provider price list with retries and falls back to
// the static catalog when the endpoint stays unavailable.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.CatalogPlan, error) {
	if c.useStatic {
		return StaticCatalog(), nil
	}

	var (
		body    map[string]any
		lastErr error
	)
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}
		var resp *ports.ProviderResponse
		resp, lastErr = c.do(ctx, http.MethodGet, catalogPath, nil, nil)
		if lastErr == nil {
			body = resp.Body
			break
		}
		c.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("catalog fetch failed")
	}
	if lastErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(lastErr).Msg("using static catalog")
		return StaticCatalog(), nil
	}

	plans, err := decodeCatalog(body)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return StaticCatalog(), nil
	}
	return plans, nil
}

func decodeCatalog(body map[string]any) ([]domain.CatalogPlan, error) {
	raw, err := json.Marshal(body["data"])
	if err != nil {
		return nil, fmt.Errorf("amigo catalog: %w", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("amigo catalog: %w", err)
	}

	plans := make([]domain.CatalogPlan, 0, len(entries))
	for _, e := range entries {
		code := strings.Trim(string(e.PlanCode), `"`)
		if e.Network == "" || code == "" || code == "null" {
			continue
		}
		validity := e.Validity
		if validity == "" {
			validity = "30d"
		}
		plans = append(plans, domain.CatalogPlan{
			Network:  strings.ToLower(e.Network),
			Code:     code,
			Name:     e.PlanName,
			Size:     e.DataSize,
			Validity: validity,
			Price:    e.Price,
		})
	}
	return plans, nil
}

// PurchaseData sends one purchase. It is never retried: a retry after a
// timeout could deliver the bundle twice.
func (c *Client) PurchaseData(ctx context.Context, req ports.DataPurchase) (*ports.ProviderResponse, error) {
	payload := map[string]any{
		"network":       req.NetworkID,
		"mobile_number": req.MobileNumber,
		"plan":          planValue(req.PlanCode),
		"Ported_number": req.Ported,
	}
	headers := map[string]string{"Idempotency-Key": req.IdempotencyKey}
	return c.do(ctx, http.MethodPost, purchasePath, payload, headers)
}

// planValue sends numeric codes as numbers, which is what the provider expects.
func planValue(code string) any {
	if n, err := strconv.Atoi(code); err == nil {
		return n
	}
	return code
}

func (c *Client) do(ctx context.Context, method, path string, payload any, headers map[string]string) (*ports.ProviderResponse, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("amigo %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Info().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("provider call")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("amigo %s %s: read body: %w", method, path, err)
	}
	decoded, decodeErr := decodeBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr != nil {
			decoded = map[string]any{"message": truncate(strings.TrimSpace(string(raw)), 255)}
		}
		return nil, &ports.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(decoded, resp.Status),
			Body:       decoded,
		}
	}
	// A success status with an unreadable body carries no outcome at all.
	if decodeErr != nil {
		return nil, fmt.Errorf("amigo %s %s: status %d: %w", method, path, resp.StatusCode, decodeErr)
	}
	return &ports.ProviderResponse{StatusCode: resp.StatusCode, Body: decoded}, nil
}

// ErrMalformedResponse is returned when a reply is not a JSON object.
var ErrMalformedResponse = errors.New("malformed provider response")

func decodeBody(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedResponse
	}
	body := make(map[string]any)
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func errorMessage(body map[string]any, fallback string) string {
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}
