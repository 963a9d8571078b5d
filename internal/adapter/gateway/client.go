// Package gateway holds the hosted-checkout payment gateways used for wallet
// funding: Paystack and Monnify.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vtu-backend/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 1 << 20
)

// StatusError is a non-2xx answer from a gateway API.
type StatusError struct {
	Gateway    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Gateway, e.StatusCode, e.Body)
}

type jsonClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func newJSONClient(name, baseURL string, log zerolog.Logger) jsonClient {
	return jsonClient{
		name:       name,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With().Str("component", name+"_gateway").Logger(),
	}
}

// do sends payload as JSON and decodes a 2xx body into out.
// The request path, without query, is used as the latency label.
func (c *jsonClient) do(ctx context.Context, method, path string, headers map[string]string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	endpoint := path
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ProviderLatency.WithLabelValues(c.name, endpoint, "false").Observe(elapsed.Seconds())
		return fmt.Errorf("%s %s %s: %w", c.name, method, endpoint, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	metrics.ProviderLatency.WithLabelValues(c.name, endpoint, strconv.FormatBool(ok)).Observe(elapsed.Seconds())
	c.log.Info().
		Str("method", method).
		Str("path", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("gateway call")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", c.name, endpoint, err)
	}
	if !ok {
		return &StatusError{Gateway: c.name, StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", c.name, endpoint, err)
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexString(str)
		return nil
	}
	*f = flexString(s)
	return nil
}

// koboToNaira converts a minor-unit integer amount to NGN.
func koboToNaira(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
