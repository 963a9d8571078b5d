package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_002", "Insufficient balance", http.StatusBadRequest),
			expected: "[WAL_002] Insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("WAL_001", "test", http.StatusLocked).Unwrap())
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("debit: %w", ErrInsufficientBalance())

	assert.True(t, HasCode(wrapped, "WAL_002"))
	assert.False(t, HasCode(wrapped, "WAL_001"))
	assert.False(t, HasCode(errors.New("plain"), "WAL_002"))
}

func TestWithHint_DoesNotMutateOriginal(t *testing.T) {
	base := New("LIM_001", "limit", http.StatusTooManyRequests)
	hinted := base.WithHint("try later")

	assert.Empty(t, base.Hint)
	assert.Equal(t, "try later", hinted.Hint)
	assert.Equal(t, base.Code, hinted.Code)
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"WalletLocked", ErrWalletLocked(), "WAL_001", 423},
		{"InsufficientBalance", ErrInsufficientBalance(), "WAL_002", 400},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_003", 400},
		{"SingleTxLimit", ErrSingleTxLimit("50000"), "LIM_001", 429},
		{"DailyCountLimit", ErrDailyCountLimit(5), "LIM_002", 429},
		{"DailyTotalLimit", ErrDailyTotalLimit("1000"), "LIM_003", 429},
		{"PlanNotFound", ErrPlanNotFound(), "CAT_001", 404},
		{"AmbiguousPlanCode", ErrAmbiguousPlanCode(), "CAT_002", 400},
		{"ProviderUnavailable", ErrProviderUnavailable(nil), "PRV_001", 502},
		{"ProviderRejected", ErrProviderRejected("busy"), "PRV_002", 502},
		{"InvalidSignature", ErrInvalidSignature(), "GW_001", 401},
		{"DuplicateExternalReference", ErrDuplicateExternalReference(), "GW_002", 409},
		{"Forbidden", ErrForbidden(), "AUTH_005", 403},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestLimitErrors_CarryHints(t *testing.T) {
	assert.Contains(t, ErrSingleTxLimit("50000").Hint, "50000")
	assert.Contains(t, ErrDailyCountLimit(3).Hint, "3 purchases")
}

func TestProviderRejected_TruncatesReason(t *testing.T) {
	err := ErrProviderRejected(strings.Repeat("x", 300))
	assert.Contains(t, err.Message, "Wallet refunded")
	assert.Less(t, len(err.Message), 200)
}

func TestProviderRejected_TruncatesOnRuneBoundary(t *testing.T) {
	reason := strings.Repeat("a", 139) + "₦₦₦ over limit"
	err := ErrProviderRejected(reason)

	assert.True(t, utf8.ValidString(err.Message))
	assert.Equal(t, "Provider failed: "+strings.Repeat("a", 139)+"₦. Wallet refunded.", err.Message)
}
