package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Hint       string `json:"hint,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithHint returns a copy of e carrying a remediation hint for the client.
func (e *AppError) WithHint(hint string) *AppError {
	cp := *e
	cp.Hint = hint
	return &cp
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an AppError (anywhere in its chain) with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Wallet (WAL) ----

func ErrWalletLocked() *AppError {
	return New("WAL_001", "Wallet is locked", http.StatusLocked)
}

func ErrInsufficientBalance() *AppError {
	return New("WAL_002", "Insufficient balance", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_003", "Invalid amount", http.StatusBadRequest)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_004", "Wallet not found", http.StatusNotFound)
}

// ---- Purchase limits (LIM) ----

func ErrSingleTxLimit(limit string) *AppError {
	return New("LIM_001", "Transaction amount exceeds single purchase limit", http.StatusTooManyRequests).
		WithHint(fmt.Sprintf("Maximum per purchase is NGN %s. Split the purchase into smaller amounts.", limit))
}

func ErrDailyCountLimit(limit int) *AppError {
	return New("LIM_002", "Daily purchase count limit reached", http.StatusTooManyRequests).
		WithHint(fmt.Sprintf("You can make at most %d purchases per day. Try again tomorrow.", limit))
}

func ErrDailyTotalLimit(limit string) *AppError {
	return New("LIM_003", "Daily purchase amount limit reached", http.StatusTooManyRequests).
		WithHint(fmt.Sprintf("Daily purchase total is capped at NGN %s. Try again tomorrow.", limit))
}

// ---- Catalog (CAT) ----

func ErrPlanNotFound() *AppError {
	return New("CAT_001", "Data plan not found", http.StatusNotFound)
}

func ErrAmbiguousPlanCode() *AppError {
	return New("CAT_002", "Plan code is ambiguous; use the network-prefixed code", http.StatusBadRequest)
}

func ErrUnsupportedProduct(message string) *AppError {
	return New("CAT_003", message, http.StatusBadRequest)
}

// ---- Fulfillment provider (PRV) ----

const maxProviderReason = 140

func ErrProviderUnavailable(err error) *AppError {
	return Wrap("PRV_001", "Provider temporarily unavailable. Wallet refunded.", http.StatusBadGateway, err)
}

func ErrProviderRejected(reason string) *AppError {
	if r := []rune(reason); len(r) > maxProviderReason {
		reason = string(r[:maxProviderReason])
	}
	return New("PRV_002", fmt.Sprintf("Provider failed: %s. Wallet refunded.", reason), http.StatusBadGateway)
}

// ---- Payment gateways (GW) ----

func ErrInvalidSignature() *AppError {
	return New("GW_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrDuplicateExternalReference() *AppError {
	return New("GW_002", "External reference already processed", http.StatusConflict)
}

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap("GW_003", "Payment gateway unavailable", http.StatusBadGateway, err)
}

// ---- Transactions (TX) ----

func ErrTransactionNotFound() *AppError {
	return New("TX_001", "Transaction not found", http.StatusNotFound)
}

// ---- Announcements (ANN) ----

func ErrAnnouncementNotFound() *AppError {
	return New("ANN_001", "Announcement not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUserSuspended() *AppError {
	return New("AUTH_004", "User account is suspended", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTH_005", "Admin access required", http.StatusForbidden)
}

func ErrUserNotFound() *AppError {
	return New("AUTH_006", "User not found", http.StatusNotFound)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a SYS_002 validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_003", "Resource busy, retry shortly", http.StatusServiceUnavailable, err)
}
