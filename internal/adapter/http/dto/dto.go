package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=user reseller"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" sanitize:"-"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is the response body for a successful login or refresh.
type LoginResponse struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	TokenType     string `json:"token_type"`
	Expiry        int64  `json:"expiry"`         // Unix timestamp
	RefreshExpiry int64  `json:"refresh_expiry"` // Unix timestamp
}

// FundRequest starts a hosted checkout for wallet funding.
type FundRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required,gt=0"`
	CallbackURL string          `json:"callback_url,omitempty" binding:"omitempty,safe_url"`
	Gateway     string          `json:"gateway,omitempty" binding:"omitempty,oneof=paystack monnify"`
}

// WalletResponse is the caller's balance.
type WalletResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	IsLocked bool            `json:"is_locked"`
	Currency string          `json:"currency"`
}

// DataPurchaseRequest is the request body for a data bundle purchase.
type DataPurchaseRequest struct {
	PlanCode     string `json:"plan_code" binding:"required,max=64,safe_ref"`
	MobileNumber string `json:"mobile_number" binding:"required,phone_ng"`
	Ported       bool   `json:"ported_number"`
}

type AirtimeRequest struct {
	Network string          `json:"network" binding:"required,network"`
	Phone   string          `json:"phone" binding:"required,phone_ng"`
	Amount  decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type CableRequest struct {
	Provider        string          `json:"provider" binding:"required,oneof=dstv gotv startimes"`
	SmartcardNumber string          `json:"smartcard_number" binding:"required,numeric,min=6,max=20"`
	PackageCode     string          `json:"package_code" binding:"required,max=64,safe_ref"`
	Amount          decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type ElectricityRequest struct {
	Disco       string          `json:"disco" binding:"required,max=32"`
	MeterNumber string          `json:"meter_number" binding:"required,numeric,min=6,max=20"`
	MeterType   string          `json:"meter_type" binding:"required,oneof=prepaid postpaid"`
	Amount      decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type ExamRequest struct {
	ExamType string `json:"exam_type" binding:"required,oneof=waec neco jamb"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10"`
	Phone    string `json:"phone" binding:"required,phone_ng"`
}

// PurchaseResponse is returned by every purchase endpoint.
type PurchaseResponse struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Amount    decimal.Decimal `json:"amount"`
	Meta      map[string]any  `json:"meta,omitempty"`
}

// PricingRequest is an admin margin upsert. Margin may be negative to
// discount below the base price.
type PricingRequest struct {
	Key    string          `json:"key" binding:"required,max=64"`
	Role   string          `json:"role" binding:"required,oneof=user reseller"`
	Margin decimal.Decimal `json:"margin"`
}

// AdminFundRequest is a manual wallet credit.
type AdminFundRequest struct {
	UserID      string          `json:"user_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Description string          `json:"description,omitempty" binding:"max=255"`
}

// AnnouncementCreateRequest is an admin broadcast. IsActive defaults to true.
type AnnouncementCreateRequest struct {
	Title    string     `json:"title" binding:"required,min=2,max=120"`
	Message  string     `json:"message" binding:"required,min=6,max=2000"`
	Level    string     `json:"level,omitempty" binding:"omitempty,max=16"`
	IsActive *bool      `json:"is_active,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

// AnnouncementUpdateRequest is a partial update. Sending null for a window
// bound clears it; omitting the field leaves it unchanged.
type AnnouncementUpdateRequest struct {
	Title    *string      `json:"title" binding:"omitempty,min=2,max=120"`
	Message  *string      `json:"message" binding:"omitempty,min=6,max=2000"`
	Level    *string      `json:"level" binding:"omitempty,max=16"`
	IsActive *bool        `json:"is_active"`
	StartsAt NullableTime `json:"starts_at"`
	EndsAt   NullableTime `json:"ends_at"`
}

// NullableTime tells an absent field apart from an explicit null.
type NullableTime struct {
	Set  bool
	Time *time.Time
}

func (n *NullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	n.Time = &t
	return nil
}
