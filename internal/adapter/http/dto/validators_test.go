package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	Register(v)
	return v
}

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Email:    "  ada@example.com  ",
		FullName: " Ada Lovelace ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "Ada Lovelace", req.FullName)
	assert.Equal(t, "  pass1234  ", req.Password, "passwords are never rewritten")
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := AdminFundRequest{Description: "refund <script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
		Nil  *string
	}
	note := "  hello  "
	req := withPtr{Note: &note}
	SanitizeStruct(&req)

	assert.Equal(t, "hello", *req.Note)
	assert.Nil(t, req.Nil)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := LoginRequest{Email: "  a@b.co "}
	SanitizeStruct(req)
	assert.Equal(t, "  a@b.co ", req.Email)
}

// --- Validator tests ---

func TestPhoneNG(t *testing.T) {
	v := newValidator()
	tests := []struct {
		phone string
		valid bool
	}{
		{"08031234567", true},
		{"07061234567", true},
		{"+2348031234567", true},
		{"2349031234567", true},
		{"0803123456", false},
		{"18031234567", false},
		{"0803123456a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := v.Var(tt.phone, "phone_ng")
			assert.Equal(t, tt.valid, err == nil)
		})
	}
}

func TestNetwork(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Var("mtn", "network"))
	assert.NoError(t, v.Var("9mobile", "network"))
	assert.Error(t, v.Var("vodafone", "network"))
}

func TestSafeRef(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Var("mtn:1001", "safe_ref"))
	assert.NoError(t, v.Var("DSTV-COMPACT_2", "safe_ref"))
	assert.Error(t, v.Var("1001; DROP TABLE", "safe_ref"))
	assert.Error(t, v.Var("", "safe_ref"))
}

func TestSafeURL(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Var("https://app.example.com/done", "safe_url"))
	assert.NoError(t, v.Var("", "safe_url"))
	assert.Error(t, v.Var("javascript:alert(1)", "safe_url"))
	assert.Error(t, v.Var("not a url", "safe_url"))
}

func TestDecimalAmounts(t *testing.T) {
	v := newValidator()

	ok := AirtimeRequest{Network: "mtn", Phone: "08031234567", Amount: decimal.NewFromInt(100)}
	assert.NoError(t, v.Struct(ok))

	zero := ok
	zero.Amount = decimal.Zero
	assert.Error(t, v.Struct(zero))

	negative := ok
	negative.Amount = decimal.NewFromInt(-5)
	assert.Error(t, v.Struct(negative))
}

func TestPricingRequest_Margins(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Struct(PricingRequest{Key: "data", Role: "user", Margin: decimal.Zero}))
	assert.NoError(t, v.Struct(PricingRequest{Key: "mtn", Role: "reseller", Margin: decimal.NewFromInt(-10)}))
	assert.Error(t, v.Struct(PricingRequest{Key: "data", Role: "admin"}))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "08031234567", NormalizePhone("+2348031234567"))
	assert.Equal(t, "08031234567", NormalizePhone("2348031234567"))
	assert.Equal(t, "08031234567", NormalizePhone(" 08031234567 "))
}
