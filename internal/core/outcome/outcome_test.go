package outcome

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		status Status
		reason string
		basis  Basis
	}{
		{
			name:   "string flag and gifted message",
			raw:    map[string]any{"success": "true", "status": "", "message": "Dear Customer, You have successfully gifted 1GB data."},
			status: Success,
			basis:  BasisSignal,
		},
		{
			name:   "explicit failure keeps message as reason",
			raw:    map[string]any{"success": false, "status": "failed", "message": "Plan not available."},
			status: Failed,
			reason: "Plan not available.",
			basis:  BasisSignal,
		},
		{
			name:   "success flag with failed status is conflicting",
			raw:    map[string]any{"success": true, "status": "failed"},
			status: Pending,
			basis:  BasisConflicting,
		},
		{
			name:   "false flag with success hint is conflicting",
			raw:    map[string]any{"success": false, "message": "Data successfully delivered"},
			status: Pending,
			basis:  BasisConflicting,
		},
		{
			name:   "processing alone is pending",
			raw:    map[string]any{"status": "processing"},
			status: Pending,
			basis:  BasisSignal,
		},
		{
			name:   "error text alone fails with that reason",
			raw:    map[string]any{"error": "Plan unavailable"},
			status: Failed,
			reason: "Plan unavailable",
			basis:  BasisSignal,
		},
		{
			name:   "network busy",
			raw:    map[string]any{"success": false, "message": "Network busy"},
			status: Failed,
			reason: "Network busy",
			basis:  BasisSignal,
		},
		{
			name:   "empty response",
			raw:    map[string]any{},
			status: Pending,
			basis:  BasisNoSignal,
		},
		{
			name:   "delivery_status fallback",
			raw:    map[string]any{"delivery_status": "Delivered"},
			status: Success,
			basis:  BasisSignal,
		},
		{
			name:   "state refunded is a failure",
			raw:    map[string]any{"state": "refunded"},
			status: Failed,
			reason: defaultReason,
			basis:  BasisSignal,
		},
		{
			name:   "numeric flag one",
			raw:    map[string]any{"success": float64(1)},
			status: Success,
			basis:  BasisSignal,
		},
		{
			name:   "numeric flag two is unrecognised",
			raw:    map[string]any{"success": float64(2)},
			status: Pending,
			basis:  BasisNoSignal,
		},
		{
			name:   "errors list joined into reason",
			raw:    map[string]any{"errors": []any{"invalid phone", "plan disabled"}},
			status: Failed,
			reason: "invalid phone; plan disabled",
			basis:  BasisSignal,
		},
		{
			name:   "empty errors list is not an error",
			raw:    map[string]any{"errors": []any{}, "status": "ok"},
			status: Success,
			basis:  BasisSignal,
		},
		{
			name:   "detail used when message missing",
			raw:    map[string]any{"detail": "Request was declined by network"},
			status: Failed,
			reason: "Request was declined by network",
			basis:  BasisSignal,
		},
		{
			name:   "submitted success message with pending status",
			raw:    map[string]any{"success": false, "status": "processing", "message": "Request submitted successfully and is pending."},
			status: Pending,
			basis:  BasisConflicting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResponse(tt.raw)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.basis, got.Basis)
		})
	}
}

func TestClassify_NeverSuccessOnConflict(t *testing.T) {
	statuses := []string{"", "success", "failed", "processing", "weird"}
	messages := []string{"", "successfully done", "failed to deliver", "pending"}
	flags := []*bool{nil, boolPtr(true), boolPtr(false)}
	errs := []string{"", "boom"}

	for _, st := range statuses {
		for _, msg := range messages {
			for _, fl := range flags {
				for _, e := range errs {
					sig := Signal{Status: st, Message: msg, Error: e, SuccessFlag: fl}
					got := Classify(sig)
					if got.Status == Success {
						assert.Empty(t, e, "error text must block success: %+v", sig)
						assert.False(t, fl != nil && !*fl, "false flag must block success: %+v", sig)
					}
					if got.Status != Failed {
						assert.Empty(t, got.Reason)
					}
				}
			}
		}
	}
}

func TestParseSignal_FromJSON(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"success":0,"status":"","state":"queued","detail":"Queued for delivery","errors":{"plan":["bad"]}}`), &raw))

	sig := ParseSignal(raw)
	require.NotNil(t, sig.SuccessFlag)
	assert.False(t, *sig.SuccessFlag)
	assert.Equal(t, "queued", sig.Status)
	assert.Equal(t, "Queued for delivery", sig.Message)
	assert.Equal(t, `{"plan":["bad"]}`, sig.Error)
}

func TestParseFlag_Synonyms(t *testing.T) {
	for _, v := range []any{"YES", "ok", "Delivered", true, float64(1), json.Number("1")} {
		f := parseFlag(v)
		require.NotNil(t, f, "%v", v)
		assert.True(t, *f, "%v", v)
	}
	for _, v := range []any{"no", "Unsuccessful", false, float64(0), "0"} {
		f := parseFlag(v)
		require.NotNil(t, f, "%v", v)
		assert.False(t, *f, "%v", v)
	}
	assert.Nil(t, parseFlag("maybe"))
	assert.Nil(t, parseFlag(nil))
}

func TestTruncateReason(t *testing.T) {
	assert.Len(t, TruncateReason(strings.Repeat("a", 400)), maxReasonLen)
	assert.Equal(t, emptyReasonValue, TruncateReason("   "))

	// A multi-byte rune straddling the byte limit is kept whole.
	got := TruncateReason(strings.Repeat("a", 254) + "₦ charged twice")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxReasonLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "a₦"))

	short := "Recharge of ₦500 failed"
	assert.Equal(t, short, TruncateReason(short))
}
