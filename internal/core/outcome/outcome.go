// Package outcome turns loosely-structured fulfillment provider responses
// into a settlement decision.
//
// Parsing (ParseSignal) is kept apart from the decision table (Classify) so
// the table can be tested without any transport.
package outcome

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the settlement decision for a provider response.
type Status string

const (
	Success Status = "success"
	Failed  Status = "failed"
	Pending Status = "pending"
)

const (
	maxReasonLen     = 255
	defaultReason    = "Data provider rejected purchase"
	emptyReasonValue = "Unknown provider error"
)

var (
	successStatuses = set("success", "successful", "delivered", "completed", "ok", "done")
	pendingStatuses = set("pending", "processing", "queued", "in_progress", "accepted", "submitted")
	failureStatuses = set("failed", "fail", "error", "rejected", "declined", "cancelled", "canceled", "refunded")

	successHints = []string{"successfully", "delivered", "gifted", "completed"}
	failureHints = []string{"failed", "unsuccessful", "unable", "error", "rejected", "declined", "cancelled", "canceled"}
	pendingHints = []string{"pending", "processing", "queued", "in progress", "submitted"}

	truthy = set("true", "1", "yes", "ok", "success", "successful", "delivered")
	falsy  = set("false", "0", "no", "failed", "fail", "error", "unsuccessful")
)

// Signal is the typed view of a provider response.
type Signal struct {
	Status      string // status | delivery_status | state
	Message     string // message | detail
	Error       string // error | errors
	SuccessFlag *bool  // nil when absent or unrecognised
}

// Basis explains why a Pending decision was reached.
type Basis string

const (
	BasisSignal      Basis = "signal"      // explicit success, failure or pending signal
	BasisConflicting Basis = "conflicting" // success and failure signals both present
	BasisNoSignal    Basis = "no_signal"   // nothing recognised
)

// Result is the classifier decision. Reason is set only for Failed.
type Result struct {
	Status Status
	Reason string
	Basis  Basis
}

// ParseSignal extracts the fields the decision table looks at.
func ParseSignal(raw map[string]any) Signal {
	return Signal{
		Status:      firstText(raw, "status", "delivery_status", "state"),
		Message:     firstText(raw, "message", "detail"),
		Error:       firstText(raw, "error", "errors"),
		SuccessFlag: parseFlag(raw["success"]),
	}
}

// ClassifyResponse parses and classifies a raw provider response.
func ClassifyResponse(raw map[string]any) Result {
	return Classify(ParseSignal(raw))
}

// Classify applies the decision table. Conflicting success and failure
// signals never yield Success.
func Classify(sig Signal) Result {
	status := normalize(sig.Status)
	message := normalize(sig.Message)
	errText := normalize(sig.Error)

	successSignal := (sig.SuccessFlag != nil && *sig.SuccessFlag) ||
		successStatuses[status] ||
		containsAny(message, successHints)

	failureSignal := (sig.SuccessFlag != nil && !*sig.SuccessFlag) ||
		failureStatuses[status] ||
		errText != "" ||
		containsAny(message, failureHints)

	pendingSignal := pendingStatuses[status] || containsAny(message, pendingHints)

	switch {
	case successSignal && !failureSignal:
		return Result{Status: Success, Basis: BasisSignal}
	case failureSignal && !successSignal:
		return Result{Status: Failed, Reason: failureReason(sig), Basis: BasisSignal}
	case successSignal && failureSignal:
		return Result{Status: Pending, Basis: BasisConflicting}
	case pendingSignal:
		return Result{Status: Pending, Basis: BasisSignal}
	default:
		return Result{Status: Pending, Basis: BasisNoSignal}
	}
}

func failureReason(sig Signal) string {
	reason := strings.TrimSpace(sig.Message)
	if reason == "" {
		reason = strings.TrimSpace(sig.Error)
	}
	if reason == "" {
		reason = defaultReason
	}
	return TruncateReason(reason)
}

// TruncateReason bounds a failure reason to the stored column width.
func TruncateReason(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return emptyReasonValue
	}
	if r := []rune(s); len(r) > maxReasonLen {
		return string(r[:maxReasonLen])
	}
	return s
}

func parseFlag(v any) *bool {
	var b bool
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		b = t
	case float64:
		if t != 0 && t != 1 {
			return nil
		}
		b = t == 1
	case int:
		if t != 0 && t != 1 {
			return nil
		}
		b = t == 1
	case json.Number:
		switch t.String() {
		case "1":
			b = true
		case "0":
			b = false
		default:
			return nil
		}
	default:
		raw := normalize(textOf(v))
		switch {
		case truthy[raw]:
			b = true
		case falsy[raw]:
			b = false
		default:
			return nil
		}
	}
	return &b
}

func firstText(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(textOf(raw[k])); s != "" {
			return s
		}
	}
	return ""
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(textOf(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, hints []string) bool {
	if text == "" {
		return false
	}
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
