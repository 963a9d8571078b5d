package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const maxReferenceLen = 64

// NewReference returns "{PREFIX}_{16 hex chars}".
func NewReference(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to a uuid slice.
		return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}
	return prefix + "_" + hex.EncodeToString(b[:])
}

// AdminFundReference is the ledger reference used for manual admin credits.
func AdminFundReference(userID uuid.UUID) string {
	return "ADMIN_" + userID.String()
}

// SanitizeReference keeps [A-Za-z0-9_-] and truncates to the stored width.
// Used when a gateway-supplied id becomes an internal reference.
func SanitizeReference(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= maxReferenceLen {
			break
		}
	}
	return b.String()
}
