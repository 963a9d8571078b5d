package domain

import (
	"time"

	"github.com/google/uuid"
)

// APICallLog records one outbound call to a provider or gateway.
type APICallLog struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Service    string     `json:"service"`
	Endpoint   string     `json:"endpoint"`
	StatusCode int        `json:"status_code"`
	DurationMS int64      `json:"duration_ms"`
	Reference  string     `json:"reference,omitempty"`
	Success    bool       `json:"success"`
	CreatedAt  time.Time  `json:"created_at"`
}
