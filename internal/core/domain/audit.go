package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister           AuditAction = "REGISTER"
	AuditActionLogin              AuditAction = "LOGIN"
	AuditActionAdminFund          AuditAction = "ADMIN_FUND_WALLET"
	AuditActionPricingUpsert      AuditAction = "PRICING_UPSERT"
	AuditActionUserSuspend        AuditAction = "USER_SUSPEND"
	AuditActionUserActivate       AuditAction = "USER_ACTIVATE"
	AuditActionWalletLock         AuditAction = "WALLET_LOCK"
	AuditActionWalletUnlock       AuditAction = "WALLET_UNLOCK"
	AuditActionPlanSync           AuditAction = "PLAN_SYNC"
	AuditActionWalletFundInit     AuditAction = "WALLET_FUND_INIT"
	AuditActionAnnouncementCreate AuditAction = "ANNOUNCEMENT_CREATE"
	AuditActionAnnouncementUpdate AuditAction = "ANNOUNCEMENT_UPDATE"
)

// AuditLog records a single audited action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

type clientIPKey struct{}

// WithClientIP returns ctx carrying the caller's IP address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the IP stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
