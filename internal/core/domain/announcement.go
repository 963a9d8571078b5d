package domain

import (
	"fmt"
	"strings"
	"time"
)

// AnnouncementLevel sets how prominently clients show an announcement.
type AnnouncementLevel string

const (
	AnnouncementInfo     AnnouncementLevel = "info"
	AnnouncementSuccess  AnnouncementLevel = "success"
	AnnouncementWarning  AnnouncementLevel = "warning"
	AnnouncementCritical AnnouncementLevel = "critical"
)

// ParseAnnouncementLevel is case-insensitive and defaults to info when s is blank.
func ParseAnnouncementLevel(s string) (AnnouncementLevel, error) {
	switch l := AnnouncementLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return AnnouncementInfo, nil
	case AnnouncementInfo, AnnouncementSuccess, AnnouncementWarning, AnnouncementCritical:
		return l, nil
	default:
		return "", fmt.Errorf("invalid announcement level %q", s)
	}
}

// Announcement is a broadcast message shown to every signed-in user while it
// is active and inside its optional display window.
type Announcement struct {
	ID             int64             `json:"id"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Level          AnnouncementLevel `json:"level"`
	IsActive       bool              `json:"is_active"`
	StartsAt       *time.Time        `json:"starts_at"`
	EndsAt         *time.Time        `json:"ends_at"`
	CreatedByEmail string            `json:"created_by_email,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// LiveAt reports whether the announcement should be shown at t. Window
// bounds are inclusive.
func (a *Announcement) LiveAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartsAt != nil && t.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && t.After(*a.EndsAt) {
		return false
	}
	return true
}

// ValidWindow rejects a window whose end is not after its start.
func (a *Announcement) ValidWindow() bool {
	return a.StartsAt == nil || a.EndsAt == nil || a.EndsAt.After(*a.StartsAt)
}
