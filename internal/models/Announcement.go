package models

import (
	"time"

	"gorm.io/gorm"
)

type AnnouncementType string

const (
	AnnouncementInfo    AnnouncementType = "info"
	AnnouncementWarning AnnouncementType = "warning"
	AnnouncementSuccess AnnouncementType = "success"
)

func (t AnnouncementType) Valid() bool {
	switch t {
	case AnnouncementInfo, AnnouncementWarning, AnnouncementSuccess:
		return true
	}
	return false
}

type AnnouncementPriority string

const (
	PriorityLow    AnnouncementPriority = "low"
	PriorityMedium AnnouncementPriority = "medium"
	PriorityHigh   AnnouncementPriority = "high"
)

func (p AnnouncementPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Announcement is a rider-facing notice shown on the passenger portal.
type Announcement struct {
	gorm.Model

	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Type     AnnouncementType     `json:"type" gorm:"default:info"`
	Priority AnnouncementPriority `json:"priority" gorm:"default:medium"`
	IsActive bool                 `json:"is_active"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
