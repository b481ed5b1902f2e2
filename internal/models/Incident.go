package models

import (
	"math"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type IncidentType string

const (
	IncidentMechanical IncidentType = "mechanical"
	IncidentAccident   IncidentType = "accident"
	IncidentTraffic    IncidentType = "traffic"
	IncidentWeather    IncidentType = "weather"
	IncidentPassenger  IncidentType = "passenger"
	IncidentSecurity   IncidentType = "security"
	IncidentOther      IncidentType = "other"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentMechanical, IncidentAccident, IncidentTraffic, IncidentWeather,
		IncidentPassenger, IncidentSecurity, IncidentOther:
		return true
	}
	return false
}

type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type IncidentStatus string

const (
	IncidentReported      IncidentStatus = "reported"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentInProgress    IncidentStatus = "in-progress"
	IncidentResolved      IncidentStatus = "resolved"
	IncidentClosed        IncidentStatus = "closed"
)

func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentReported, IncidentInvestigating, IncidentInProgress, IncidentResolved, IncidentClosed:
		return true
	}
	return false
}

// ReportedBy is a snapshot of the reporting user at report time.
type ReportedBy struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

type AssignedTo struct {
	UserID     *uint      `json:"user_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

type IncidentLocation struct {
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// RelatedSchedule links an incident to the trip it happened on, when the
// reporting driver had one in progress.
type RelatedSchedule struct {
	ScheduleID  *uint  `json:"schedule_id,omitempty"`
	RouteNumber string `json:"route_number,omitempty"`
	BusNumber   string `json:"bus_number,omitempty"`
}

type Resolution struct {
	Description    string         `json:"description,omitempty"`
	ResolvedByID   *uint          `json:"resolved_by_id,omitempty"`
	ResolvedByName string         `json:"resolved_by_name,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	ActionsTaken   pq.StringArray `json:"actions_taken,omitempty" gorm:"type:text"`
}

type Impact struct {
	AffectedRoutes     pq.StringArray `json:"affected_routes,omitempty" gorm:"type:text"`
	EstimatedDelay     int            `json:"estimated_delay"` // minutes
	PassengersAffected int            `json:"passengers_affected"`
}

type Incident struct {
	gorm.Model

	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        IncidentType     `json:"type" gorm:"index"`
	Severity    IncidentSeverity `json:"severity" gorm:"index;default:medium"`
	Status      IncidentStatus   `json:"status" gorm:"index;default:reported"`

	ReportedBy      ReportedBy       `json:"reported_by" gorm:"embedded;embeddedPrefix:reported_by_"`
	AssignedTo      AssignedTo       `json:"assigned_to" gorm:"embedded;embeddedPrefix:assigned_to_"`
	Location        IncidentLocation `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	RelatedSchedule RelatedSchedule  `json:"related_schedule" gorm:"embedded;embeddedPrefix:related_"`
	Resolution      Resolution       `json:"resolution" gorm:"embedded;embeddedPrefix:resolution_"`
	Impact          Impact           `json:"impact" gorm:"embedded;embeddedPrefix:impact_"`
}

// ResponseTime is minutes from report to assignment, nil while unassigned.
func (i *Incident) ResponseTime() *int {
	if i.AssignedTo.AssignedAt == nil {
		return nil
	}
	m := int(math.Ceil(i.AssignedTo.AssignedAt.Sub(i.CreatedAt).Minutes()))
	return &m
}

// ResolutionTime is hours from report to resolution, nil while unresolved.
func (i *Incident) ResolutionTime() *int {
	if i.Resolution.ResolvedAt == nil {
		return nil
	}
	h := int(math.Ceil(i.Resolution.ResolvedAt.Sub(i.CreatedAt).Hours()))
	return &h
}

// AgeHours is hours since the incident was reported.
func (i *Incident) AgeHours() int {
	return int(math.Ceil(time.Since(i.CreatedAt).Hours()))
}

// BeforeSave stamps the resolution time the first time an incident reaches
// resolved status. An already-set stamp is never overwritten.
func (i *Incident) BeforeSave(tx *gorm.DB) error {
	if i.Status == IncidentResolved && i.Resolution.ResolvedAt == nil {
		now := time.Now()
		i.Resolution.ResolvedAt = &now
	}
	return nil
}
