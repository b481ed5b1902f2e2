package models

import (
	"strings"

	"gorm.io/gorm"
)

// Route represents a bus service path with its ordered stops.
// Geometry holds the stop sequence as a WKB LINESTRING (SRID 4326);
// controllers rebuild it whenever the stops change and render it as GeoJSON.
type Route struct {
	gorm.Model

	Name        string `json:"name" gorm:"uniqueIndex"`
	RouteNumber string `json:"route_number" gorm:"uniqueIndex"`
	Description string `json:"description"`

	Stops []Stop `json:"stops,omitempty" gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	TotalDistance     float64 `json:"total_distance"`     // kilometers
	EstimatedDuration int     `json:"estimated_duration"` // minutes
	Fare              float64 `json:"fare"`
	// No default tag: GORM drops defaulted zero-value fields from the
	// INSERT, so a route created inactive would be persisted active.
	IsActive bool `json:"is_active"`

	OperatingStart string `json:"operating_start"` // HH:MM
	OperatingEnd   string `json:"operating_end"`   // HH:MM
	Frequency      int    `json:"frequency"`       // minutes between buses, 5..120

	Geometry []byte `json:"-" gorm:"type:bytea"`
}

// Stop is a named point along a route. Seq starts at 1 and defines the
// travel order; EstimatedTime is minutes from the route start.
type Stop struct {
	gorm.Model

	RouteID       uint    `json:"route_id" gorm:"index"`
	Name          string  `json:"name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	EstimatedTime int     `json:"estimated_time"`
	Seq           int     `json:"order" gorm:"column:seq"`
}

// StopCount is the number of stops, recomputed on every read.
func (r *Route) StopCount() int {
	return len(r.Stops)
}

// DisplayStatus maps IsActive to the dashboard status string.
func (r *Route) DisplayStatus() string {
	if r.IsActive {
		return "Active"
	}
	return "Inactive"
}

// BeforeSave normalizes the route number to uppercase.
func (r *Route) BeforeSave(tx *gorm.DB) error {
	r.RouteNumber = strings.ToUpper(strings.TrimSpace(r.RouteNumber))
	return nil
}
