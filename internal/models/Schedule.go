package models

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
)

// ScheduleStatus is the closed set of schedule lifecycle states.
type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "scheduled"
	ScheduleInProgress ScheduleStatus = "in-progress"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleCancelled  ScheduleStatus = "cancelled"
	ScheduleDelayed    ScheduleStatus = "delayed"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleScheduled, ScheduleInProgress, ScheduleCompleted, ScheduleCancelled, ScheduleDelayed:
		return true
	}
	return false
}

var (
	ErrArrivalNotAfterDeparture = errors.New("arrival time must be after departure time")
	ErrActualArrivalNotAfter    = errors.New("actual arrival time must be after actual departure time")
)

// ScheduleLocation is the last reported bus position. Last-write-wins:
// out-of-order reports simply overwrite each other.
type ScheduleLocation struct {
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	LastUpdated *time.Time `json:"last_updated"`
}

// CompletedStop records a stop the bus has already served on this trip.
type CompletedStop struct {
	gorm.Model

	ScheduleID     uint      `json:"schedule_id" gorm:"index"`
	StopID         string    `json:"stop_id"`
	ArrivalTime    time.Time `json:"arrival_time"`
	BoardingCount  int       `json:"boarding_count"`
	AlightingCount int       `json:"alighting_count"`
}

type Schedule struct {
	gorm.Model

	RouteID uint  `json:"route_id" gorm:"index"`
	Route   Route `json:"route,omitempty" gorm:"foreignKey:RouteID"`

	DriverID uint `json:"driver_id" gorm:"index"`
	Driver   User `json:"driver,omitempty" gorm:"foreignKey:DriverID"`

	BusNumber     string         `json:"bus_number" gorm:"index"`
	DepartureTime time.Time      `json:"departure_time" gorm:"index"`
	ArrivalTime   time.Time      `json:"arrival_time"`
	Status        ScheduleStatus `json:"status" gorm:"index;default:scheduled"`

	ActualDepartureTime *time.Time `json:"actual_departure_time,omitempty"`
	ActualArrivalTime   *time.Time `json:"actual_arrival_time,omitempty"`
	DelayReason         string     `json:"delay_reason,omitempty"`

	PassengerCount int    `json:"passenger_count"`
	MaxCapacity    int    `json:"max_capacity" gorm:"default:50"`
	Notes          string `json:"notes,omitempty"`

	CurrentLocation ScheduleLocation `json:"current_location" gorm:"embedded;embeddedPrefix:location_"`
	CompletedStops  []CompletedStop  `json:"completed_stops,omitempty" gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE;"`
}

// ScheduledDuration is the planned trip length in minutes.
func (s *Schedule) ScheduledDuration() int {
	if s.DepartureTime.IsZero() || s.ArrivalTime.IsZero() {
		return 0
	}
	return int(math.Ceil(s.ArrivalTime.Sub(s.DepartureTime).Minutes()))
}

// ActualDuration is the realized trip length in minutes, 0 until both
// actual times are recorded.
func (s *Schedule) ActualDuration() int {
	if s.ActualDepartureTime == nil || s.ActualArrivalTime == nil {
		return 0
	}
	return int(math.Ceil(s.ActualArrivalTime.Sub(*s.ActualDepartureTime).Minutes()))
}

// OccupancyRate is passenger count over capacity as a rounded percentage.
func (s *Schedule) OccupancyRate() int {
	if s.MaxCapacity <= 0 {
		return 0
	}
	return int(math.Round(float64(s.PassengerCount) / float64(s.MaxCapacity) * 100))
}

// DelayMinutes is how late the bus departed, never negative, 0 until the
// actual departure is recorded.
func (s *Schedule) DelayMinutes() int {
	if s.ActualDepartureTime == nil {
		return 0
	}
	delay := int(math.Ceil(s.ActualDepartureTime.Sub(s.DepartureTime).Minutes()))
	if delay < 0 {
		return 0
	}
	return delay
}

// AvailableSeats is remaining capacity, floored at zero.
func (s *Schedule) AvailableSeats() int {
	seats := s.MaxCapacity - s.PassengerCount
	if seats < 0 {
		return 0
	}
	return seats
}

// BeforeSave rejects schedules whose time pairs are out of order. Zero
// times are skipped so partial column updates are unaffected.
func (s *Schedule) BeforeSave(tx *gorm.DB) error {
	if !s.DepartureTime.IsZero() && !s.ArrivalTime.IsZero() && !s.DepartureTime.Before(s.ArrivalTime) {
		return ErrArrivalNotAfterDeparture
	}
	if s.ActualDepartureTime != nil && s.ActualArrivalTime != nil && !s.ActualDepartureTime.Before(*s.ActualArrivalTime) {
		return ErrActualArrivalNotAfter
	}
	return nil
}
