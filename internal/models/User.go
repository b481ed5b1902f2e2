package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDriver, RolePassenger:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    string `json:"-"` // bcrypt hash, never serialized
	Role        Role   `json:"role" gorm:"index"`
	PhoneNumber string `json:"phone_number"`

	// Driver-specific fields, empty for other roles
	BusNumber       string `json:"bus_number,omitempty"`
	RouteAssignment string `json:"route_assignment,omitempty"`
	LicenseNumber   string `json:"license_number,omitempty"`

	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}
