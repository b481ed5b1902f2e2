// Package validation collects field-level violations so an API response can
// report every failed field, not just the first one.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var hhmmPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Violations struct {
	errs []FieldError
}

func (v *Violations) Add(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

func (v *Violations) Empty() bool {
	return len(v.errs) == 0
}

func (v *Violations) Errors() []FieldError {
	return v.errs
}

// Require flags an empty string after trimming.
func (v *Violations) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, field+" is required")
	}
}

// Length flags a trimmed string outside [min, max]. Empty optional values
// should be guarded by the caller.
func (v *Violations) Length(field, value string, min, max int) {
	n := len(strings.TrimSpace(value))
	if n < min || n > max {
		v.Add(field, fmt.Sprintf("%s must be between %d and %d characters", field, min, max))
	}
}

// MaxLength flags a string longer than max.
func (v *Violations) MaxLength(field, value string, max int) {
	if len(strings.TrimSpace(value)) > max {
		v.Add(field, fmt.Sprintf("%s cannot exceed %d characters", field, max))
	}
}

// Email flags a malformed email address.
func (v *Violations) Email(field, value string) {
	if !emailPattern.MatchString(value) {
		v.Add(field, "Please provide a valid email")
	}
}

// Min flags a number below a floor.
func (v *Violations) Min(field string, value, min float64) {
	if value < min {
		v.Add(field, fmt.Sprintf("%s must be at least %v", field, min))
	}
}

// Range flags a number outside [min, max].
func (v *Violations) Range(field string, value, min, max float64) {
	if value < min || value > max {
		v.Add(field, fmt.Sprintf("%s must be between %v and %v", field, min, max))
	}
}

// Latitude flags a latitude outside [-90, 90].
func (v *Violations) Latitude(field string, value float64) {
	if value < -90 || value > 90 {
		v.Add(field, "Latitude must be between -90 and 90")
	}
}

// Longitude flags a longitude outside [-180, 180].
func (v *Violations) Longitude(field string, value float64) {
	if value < -180 || value > 180 {
		v.Add(field, "Longitude must be between -180 and 180")
	}
}

// TimeHHMM flags a string that is not a 24-hour HH:MM clock time.
func (v *Violations) TimeHHMM(field, value string) {
	if !hhmmPattern.MatchString(value) {
		v.Add(field, "Invalid time format")
	}
}
