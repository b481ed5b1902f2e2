package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequire(t *testing.T) {
	var v Violations
	v.Require("name", "Abebe")
	v.Require("email", "   ")
	v.Require("role", "")

	assert.False(t, v.Empty())
	assert.Len(t, v.Errors(), 2)
	assert.Equal(t, "email", v.Errors()[0].Field)
	assert.Equal(t, "role", v.Errors()[1].Field)
}

func TestLengthBounds(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		max     int
		wantErr bool
	}{
		{name: "within bounds", value: "Route 12", min: 2, max: 100},
		{name: "at minimum", value: "ab", min: 2, max: 100},
		{name: "too short", value: "a", min: 2, max: 100, wantErr: true},
		{name: "too long", value: "abcdef", min: 2, max: 5, wantErr: true},
		{name: "whitespace trimmed before measuring", value: "  a  ", min: 2, max: 5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Violations
			v.Length("field", tt.value, tt.min, tt.max)
			assert.Equal(t, tt.wantErr, !v.Empty())
		})
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"driver@ethiobus.et", "a.b+c@example.com"}
	invalid := []string{"", "plain", "no@tld", "spaces in@example.com", "@example.com"}

	for _, e := range valid {
		var v Violations
		v.Email("email", e)
		assert.True(t, v.Empty(), e)
	}
	for _, e := range invalid {
		var v Violations
		v.Email("email", e)
		assert.False(t, v.Empty(), e)
	}
}

func TestCoordinates(t *testing.T) {
	var v Violations
	v.Latitude("latitude", 9.0054)
	v.Longitude("longitude", 38.7636)
	assert.True(t, v.Empty())

	v.Latitude("latitude", 91)
	v.Latitude("latitude", -90.5)
	v.Longitude("longitude", 180.1)
	assert.Len(t, v.Errors(), 3)
}

func TestTimeHHMM(t *testing.T) {
	valid := []string{"05:30", "5:30", "00:00", "23:59"}
	invalid := []string{"", "24:00", "12:60", "9:5", "noon", "12:30pm"}

	for _, s := range valid {
		var v Violations
		v.TimeHHMM("time", s)
		assert.True(t, v.Empty(), s)
	}
	for _, s := range invalid {
		var v Violations
		v.TimeHHMM("time", s)
		assert.False(t, v.Empty(), s)
	}
}

func TestNumericBounds(t *testing.T) {
	var v Violations
	v.Min("fare", 15, 0)
	v.Min("fare", -1, 0)
	v.Range("capacity", 50, 1, 100)
	v.Range("capacity", 120, 1, 100)
	assert.Len(t, v.Errors(), 2)
}
