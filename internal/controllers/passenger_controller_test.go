package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
)

func TestPublicRoutesListsOnlyActive(t *testing.T) {
	r := setupTest(t)
	route := createRoute(t)

	inactive := models.Route{Name: "Old Line", RouteNumber: "R99", IsActive: false}
	require.NoError(t, config.DB.Create(&inactive).Error)

	w := doRequest(t, r, http.MethodGet, "/api/passenger/routes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, route.RouteNumber, first["route_number"])
	assert.Equal(t, float64(3), first["stop_count"])

	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/routes/%d", inactive.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchRoutes(t *testing.T) {
	r := setupTest(t)
	createRoute(t) // Bole Airport -> Meskel Square -> Piassa, fare 15

	t.Run("match in travel direction", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/passenger/search?from=bole&to=piassa", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeBody(t, w)["data"].([]interface{})
		require.Len(t, data, 1)
		match := data[0].(map[string]interface{})
		assert.Equal(t, "Bole Airport", match["from_stop"])
		assert.Equal(t, "Piassa", match["to_stop"])
		assert.Equal(t, float64(45), match["segment_duration"])
		assert.Equal(t, float64(15), match["segment_fare"]) // full span, full fare
	})

	t.Run("partial span prorates the fare", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/passenger/search?from=bole&to=meskel", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeBody(t, w)["data"].([]interface{})
		require.Len(t, data, 1)
		match := data[0].(map[string]interface{})
		assert.Equal(t, float64(20), match["segment_duration"])
		assert.Equal(t, float64(7.5), match["segment_fare"]) // half the stop span
	})

	t.Run("reverse direction does not match", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/passenger/search?from=piassa&to=bole", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody(t, w)["data"], 0)
	})

	t.Run("queries must be at least two characters", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/passenger/search?from=b&to=", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPublicSchedulesAvailability(t *testing.T) {
	r := setupTest(t)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	s := createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, startOfDay.Add(9*time.Hour))
	require.NoError(t, config.DB.Model(&s).Update("passenger_count", 42).Error)
	// Completed trips are not offered to passengers.
	createSchedule(t, route.ID, driver.ID, models.ScheduleCompleted, startOfDay.Add(6*time.Hour))

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/schedules?routeId=%d", route.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.Equal(t, float64(8), entry["available_seats"])
	assert.Equal(t, "limited", entry["availability_status"]) // 84% occupancy

	w = doRequest(t, r, http.MethodGet, "/api/passenger/schedules", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityBands(t *testing.T) {
	r := setupTest(t)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	bands := []struct {
		passengers int
		want       string
	}{
		{passengers: 50, want: "full"},
		{passengers: 40, want: "limited"},
		{passengers: 25, want: "moderate"},
		{passengers: 10, want: "available"},
	}
	for i, b := range bands {
		s := createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, startOfDay.Add(time.Duration(8+i)*time.Hour))
		require.NoError(t, config.DB.Model(&s).Update("passenger_count", b.passengers).Error)
	}

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/schedules?routeId=%d", route.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, data, len(bands))
	for i, b := range bands {
		entry := data[i].(map[string]interface{})
		assert.Equal(t, b.want, entry["availability_status"], "passengers=%d", b.passengers)
	}
}

func TestScheduleTracking(t *testing.T) {
	r := setupTest(t)
	driver, token := createUser(t, models.RoleDriver)
	route := createRoute(t)

	s := createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, time.Now())

	// Tracking is only available for trips in progress.
	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/schedules/%d/tracking", s.ID), "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodPut, fmt.Sprintf("/api/driver/schedules/%d/start", s.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodPut, fmt.Sprintf("/api/driver/schedules/%d/location", s.ID), token,
		map[string]float64{"latitude": 9.0107, "longitude": 38.7612})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/schedules/%d/tracking", s.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	arrivals := data["estimatedArrivals"].([]interface{})
	require.Len(t, arrivals, 3)

	first := arrivals[0].(map[string]interface{})
	assert.Equal(t, "Bole Airport", first["stop_name"])
	assert.Equal(t, true, first["is_passed"]) // departure stop counts as passed

	last := arrivals[2].(map[string]interface{})
	assert.Equal(t, "Piassa", last["stop_name"])
	assert.Equal(t, false, last["is_passed"])

	location := data["currentLocation"].(map[string]interface{})
	assert.InDelta(t, 9.0107, location["latitude"].(float64), 1e-6)
}
