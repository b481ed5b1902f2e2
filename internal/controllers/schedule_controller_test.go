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

func TestCreateScheduleValidation(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	departure := time.Now().Add(time.Hour)

	t.Run("arrival must follow departure", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/admin/schedules", adminToken, map[string]interface{}{
			"routeId":       route.ID,
			"driverId":      driver.ID,
			"busNumber":     "aa-100",
			"departureTime": departure.Format(time.RFC3339),
			"arrivalTime":   departure.Add(-time.Minute).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/admin/schedules", adminToken, map[string]interface{}{
			"routeId":       route.ID,
			"driverId":      99999,
			"busNumber":     "aa-100",
			"departureTime": departure.Format(time.RFC3339),
			"arrivalTime":   departure.Add(45 * time.Minute).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("valid schedule created with normalized bus number", func(t *testing.T) {
		w := doRequest(t, r, http.MethodPost, "/api/admin/schedules", adminToken, map[string]interface{}{
			"routeId":       route.ID,
			"driverId":      driver.ID,
			"busNumber":     " aa-100 ",
			"departureTime": departure.Format(time.RFC3339),
			"arrivalTime":   departure.Add(45 * time.Minute).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "AA-100", data["bus_number"])
		assert.Equal(t, "scheduled", data["status"])
		assert.Equal(t, float64(45), data["scheduled_duration"])
	})
}

func TestUpdateScheduleStatus(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	s := createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, time.Now().Add(time.Hour))

	w := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/admin/schedules/%d/status", s.ID), adminToken,
		map[string]string{"status": "delayed", "delayReason": "Road closure at Mexico Square"})
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Schedule
	require.NoError(t, config.DB.First(&reloaded, s.ID).Error)
	assert.Equal(t, models.ScheduleDelayed, reloaded.Status)
	assert.Equal(t, "Road closure at Mexico Square", reloaded.DelayReason)

	w = doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/admin/schedules/%d/status", s.ID), adminToken,
		map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkGenerateSchedules(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	day := time.Now().AddDate(0, 0, 7)
	date := day.Format("2006-01-02")

	// Pre-existing trip occupying the 08:00 slot for the same driver.
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, startOfDay.Add(8*time.Hour))

	operatingStart := "08:00"
	operatingEnd := "10:00"
	frequency := 60

	w := doRequest(t, r, http.MethodPost, "/api/admin/schedules/bulk", adminToken, map[string]interface{}{
		"routeId":        route.ID,
		"driverId":       driver.ID,
		"busNumber":      "AA-001",
		"startDate":      date,
		"endDate":        date,
		"operatingStart": operatingStart,
		"operatingEnd":   operatingEnd,
		"frequency":      frequency,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	created := data["created"].([]interface{})
	conflicts := data["conflicts"].([]interface{})

	// Slots at 08:00, 09:00 and 10:00; the 08:00 one overlaps the existing
	// trip (route duration 45m) and is skipped.
	assert.Len(t, created, 2)
	assert.Len(t, conflicts, 1)

	var count int64
	require.NoError(t, config.DB.Model(&models.Schedule{}).Count(&count).Error)
	assert.Equal(t, int64(3), count) // the seed plus two generated
}

func TestBulkGenerateRejectsOversizedRange(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	start := time.Now().AddDate(0, 0, 7)

	w := doRequest(t, r, http.MethodPost, "/api/admin/schedules/bulk", adminToken, map[string]interface{}{
		"routeId":   route.ID,
		"driverId":  driver.ID,
		"busNumber": "AA-001",
		"startDate": start.Format("2006-01-02"),
		"endDate":   start.AddDate(0, 0, 60).Format("2006-01-02"),
		"frequency": 5,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "limit")
}

func TestDeleteSchedule(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	driver, _ := createUser(t, models.RoleDriver)
	route := createRoute(t)

	s := createSchedule(t, route.ID, driver.ID, models.ScheduleScheduled, time.Now().Add(time.Hour))

	w := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/schedules/%d", s.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/schedules/%d", s.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
