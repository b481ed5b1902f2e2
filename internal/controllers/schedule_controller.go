package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

// ScheduleResponse mirrors models.Schedule with the derived fields included.
type ScheduleResponse struct {
	models.Schedule
	ScheduledDuration int `json:"scheduled_duration"`
	ActualDuration    int `json:"actual_duration"`
	OccupancyRate     int `json:"occupancy_rate"`
	DelayMinutes      int `json:"delay_minutes"`
}

func toScheduleResponse(s models.Schedule) ScheduleResponse {
	return ScheduleResponse{
		Schedule:          s,
		ScheduledDuration: s.ScheduledDuration(),
		ActualDuration:    s.ActualDuration(),
		OccupancyRate:     s.OccupancyRate(),
		DelayMinutes:      s.DelayMinutes(),
	}
}

func toScheduleResponses(schedules []models.Schedule) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleResponse(s))
	}
	return out
}

type scheduleInput struct {
	RouteID        *uint   `json:"routeId"`
	DriverID       *uint   `json:"driverId"`
	BusNumber      *string `json:"busNumber"`
	DepartureTime  *string `json:"departureTime"`
	ArrivalTime    *string `json:"arrivalTime"`
	MaxCapacity    *int    `json:"maxCapacity"`
	PassengerCount *int    `json:"passengerCount"`
	Notes          *string `json:"notes"`
}

func parseRFC3339(v *validation.Violations, field string, value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		v.Add(field, "Invalid date format")
	}
	return t
}

// fetchDriver resolves an active driver-role user, adding a violation
// otherwise.
func fetchDriver(v *validation.Violations, id uint) models.User {
	var driver models.User
	err := config.DB.Where("id = ? AND role = ?", id, models.RoleDriver).First(&driver).Error
	if err != nil {
		v.Add("driverId", "Driver not found")
	}
	return driver
}

// CreateSchedule registers a trip for a driver on a route. Admin only.
func CreateSchedule(c *gin.Context) {
	var input scheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	var departure, arrival time.Time
	if input.RouteID == nil {
		v.Add("routeId", "Route is required")
	}
	if input.DriverID == nil {
		v.Add("driverId", "Driver is required")
	}
	if input.BusNumber == nil || strings.TrimSpace(*input.BusNumber) == "" {
		v.Add("busNumber", "Bus number is required")
	}
	if input.DepartureTime == nil {
		v.Add("departureTime", "Departure time is required")
	} else {
		departure = parseRFC3339(&v, "departureTime", *input.DepartureTime)
	}
	if input.ArrivalTime == nil {
		v.Add("arrivalTime", "Arrival time is required")
	} else {
		arrival = parseRFC3339(&v, "arrivalTime", *input.ArrivalTime)
	}
	if !departure.IsZero() && !arrival.IsZero() && !departure.Before(arrival) {
		v.Add("arrivalTime", "Arrival time must be after departure time")
	}
	maxCapacity := 50
	if input.MaxCapacity != nil {
		maxCapacity = *input.MaxCapacity
		v.Min("maxCapacity", float64(maxCapacity), 1)
	}
	if input.Notes != nil {
		v.MaxLength("notes", *input.Notes, 500)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var route models.Route
	if err := config.DB.First(&route, *input.RouteID).Error; err != nil {
		v.Add("routeId", "Route not found")
	}
	fetchDriver(&v, *input.DriverID)
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	schedule := models.Schedule{
		RouteID:       *input.RouteID,
		DriverID:      *input.DriverID,
		BusNumber:     strings.ToUpper(strings.TrimSpace(*input.BusNumber)),
		DepartureTime: departure,
		ArrivalTime:   arrival,
		Status:        models.ScheduleScheduled,
		MaxCapacity:   maxCapacity,
		Notes:         stringOrEmpty(input.Notes),
	}
	if err := config.DB.Create(&schedule).Error; err != nil {
		internalError(c, "schedule creation failed", err)
		return
	}

	config.DB.Preload("Route").Preload("Driver").First(&schedule, schedule.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": toScheduleResponse(schedule)})
}

// UpdateSchedule modifies plan-level schedule fields. Admin only.
func UpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var schedule models.Schedule
	if err := config.DB.First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Schedule not found")
		} else {
			internalError(c, "schedule fetch failed", err)
		}
		return
	}

	var input scheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.DepartureTime != nil {
		schedule.DepartureTime = parseRFC3339(&v, "departureTime", *input.DepartureTime)
	}
	if input.ArrivalTime != nil {
		schedule.ArrivalTime = parseRFC3339(&v, "arrivalTime", *input.ArrivalTime)
	}
	if !schedule.DepartureTime.Before(schedule.ArrivalTime) {
		v.Add("arrivalTime", "Arrival time must be after departure time")
	}
	if input.DriverID != nil {
		schedule.DriverID = fetchDriver(&v, *input.DriverID).ID
	}
	if input.BusNumber != nil {
		schedule.BusNumber = strings.ToUpper(strings.TrimSpace(*input.BusNumber))
	}
	if input.MaxCapacity != nil {
		v.Min("maxCapacity", float64(*input.MaxCapacity), 1)
		schedule.MaxCapacity = *input.MaxCapacity
	}
	if input.PassengerCount != nil {
		v.Min("passengerCount", float64(*input.PassengerCount), 0)
		schedule.PassengerCount = *input.PassengerCount
	}
	if input.Notes != nil {
		v.MaxLength("notes", *input.Notes, 500)
		schedule.Notes = *input.Notes
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	if err := config.DB.Save(&schedule).Error; err != nil {
		internalError(c, "schedule update failed", err)
		return
	}

	config.DB.Preload("Route").Preload("Driver").First(&schedule, schedule.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toScheduleResponse(schedule), "message": "Schedule updated successfully"})
}

// UpdateScheduleStatus lets an admin set any valid status directly. This is
// how the cancelled and delayed side states are reached.
func UpdateScheduleStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var input struct {
		Status      string  `json:"status"`
		DelayReason *string `json:"delayReason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := models.ScheduleStatus(input.Status)
	var v validation.Violations
	if !status.Valid() {
		v.Add("status", "Invalid status")
	}
	if input.DelayReason != nil {
		v.MaxLength("delayReason", *input.DelayReason, 200)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var schedule models.Schedule
	if err := config.DB.First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Schedule not found")
		} else {
			internalError(c, "schedule fetch failed", err)
		}
		return
	}

	schedule.Status = status
	if input.DelayReason != nil {
		schedule.DelayReason = *input.DelayReason
	}
	if err := config.DB.Save(&schedule).Error; err != nil {
		internalError(c, "schedule status update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toScheduleResponse(schedule), "message": "Schedule status updated successfully"})
}

// DeleteSchedule removes a schedule. Admin only.
func DeleteSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var schedule models.Schedule
	if err := config.DB.First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Schedule not found")
		} else {
			internalError(c, "schedule fetch failed", err)
		}
		return
	}

	if err := config.DB.Delete(&schedule).Error; err != nil {
		internalError(c, "schedule deletion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Schedule deleted successfully"})
}

type bulkScheduleInput struct {
	RouteID        uint    `json:"routeId"`
	DriverID       uint    `json:"driverId"`
	BusNumber      string  `json:"busNumber"`
	StartDate      string  `json:"startDate"` // YYYY-MM-DD
	EndDate        string  `json:"endDate"`
	OperatingStart *string `json:"operatingStart"` // HH:MM, defaults to the route's
	OperatingEnd   *string `json:"operatingEnd"`
	Frequency      *int    `json:"frequency"` // minutes, defaults to the route's
	MaxCapacity    *int    `json:"maxCapacity"`
}

type bulkConflict struct {
	DepartureTime time.Time `json:"departure_time"`
	Reason        string    `json:"reason"`
}

const bulkCandidateLimit = 500

func parseClock(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// BulkGenerateSchedules creates one schedule per headway slot per day over a
// date range, skipping candidates that overlap an existing non-cancelled
// schedule for the same driver or bus.
func BulkGenerateSchedules(c *gin.Context) {
	var input bulkScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.RouteID == 0 {
		v.Add("routeId", "Route is required")
	}
	if input.DriverID == 0 {
		v.Add("driverId", "Driver is required")
	}
	v.Require("busNumber", input.BusNumber)

	startDate, err := time.ParseInLocation("2006-01-02", input.StartDate, time.Local)
	if err != nil {
		v.Add("startDate", "Invalid date format")
	}
	endDate, err := time.ParseInLocation("2006-01-02", input.EndDate, time.Local)
	if err != nil {
		v.Add("endDate", "Invalid date format")
	}
	if !startDate.IsZero() && !endDate.IsZero() && endDate.Before(startDate) {
		v.Add("endDate", "End date must not be before start date")
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var route models.Route
	if err := config.DB.First(&route, input.RouteID).Error; err != nil {
		v.Add("routeId", "Route not found")
	}
	driver := fetchDriver(&v, input.DriverID)
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	windowStart := route.OperatingStart
	if input.OperatingStart != nil {
		windowStart = *input.OperatingStart
	}
	windowEnd := route.OperatingEnd
	if input.OperatingEnd != nil {
		windowEnd = *input.OperatingEnd
	}
	frequency := route.Frequency
	if input.Frequency != nil {
		frequency = *input.Frequency
	}
	maxCapacity := 50
	if input.MaxCapacity != nil {
		maxCapacity = *input.MaxCapacity
	}

	startMin, okStart := parseClock(windowStart)
	endMin, okEnd := parseClock(windowEnd)
	if !okStart {
		v.Add("operatingStart", "Invalid time format")
	}
	if !okEnd {
		v.Add("operatingEnd", "Invalid time format")
	}
	if okStart && okEnd && endMin <= startMin {
		v.Add("operatingEnd", "Operating end must be after operating start")
	}
	v.Range("frequency", float64(frequency), 5, 120)
	v.Min("maxCapacity", float64(maxCapacity), 1)
	if route.EstimatedDuration <= 0 {
		v.Add("routeId", "Route has no estimated duration")
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	days := int(endDate.Sub(startDate).Hours()/24) + 1
	slotsPerDay := (endMin-startMin)/frequency + 1
	if days*slotsPerDay > bulkCandidateLimit {
		fail(c, http.StatusBadRequest,
			fmt.Sprintf("Bulk generation exceeds the %d-schedule limit", bulkCandidateLimit))
		return
	}

	busNumber := strings.ToUpper(strings.TrimSpace(input.BusNumber))
	duration := time.Duration(route.EstimatedDuration) * time.Minute

	var created []ScheduleResponse
	var conflicts []bulkConflict
	for day := 0; day < days; day++ {
		base := startDate.AddDate(0, 0, day)
		for slot := startMin; slot <= endMin; slot += frequency {
			departure := base.Add(time.Duration(slot) * time.Minute)
			arrival := departure.Add(duration)

			var overlapping int64
			err := config.DB.Model(&models.Schedule{}).
				Where("driver_id = ? OR bus_number = ?", driver.ID, busNumber).
				Where("status <> ?", models.ScheduleCancelled).
				Where("departure_time < ? AND arrival_time > ?", arrival, departure).
				Count(&overlapping).Error
			if err != nil {
				internalError(c, "bulk conflict check failed", err)
				return
			}
			if overlapping > 0 {
				conflicts = append(conflicts, bulkConflict{
					DepartureTime: departure,
					Reason:        "Driver or bus already scheduled in this window",
				})
				continue
			}

			schedule := models.Schedule{
				RouteID:       route.ID,
				DriverID:      driver.ID,
				BusNumber:     busNumber,
				DepartureTime: departure,
				ArrivalTime:   arrival,
				Status:        models.ScheduleScheduled,
				MaxCapacity:   maxCapacity,
			}
			if err := config.DB.Create(&schedule).Error; err != nil {
				internalError(c, "bulk schedule creation failed", err)
				return
			}
			created = append(created, toScheduleResponse(schedule))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"created":   created,
			"conflicts": conflicts,
		},
		"message": fmt.Sprintf("%d schedules created, %d conflicts skipped", len(created), len(conflicts)),
	})
}
