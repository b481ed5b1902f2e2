package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/metrics"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// DriverDashboard returns the driver's schedules for today, their current
// trip, and their trailing statistics.
func DriverDashboard(c *gin.Context) {
	driver := middleware.CurrentUser(c)
	startOfDay, endOfDay := dayBounds(time.Now())

	var todaySchedules []models.Schedule
	err := config.DB.Preload("Route", preloadRouteStops).
		Where("driver_id = ? AND departure_time BETWEEN ? AND ?", driver.ID, startOfDay, endOfDay).
		Order("departure_time ASC").
		Find(&todaySchedules).Error
	if err != nil {
		internalError(c, "driver dashboard schedules query failed", err)
		return
	}

	var current *ScheduleResponse
	var active models.Schedule
	err = config.DB.Preload("Route", preloadRouteStops).
		Where("driver_id = ? AND status = ?", driver.ID, models.ScheduleInProgress).
		First(&active).Error
	if err == nil {
		resp := toScheduleResponse(active)
		current = &resp
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, "driver dashboard active schedule query failed", err)
		return
	}

	var completedTrips int64
	if err := config.DB.Model(&models.Schedule{}).
		Where("driver_id = ? AND status = ?", driver.ID, models.ScheduleCompleted).
		Count(&completedTrips).Error; err != nil {
		internalError(c, "driver dashboard trip count failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"driver":          driver,
			"todaySchedules":  toScheduleResponses(todaySchedules),
			"currentSchedule": current,
			"stats": gin.H{
				"completedTrips":   completedTrips,
				"totalPassengers":  metrics.DriverTotalPassengers(config.DB, driver.ID),
				"onTimePercentage": metrics.DriverOnTimePerformance(config.DB, driver.ID),
			},
		},
	})
}

// DriverSchedules lists the driver's schedules for a day (default today),
// optionally filtered by status.
func DriverSchedules(c *gin.Context) {
	driver := middleware.CurrentUser(c)

	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid date format")
			return
		}
		day = parsed
	}
	startOfDay, endOfDay := dayBounds(day)

	q := config.DB.Preload("Route", preloadRouteStops).
		Where("driver_id = ? AND departure_time BETWEEN ? AND ?", driver.ID, startOfDay, endOfDay)
	if status := c.Query("status"); status != "" {
		if !models.ScheduleStatus(status).Valid() {
			fail(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}

	var schedules []models.Schedule
	if err := q.Order("departure_time ASC").Find(&schedules).Error; err != nil {
		internalError(c, "driver schedules query failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toScheduleResponses(schedules)})
}

// StartSchedule transitions a scheduled trip to in-progress. The driver may
// have at most one trip in progress; the guard and the transition are a
// single conditional UPDATE so concurrent starts cannot both succeed.
func StartSchedule(c *gin.Context) {
	driver := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	now := time.Now()
	res := config.DB.Model(&models.Schedule{}).
		Where("id = ? AND driver_id = ? AND status = ?", id, driver.ID, models.ScheduleScheduled).
		Where("NOT EXISTS (SELECT 1 FROM schedules s WHERE s.driver_id = ? AND s.status = ? AND s.deleted_at IS NULL)",
			driver.ID, models.ScheduleInProgress).
		Updates(map[string]interface{}{
			"status":                models.ScheduleInProgress,
			"actual_departure_time": now,
		})
	if res.Error != nil {
		internalError(c, "schedule start failed", res.Error)
		return
	}

	if res.RowsAffected == 0 {
		// Classify the refusal: missing, wrong state, or driver busy.
		var schedule models.Schedule
		err := config.DB.Where("id = ? AND driver_id = ?", id, driver.ID).First(&schedule).Error
		if err != nil {
			fail(c, http.StatusNotFound, "Schedule not found")
			return
		}
		if schedule.Status != models.ScheduleScheduled {
			fail(c, http.StatusBadRequest, "Schedule cannot be started. Current status: "+string(schedule.Status))
			return
		}
		fail(c, http.StatusConflict, "You already have an active schedule in progress")
		return
	}

	var schedule models.Schedule
	config.DB.Preload("Route", preloadRouteStops).First(&schedule, id)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toScheduleResponse(schedule),
		"message": "Schedule started successfully",
	})
}

// CompleteSchedule transitions the driver's in-progress trip to completed.
func CompleteSchedule(c *gin.Context) {
	driver := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var input struct {
		PassengerCount *int    `json:"passengerCount"`
		Notes          *string `json:"notes"`
	}
	// An empty body is allowed; both fields are optional.
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.PassengerCount != nil {
		v.Min("passengerCount", float64(*input.PassengerCount), 0)
	}
	if input.Notes != nil {
		v.MaxLength("notes", *input.Notes, 500)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var schedule models.Schedule
	if err := config.DB.Where("id = ? AND driver_id = ?", id, driver.ID).First(&schedule).Error; err != nil {
		fail(c, http.StatusNotFound, "Schedule not found")
		return
	}
	if schedule.Status != models.ScheduleInProgress {
		fail(c, http.StatusBadRequest, "Schedule is not in progress")
		return
	}

	now := time.Now()
	schedule.Status = models.ScheduleCompleted
	schedule.ActualArrivalTime = &now
	if input.PassengerCount != nil {
		schedule.PassengerCount = *input.PassengerCount
	}
	if input.Notes != nil {
		schedule.Notes = *input.Notes
	}

	if err := config.DB.Save(&schedule).Error; err != nil {
		internalError(c, "schedule completion failed", err)
		return
	}

	config.DB.Preload("Route").First(&schedule, schedule.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toScheduleResponse(schedule),
		"message": "Schedule completed successfully",
	})
}

// UpdateLocation overwrites the current position of the driver's active
// trip. Last write wins.
func UpdateLocation(c *gin.Context) {
	driver := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var input struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Latitude == nil {
		v.Add("latitude", "Latitude is required")
	} else {
		v.Latitude("latitude", *input.Latitude)
	}
	if input.Longitude == nil {
		v.Add("longitude", "Longitude is required")
	} else {
		v.Longitude("longitude", *input.Longitude)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var schedule models.Schedule
	err = config.DB.Where("id = ? AND driver_id = ? AND status = ?", id, driver.ID, models.ScheduleInProgress).
		First(&schedule).Error
	if err != nil {
		fail(c, http.StatusNotFound, "Active schedule not found")
		return
	}

	now := time.Now()
	schedule.CurrentLocation = models.ScheduleLocation{
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		LastUpdated: &now,
	}
	if err := config.DB.Save(&schedule).Error; err != nil {
		internalError(c, "location update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Location updated successfully"})
}

// ReportIncident files an incident attributed to the reporting driver. If
// the driver has a trip in progress it is attached as the related schedule.
func ReportIncident(c *gin.Context) {
	driver := middleware.CurrentUser(c)

	var input struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Type        string  `json:"type"`
		Severity    string  `json:"severity"`
		Location    *struct {
			Description string `json:"description"`
			Coordinates *struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"coordinates"`
		} `json:"location"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	v.Length("title", input.Title, 5, 100)
	v.Length("description", input.Description, 10, 1000)
	if !models.IncidentType(input.Type).Valid() {
		v.Add("type", "Invalid incident type")
	}
	if !models.IncidentSeverity(input.Severity).Valid() {
		v.Add("severity", "Invalid severity level")
	}
	if input.Location != nil {
		v.MaxLength("location.description", input.Location.Description, 200)
		if input.Location.Coordinates != nil {
			v.Latitude("location.coordinates.latitude", input.Location.Coordinates.Latitude)
			v.Longitude("location.coordinates.longitude", input.Location.Coordinates.Longitude)
		}
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	incident := models.Incident{
		Title:       input.Title,
		Description: input.Description,
		Type:        models.IncidentType(input.Type),
		Severity:    models.IncidentSeverity(input.Severity),
		Status:      models.IncidentReported,
		ReportedBy: models.ReportedBy{
			UserID: driver.ID,
			Name:   driver.Name,
			Role:   driver.Role,
		},
	}
	if input.Location != nil {
		incident.Location.Description = input.Location.Description
		if input.Location.Coordinates != nil {
			lat := input.Location.Coordinates.Latitude
			lon := input.Location.Coordinates.Longitude
			incident.Location.Latitude = &lat
			incident.Location.Longitude = &lon
		}
	}

	// Attach the trip in progress, if any.
	var active models.Schedule
	err := config.DB.Preload("Route").
		Where("driver_id = ? AND status = ?", driver.ID, models.ScheduleInProgress).
		First(&active).Error
	if err == nil {
		scheduleID := active.ID
		incident.RelatedSchedule = models.RelatedSchedule{
			ScheduleID:  &scheduleID,
			RouteNumber: active.Route.RouteNumber,
			BusNumber:   driver.BusNumber,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, "active schedule lookup failed", err)
		return
	}

	if err := config.DB.Create(&incident).Error; err != nil {
		internalError(c, "incident creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    toIncidentResponse(incident),
		"message": "Incident reported successfully",
	})
}

// DriverIncidents lists incidents reported by the authenticated driver,
// newest first.
func DriverIncidents(c *gin.Context) {
	driver := middleware.CurrentUser(c)

	var incidents []models.Incident
	err := config.DB.Where("reported_by_user_id = ?", driver.ID).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		internalError(c, "driver incidents query failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toIncidentResponses(incidents)})
}

func preloadRouteStops(db *gorm.DB) *gorm.DB {
	return db.Preload("Stops", orderStops)
}
