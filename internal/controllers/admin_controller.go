package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/metrics"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

// AdminDashboard aggregates the operator-facing overview: entity counts,
// the rolling-window metrics, and the most recent open incidents.
func AdminDashboard(c *gin.Context) {
	startOfDay, endOfDay := dayBounds(time.Now())

	var totalDrivers, activeRoutes, todaySchedules, openIncidents int64
	if err := config.DB.Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleDriver, true).
		Count(&totalDrivers).Error; err != nil {
		internalError(c, "dashboard driver count failed", err)
		return
	}
	if err := config.DB.Model(&models.Route{}).
		Where("is_active = ?", true).
		Count(&activeRoutes).Error; err != nil {
		internalError(c, "dashboard route count failed", err)
		return
	}
	if err := config.DB.Model(&models.Schedule{}).
		Where("departure_time BETWEEN ? AND ?", startOfDay, endOfDay).
		Count(&todaySchedules).Error; err != nil {
		internalError(c, "dashboard schedule count failed", err)
		return
	}
	if err := config.DB.Model(&models.Incident{}).
		Where("status NOT IN ?", []models.IncidentStatus{models.IncidentResolved, models.IncidentClosed}).
		Count(&openIncidents).Error; err != nil {
		internalError(c, "dashboard incident count failed", err)
		return
	}

	var recentIncidents []models.Incident
	if err := config.DB.
		Where("status NOT IN ?", []models.IncidentStatus{models.IncidentResolved, models.IncidentClosed}).
		Order("created_at DESC").
		Limit(5).
		Find(&recentIncidents).Error; err != nil {
		internalError(c, "dashboard recent incidents failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"metrics": gin.H{
				"totalDrivers":      totalDrivers,
				"activeRoutes":      activeRoutes,
				"todaySchedules":    todaySchedules,
				"openIncidents":     openIncidents,
				"onTimePerformance": metrics.OnTimePerformance(config.DB),
				"averageDelay":      metrics.AverageDelay(config.DB),
				"totalPassengers":   metrics.TotalPassengersToday(config.DB),
			},
			"recentIncidents": toIncidentResponses(recentIncidents),
		},
	})
}

// driverSearchQuery applies the drivers list filters: free-text search over
// name/email/bus number/license number and an active/inactive filter.
func driverSearchQuery(c *gin.Context) (*gorm.DB, error) {
	q := config.DB.Model(&models.User{}).Where("role = ?", models.RoleDriver)

	if status := c.Query("status"); status != "" {
		if status != "active" && status != "inactive" {
			return nil, errors.New("Invalid status filter")
		}
		q = q.Where("is_active = ?", status == "active")
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(bus_number) LIKE ? OR LOWER(license_number) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	return q, nil
}

// ListDrivers returns drivers with pagination, search and status filtering.
func ListDrivers(c *gin.Context) {
	page, limit := pageParams(c)

	q, err := driverSearchQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		internalError(c, "driver count failed", err)
		return
	}

	var drivers []models.User
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&drivers).Error; err != nil {
		internalError(c, "driver listing failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"drivers":    drivers,
			"pagination": paginate(page, limit, total),
		},
	})
}

// GetDriver fetches a single driver by ID.
func GetDriver(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid driver ID")
		return
	}

	var driver models.User
	if err := config.DB.Where("id = ? AND role = ?", id, models.RoleDriver).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Driver not found")
		} else {
			internalError(c, "driver fetch failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": driver})
}

// UpdateDriver modifies driver fields. Deactivation (isActive=false) is the
// system's only way to retire an account; drivers are never hard-deleted.
func UpdateDriver(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid driver ID")
		return
	}

	var driver models.User
	if err := config.DB.Where("id = ? AND role = ?", id, models.RoleDriver).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Driver not found")
		} else {
			internalError(c, "driver fetch failed", err)
		}
		return
	}

	var input struct {
		Name            *string `json:"name"`
		PhoneNumber     *string `json:"phoneNumber"`
		BusNumber       *string `json:"busNumber"`
		RouteAssignment *string `json:"routeAssignment"`
		LicenseNumber   *string `json:"licenseNumber"`
		IsActive        *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Name != nil {
		v.Length("name", *input.Name, 2, 100)
	}
	if input.BusNumber != nil {
		v.Length("busNumber", *input.BusNumber, 1, 20)
	}
	if input.RouteAssignment != nil {
		v.Length("routeAssignment", *input.RouteAssignment, 1, 200)
	}
	if input.LicenseNumber != nil {
		v.Length("licenseNumber", *input.LicenseNumber, 1, 50)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	if input.Name != nil {
		driver.Name = strings.TrimSpace(*input.Name)
	}
	if input.PhoneNumber != nil {
		driver.PhoneNumber = *input.PhoneNumber
	}
	if input.BusNumber != nil {
		driver.BusNumber = *input.BusNumber
	}
	if input.RouteAssignment != nil {
		driver.RouteAssignment = *input.RouteAssignment
	}
	if input.LicenseNumber != nil {
		driver.LicenseNumber = *input.LicenseNumber
	}
	if input.IsActive != nil {
		driver.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&driver).Error; err != nil {
		internalError(c, "driver update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": driver, "message": "Driver updated successfully"})
}

// ListSchedules returns schedules filtered by date, status and route.
// Admin only.
func ListSchedules(c *gin.Context) {
	q := config.DB.Preload("Route").Preload("Driver")

	if dateStr := c.Query("date"); dateStr != "" {
		day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid date format")
			return
		}
		startOfDay, endOfDay := dayBounds(day)
		q = q.Where("departure_time BETWEEN ? AND ?", startOfDay, endOfDay)
	}
	if status := c.Query("status"); status != "" {
		if !models.ScheduleStatus(status).Valid() {
			fail(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}
	if routeID := c.Query("routeId"); routeID != "" {
		id, err := strconv.ParseUint(routeID, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid route ID")
			return
		}
		q = q.Where("route_id = ?", id)
	}

	var schedules []models.Schedule
	if err := q.Order("departure_time ASC").Find(&schedules).Error; err != nil {
		internalError(c, "schedule listing failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toScheduleResponses(schedules)})
}
