package controllers

import (
	"errors"
	"math"
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

// PublicRoutes lists all active routes for the passenger portal. No
// authentication required.
func PublicRoutes(c *gin.Context) {
	var routes []models.Route
	err := config.DB.Preload("Stops", orderStops).
		Where("is_active = ?", true).
		Order("route_number ASC").
		Find(&routes).Error
	if err != nil {
		internalError(c, "public route listing failed", err)
		return
	}

	responses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		responses = append(responses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": responses})
}

// PublicRoute fetches one active route by ID.
func PublicRoute(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	var route models.Route
	err = config.DB.Preload("Stops", orderStops).
		Where("id = ? AND is_active = ?", id, true).
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Route not found")
		} else {
			internalError(c, "public route fetch failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toRouteResponse(route)})
}

type routeSearchResult struct {
	RouteResponse
	FromStop        string  `json:"from_stop"`
	ToStop          string  `json:"to_stop"`
	SegmentDuration int     `json:"segment_duration"` // minutes
	SegmentFare     float64 `json:"segment_fare"`
}

func findStop(stops []models.Stop, name string) int {
	needle := strings.ToLower(name)
	for i, s := range stops {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			return i
		}
	}
	return -1
}

// SearchRoutes finds active routes serving both an origin and a destination
// stop, with the origin earlier in the stop order. Segment fare is the
// route fare prorated over the stop span.
func SearchRoutes(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))

	var v validation.Violations
	if len(from) < 2 {
		v.Add("from", "Origin must be at least 2 characters")
	}
	if len(to) < 2 {
		v.Add("to", "Destination must be at least 2 characters")
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var routes []models.Route
	err := config.DB.Preload("Stops", orderStops).
		Where("is_active = ?", true).
		Find(&routes).Error
	if err != nil {
		internalError(c, "route search failed", err)
		return
	}

	results := make([]routeSearchResult, 0)
	for _, route := range routes {
		fromIdx := findStop(route.Stops, from)
		toIdx := findStop(route.Stops, to)
		if fromIdx == -1 || toIdx == -1 || fromIdx >= toIdx {
			continue
		}

		fromStop := route.Stops[fromIdx]
		toStop := route.Stops[toIdx]
		segmentFare := route.Fare
		if len(route.Stops) > 1 {
			span := float64(toIdx-fromIdx) / float64(len(route.Stops)-1)
			segmentFare = math.Round(route.Fare*span*100) / 100
		}
		results = append(results, routeSearchResult{
			RouteResponse:   toRouteResponse(route),
			FromStop:        fromStop.Name,
			ToStop:          toStop.Name,
			SegmentDuration: toStop.EstimatedTime - fromStop.EstimatedTime,
			SegmentFare:     segmentFare,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": results})
}

// availabilityStatus buckets remaining capacity for the passenger portal.
func availabilityStatus(passengerCount, maxCapacity int) string {
	if maxCapacity <= 0 {
		return "full"
	}
	occupancy := float64(passengerCount) / float64(maxCapacity) * 100
	switch {
	case occupancy >= 100:
		return "full"
	case occupancy >= 80:
		return "limited"
	case occupancy >= 50:
		return "moderate"
	default:
		return "available"
	}
}

type publicScheduleResponse struct {
	ScheduleResponse
	AvailableSeats     int    `json:"available_seats"`
	AvailabilityStatus string `json:"availability_status"`
}

// PublicSchedules lists upcoming and running schedules for a route on a day
// (default today).
func PublicSchedules(c *gin.Context) {
	routeID, err := strconv.ParseUint(c.Query("routeId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, perr := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if perr != nil {
			fail(c, http.StatusBadRequest, "Invalid date format")
			return
		}
		day = parsed
	}
	startOfDay, endOfDay := dayBounds(day)

	var schedules []models.Schedule
	err = config.DB.Preload("Route").Preload("Driver").
		Where("route_id = ? AND departure_time BETWEEN ? AND ?", routeID, startOfDay, endOfDay).
		Where("status IN ?", []models.ScheduleStatus{models.ScheduleScheduled, models.ScheduleInProgress}).
		Order("departure_time ASC").
		Find(&schedules).Error
	if err != nil {
		internalError(c, "public schedule listing failed", err)
		return
	}

	responses := make([]publicScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		responses = append(responses, publicScheduleResponse{
			ScheduleResponse:   toScheduleResponse(s),
			AvailableSeats:     s.AvailableSeats(),
			AvailabilityStatus: availabilityStatus(s.PassengerCount, s.MaxCapacity),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
		"date":    day.Format("2006-01-02"),
	})
}

type stopArrival struct {
	StopName         string    `json:"stop_name"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
	IsPassed         bool      `json:"is_passed"`
}

// ScheduleTracking returns the live view of an in-progress schedule: the
// last reported position, completed stops, and per-stop estimated arrivals
// derived from the timetable.
func ScheduleTracking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	var schedule models.Schedule
	err = config.DB.Preload("Route", preloadRouteStops).Preload("Driver").Preload("CompletedStops").
		Where("id = ? AND status = ?", id, models.ScheduleInProgress).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Active schedule not found")
		} else {
			internalError(c, "tracking fetch failed", err)
		}
		return
	}

	arrivals := make([]stopArrival, 0, len(schedule.Route.Stops))
	for _, stop := range schedule.Route.Stops {
		arrivals = append(arrivals, stopArrival{
			StopName:         stop.Name,
			Latitude:         stop.Latitude,
			Longitude:        stop.Longitude,
			EstimatedArrival: schedule.DepartureTime.Add(time.Duration(stop.EstimatedTime) * time.Minute),
			IsPassed:         stop.Seq <= len(schedule.CompletedStops)+1,
		})
	}

	lastUpdated := schedule.UpdatedAt
	if schedule.CurrentLocation.LastUpdated != nil {
		lastUpdated = *schedule.CurrentLocation.LastUpdated
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"schedule": gin.H{
				"id":               schedule.ID,
				"routeName":        schedule.Route.Name,
				"routeNumber":      schedule.Route.RouteNumber,
				"driverName":       schedule.Driver.Name,
				"busNumber":        schedule.BusNumber,
				"status":           schedule.Status,
				"departureTime":    schedule.DepartureTime,
				"estimatedArrival": schedule.ArrivalTime,
			},
			"currentLocation":   schedule.CurrentLocation,
			"estimatedArrivals": arrivals,
			"completedStops":    schedule.CompletedStops,
			"lastUpdated":       lastUpdated,
		},
	})
}
