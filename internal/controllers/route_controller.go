package controllers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

// RouteResponse mirrors models.Route with the derived fields included and
// the geometry rendered as GeoJSON.
type RouteResponse struct {
	ID                uint          `json:"ID"`
	CreatedAt         time.Time     `json:"CreatedAt"`
	UpdatedAt         time.Time     `json:"UpdatedAt"`
	Name              string        `json:"name"`
	RouteNumber       string        `json:"route_number"`
	Description       string        `json:"description"`
	Stops             []models.Stop `json:"stops"`
	StopCount         int           `json:"stop_count"`
	TotalDistance     float64       `json:"total_distance"`
	EstimatedDuration int           `json:"estimated_duration"`
	Fare              float64       `json:"fare"`
	IsActive          bool          `json:"is_active"`
	Status            string        `json:"status"`
	OperatingHours    gin.H         `json:"operating_hours"`
	Frequency         int           `json:"frequency"`
	Geometry          string        `json:"geometry,omitempty"`
}

type stopInput struct {
	Name        string `json:"name"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	EstimatedTime int `json:"estimatedTime"`
	Order         int `json:"order"`
}

type routeInput struct {
	Name              *string     `json:"name"`
	RouteNumber       *string     `json:"routeNumber"`
	Description       *string     `json:"description"`
	Stops             []stopInput `json:"stops"`
	TotalDistance     *float64    `json:"totalDistance"`
	EstimatedDuration *int        `json:"estimatedDuration"`
	Fare              *float64    `json:"fare"`
	IsActive          *bool       `json:"isActive"`
	OperatingHours    *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"operatingHours"`
	Frequency *int `json:"frequency"`
}

func toRouteResponse(route models.Route) RouteResponse {
	geometry, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:                route.ID,
		CreatedAt:         route.CreatedAt,
		UpdatedAt:         route.UpdatedAt,
		Name:              route.Name,
		RouteNumber:       route.RouteNumber,
		Description:       route.Description,
		Stops:             route.Stops,
		StopCount:         route.StopCount(),
		TotalDistance:     route.TotalDistance,
		EstimatedDuration: route.EstimatedDuration,
		Fare:              route.Fare,
		IsActive:          route.IsActive,
		Status:            route.DisplayStatus(),
		OperatingHours:    gin.H{"start": route.OperatingStart, "end": route.OperatingEnd},
		Frequency:         route.Frequency,
		Geometry:          geometry,
	}
}

// buildGeometry flattens the stop sequence into a WKB LINESTRING. Routes
// with fewer than two stops carry no geometry.
func buildGeometry(stops []models.Stop) ([]byte, error) {
	if len(stops) < 2 {
		return nil, nil
	}
	coords := make([]geom.Coord, 0, len(stops))
	for _, s := range stops {
		coords = append(coords, geom.Coord{s.Longitude, s.Latitude})
	}
	line := geom.NewLineString(geom.XY)
	if _, err := line.SetCoords(coords); err != nil {
		return nil, err
	}
	line.SetSRID(4326)
	return wkb.Marshal(line, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string.
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func validateStops(v *validation.Violations, stops []stopInput) []models.Stop {
	out := make([]models.Stop, 0, len(stops))
	for i, s := range stops {
		prefix := fmt.Sprintf("stops[%d].", i)
		v.Require(prefix+"name", s.Name)
		v.Latitude(prefix+"coordinates.latitude", s.Coordinates.Latitude)
		v.Longitude(prefix+"coordinates.longitude", s.Coordinates.Longitude)
		if s.EstimatedTime < 0 {
			v.Add(prefix+"estimatedTime", "Estimated time cannot be negative")
		}
		if s.Order < 1 {
			v.Add(prefix+"order", "Stop order must be at least 1")
		}
		out = append(out, models.Stop{
			Name:          s.Name,
			Latitude:      s.Coordinates.Latitude,
			Longitude:     s.Coordinates.Longitude,
			EstimatedTime: s.EstimatedTime,
			Seq:           s.Order,
		})
	}
	return out
}

// CreateRoute registers a new route with its stops. Admin only.
func CreateRoute(c *gin.Context) {
	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Name == nil {
		v.Add("name", "Route name is required")
	}
	if input.RouteNumber == nil {
		v.Add("routeNumber", "Route number is required")
	}
	if input.Description != nil {
		v.MaxLength("description", *input.Description, 500)
	}
	if input.TotalDistance == nil || *input.TotalDistance < 0 {
		v.Add("totalDistance", "Total distance must be a non-negative number")
	}
	if input.EstimatedDuration == nil || *input.EstimatedDuration < 0 {
		v.Add("estimatedDuration", "Estimated duration must be a non-negative number")
	}
	if input.Fare == nil || *input.Fare < 0 {
		v.Add("fare", "Fare must be a non-negative number")
	}
	if input.OperatingHours == nil {
		v.Add("operatingHours", "Operating hours are required")
	} else {
		v.TimeHHMM("operatingHours.start", input.OperatingHours.Start)
		v.TimeHHMM("operatingHours.end", input.OperatingHours.End)
	}
	if input.Frequency == nil {
		v.Add("frequency", "Frequency is required")
	} else {
		v.Range("frequency", float64(*input.Frequency), 5, 120)
	}
	stops := validateStops(&v, input.Stops)
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	number := strings.ToUpper(strings.TrimSpace(*input.RouteNumber))
	var existing models.Route
	if err := config.DB.Where("route_number = ? OR name = ?", number, *input.Name).First(&existing).Error; err == nil {
		fail(c, http.StatusConflict, "Route name or number already exists")
		return
	}

	geometry, err := buildGeometry(stops)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid stop geometry: "+err.Error())
		return
	}

	route := models.Route{
		Name:              *input.Name,
		RouteNumber:       *input.RouteNumber,
		Description:       stringOrEmpty(input.Description),
		Stops:             stops,
		TotalDistance:     *input.TotalDistance,
		EstimatedDuration: *input.EstimatedDuration,
		Fare:              *input.Fare,
		IsActive:          true,
		OperatingStart:    input.OperatingHours.Start,
		OperatingEnd:      input.OperatingHours.End,
		Frequency:         *input.Frequency,
		Geometry:          geometry,
	}
	if input.IsActive != nil {
		route.IsActive = *input.IsActive
	}

	if err := config.DB.Create(&route).Error; err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fail(c, http.StatusConflict, "Route name or number already exists")
			return
		}
		internalError(c, "route creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": toRouteResponse(route)})
}

// ListRoutes returns all routes with stops, newest first. Admin only.
func ListRoutes(c *gin.Context) {
	var routes []models.Route
	if err := config.DB.Preload("Stops", orderStops).Order("created_at DESC").Find(&routes).Error; err != nil {
		internalError(c, "route listing failed", err)
		return
	}

	responses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		responses = append(responses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": responses})
}

// UpdateRoute modifies route fields; replacing stops rebuilds the geometry.
func UpdateRoute(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	var route models.Route
	if err := config.DB.Preload("Stops", orderStops).First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Route not found")
		} else {
			internalError(c, "route fetch failed", err)
		}
		return
	}

	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Description != nil {
		v.MaxLength("description", *input.Description, 500)
	}
	if input.TotalDistance != nil && *input.TotalDistance < 0 {
		v.Add("totalDistance", "Total distance must be a non-negative number")
	}
	if input.EstimatedDuration != nil && *input.EstimatedDuration < 0 {
		v.Add("estimatedDuration", "Estimated duration must be a non-negative number")
	}
	if input.Fare != nil && *input.Fare < 0 {
		v.Add("fare", "Fare must be a non-negative number")
	}
	if input.OperatingHours != nil {
		v.TimeHHMM("operatingHours.start", input.OperatingHours.Start)
		v.TimeHHMM("operatingHours.end", input.OperatingHours.End)
	}
	if input.Frequency != nil {
		v.Range("frequency", float64(*input.Frequency), 5, 120)
	}
	var stops []models.Stop
	if input.Stops != nil {
		stops = validateStops(&v, input.Stops)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.RouteNumber != nil {
		route.RouteNumber = *input.RouteNumber
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.TotalDistance != nil {
		route.TotalDistance = *input.TotalDistance
	}
	if input.EstimatedDuration != nil {
		route.EstimatedDuration = *input.EstimatedDuration
	}
	if input.Fare != nil {
		route.Fare = *input.Fare
	}
	if input.IsActive != nil {
		route.IsActive = *input.IsActive
	}
	if input.OperatingHours != nil {
		route.OperatingStart = input.OperatingHours.Start
		route.OperatingEnd = input.OperatingHours.End
	}
	if input.Frequency != nil {
		route.Frequency = *input.Frequency
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		internalError(c, "transaction start failed", tx.Error)
		return
	}

	if input.Stops != nil {
		if err := tx.Where("route_id = ?", route.ID).Delete(&models.Stop{}).Error; err != nil {
			tx.Rollback()
			internalError(c, "stop replacement failed", err)
			return
		}
		for i := range stops {
			stops[i].RouteID = route.ID
		}
		if len(stops) > 0 {
			if err := tx.Create(&stops).Error; err != nil {
				tx.Rollback()
				internalError(c, "stop replacement failed", err)
				return
			}
		}
		route.Stops = stops

		geometry, err := buildGeometry(stops)
		if err != nil {
			tx.Rollback()
			fail(c, http.StatusBadRequest, "Invalid stop geometry: "+err.Error())
			return
		}
		route.Geometry = geometry
	}

	if err := tx.Omit("Stops").Save(&route).Error; err != nil {
		tx.Rollback()
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fail(c, http.StatusConflict, "Route name or number already exists")
			return
		}
		internalError(c, "route update failed", err)
		return
	}

	if err := tx.Commit().Error; err != nil {
		internalError(c, "transaction commit failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toRouteResponse(route), "message": "Route updated successfully"})
}

// DeleteRoute removes a route and its stops.
func DeleteRoute(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid route ID")
		return
	}

	var route models.Route
	if err := config.DB.First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Route not found")
		} else {
			internalError(c, "route fetch failed", err)
		}
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		internalError(c, "transaction start failed", tx.Error)
		return
	}
	if err := tx.Where("route_id = ?", route.ID).Delete(&models.Stop{}).Error; err != nil {
		tx.Rollback()
		internalError(c, "stop deletion failed", err)
		return
	}
	if err := tx.Delete(&route).Error; err != nil {
		tx.Rollback()
		internalError(c, "route deletion failed", err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		internalError(c, "transaction commit failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Route deleted successfully"})
}

func orderStops(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
