package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
)

func routePayload() map[string]interface{} {
	return map[string]interface{}{
		"name":              "Bole - Piassa",
		"routeNumber":       "r12",
		"fare":              15,
		"totalDistance":     12.5,
		"estimatedDuration": 45,
		"frequency":         30,
		"operatingHours":    map[string]string{"start": "06:00", "end": "21:00"},
		"stops": []map[string]interface{}{
			{"name": "Bole Airport", "coordinates": map[string]float64{"latitude": 8.9806, "longitude": 38.7998}, "estimatedTime": 0, "order": 1},
			{"name": "Meskel Square", "coordinates": map[string]float64{"latitude": 9.0107, "longitude": 38.7612}, "estimatedTime": 20, "order": 2},
			{"name": "Piassa", "coordinates": map[string]float64{"latitude": 9.0366, "longitude": 38.7525}, "estimatedTime": 45, "order": 3},
		},
	}
}

func TestCreateRoute(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)

	w := doRequest(t, r, http.MethodPost, "/api/admin/routes", adminToken, routePayload())
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "R12", data["route_number"]) // uppercased
	assert.Equal(t, float64(3), data["stop_count"])
	assert.Contains(t, data["geometry"], "LineString")

	stops := data["stops"].([]interface{})
	require.Len(t, stops, 3)
	assert.Equal(t, "Bole Airport", stops[0].(map[string]interface{})["name"])

	// Route numbers are unique.
	w = doRequest(t, r, http.MethodPost, "/api/admin/routes", adminToken, routePayload())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateInactiveRouteStaysInactive(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)

	payload := routePayload()
	payload["isActive"] = false

	w := doRequest(t, r, http.MethodPost, "/api/admin/routes", adminToken, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var route models.Route
	require.NoError(t, config.DB.Where("route_number = ?", "R12").First(&route).Error)
	assert.False(t, route.IsActive)

	// An inactive route never reaches the passenger surface.
	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/routes/%d", route.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRouteValidation(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)

	payload := routePayload()
	payload["fare"] = -1
	payload["operatingHours"] = map[string]string{"start": "26:00", "end": "21:00"}
	payload["stops"] = []map[string]interface{}{
		{"name": "", "coordinates": map[string]float64{"latitude": 95, "longitude": 38.79}, "estimatedTime": 0, "order": 1},
	}

	w := doRequest(t, r, http.MethodPost, "/api/admin/routes", adminToken, payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["errors"])
}

func TestUpdateRouteReplacesStops(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	route := createRoute(t)

	w := doRequest(t, r, http.MethodPut, fmt.Sprintf("/api/admin/routes/%d", route.ID), adminToken,
		map[string]interface{}{
			"fare": 18,
			"stops": []map[string]interface{}{
				{"name": "Bole Airport", "coordinates": map[string]float64{"latitude": 8.9806, "longitude": 38.7998}, "estimatedTime": 0, "order": 1},
				{"name": "Piassa", "coordinates": map[string]float64{"latitude": 9.0366, "longitude": 38.7525}, "estimatedTime": 40, "order": 2},
			},
		})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(18), data["fare"])
	assert.Equal(t, float64(2), data["stop_count"])

	var count int64
	require.NoError(t, config.DB.Model(&models.Stop{}).Where("route_id = ?", route.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDeleteRoute(t *testing.T) {
	r := setupTest(t)
	_, adminToken := createUser(t, models.RoleAdmin)
	route := createRoute(t)

	w := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/routes/%d", route.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/passenger/routes/%d", route.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
