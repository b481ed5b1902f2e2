package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ethiobus/internal/config"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
	"ethiobus/internal/routes"
)

const testPassword = "password123"

var (
	dbSeq   int
	userSeq int
)

// setupTest swaps the global DB for a fresh in-memory database and returns
// a fully wired router. Each test gets its own database.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	dbSeq++
	dsn := fmt.Sprintf("file:controllers%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	config.DB = db

	return routes.SetupRouter()
}

func createUser(t *testing.T, role models.Role) (models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	userSeq++
	user := models.User{
		Name:     fmt.Sprintf("Test %s %d", role, userSeq),
		Email:    fmt.Sprintf("%s%d@ethiobus.et", role, userSeq),
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if role == models.RoleDriver {
		user.BusNumber = fmt.Sprintf("AA-%03d", userSeq)
		user.RouteAssignment = "R12"
		user.LicenseNumber = fmt.Sprintf("ETH-%05d", userSeq)
	}
	require.NoError(t, config.DB.Create(&user).Error)

	token, err := middleware.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func createRoute(t *testing.T) models.Route {
	t.Helper()
	route := models.Route{
		Name:              "Bole - Piassa",
		RouteNumber:       fmt.Sprintf("R%d", dbSeq),
		Fare:              15,
		EstimatedDuration: 45,
		IsActive:          true,
		OperatingStart:    "06:00",
		OperatingEnd:      "21:00",
		Frequency:         30,
		Stops: []models.Stop{
			{Name: "Bole Airport", Latitude: 8.9806, Longitude: 38.7998, EstimatedTime: 0, Seq: 1},
			{Name: "Meskel Square", Latitude: 9.0107, Longitude: 38.7612, EstimatedTime: 20, Seq: 2},
			{Name: "Piassa", Latitude: 9.0366, Longitude: 38.7525, EstimatedTime: 45, Seq: 3},
		},
	}
	require.NoError(t, config.DB.Create(&route).Error)
	return route
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
