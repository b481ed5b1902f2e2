package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
)

var dbSeq int

func setupSchema(t *testing.T) graphql.Schema {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	dbSeq++
	dsn := fmt.Sprintf("file:graph%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	config.DB = db

	schema, err := NewSchema()
	require.NoError(t, err)
	return schema
}

func seedUser(t *testing.T, role models.Role) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	dbSeq++
	user := models.User{
		Name:     "Graph User",
		Email:    fmt.Sprintf("graph%d@ethiobus.et", dbSeq),
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, config.DB.Create(&user).Error)
	return user
}

func exec(ctx context.Context, schema graphql.Schema, query string, vars map[string]interface{}) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
}

func TestHealthQuery(t *testing.T) {
	schema := setupSchema(t)

	result := exec(context.Background(), schema, `{ health }`, nil)
	require.Empty(t, result.Errors)
	assert.Equal(t, map[string]interface{}{"health": "OK"}, result.Data)
}

func TestMeRequiresAuthentication(t *testing.T) {
	schema := setupSchema(t)

	result := exec(context.Background(), schema, `{ me { email } }`, nil)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "authentication required")

	user := seedUser(t, models.RoleDriver)
	ctx := WithUser(context.Background(), &user)
	result = exec(ctx, schema, `{ me { email role } }`, nil)
	require.Empty(t, result.Errors)
	me := result.Data.(map[string]interface{})["me"].(map[string]interface{})
	assert.Equal(t, user.Email, me["email"])
	assert.Equal(t, "driver", me["role"])
}

func TestLoginMutation(t *testing.T) {
	schema := setupSchema(t)
	user := seedUser(t, models.RoleAdmin)

	query := `mutation($email: String!, $password: String!, $role: String!) {
		login(email: $email, password: $password, role: $role) { token user { email } }
	}`

	result := exec(context.Background(), schema, query, map[string]interface{}{
		"email":    user.Email,
		"password": "password123",
		"role":     "admin",
	})
	require.Empty(t, result.Errors)
	payload := result.Data.(map[string]interface{})["login"].(map[string]interface{})
	assert.NotEmpty(t, payload["token"])

	result = exec(context.Background(), schema, query, map[string]interface{}{
		"email":    user.Email,
		"password": "wrong",
		"role":     "admin",
	})
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "Invalid credentials")
}

func TestDriversQueryRequiresAdmin(t *testing.T) {
	schema := setupSchema(t)
	driver := seedUser(t, models.RoleDriver)
	admin := seedUser(t, models.RoleAdmin)

	result := exec(WithUser(context.Background(), &driver), schema, `{ drivers { drivers { email } } }`, nil)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "access denied")

	result = exec(WithUser(context.Background(), &admin), schema, `{ drivers { total page pages drivers { email isActive } } }`, nil)
	require.Empty(t, result.Errors)
	page := result.Data.(map[string]interface{})["drivers"].(map[string]interface{})
	assert.Equal(t, 1, page["total"])
	assert.Equal(t, 1, page["page"])
	drivers := page["drivers"].([]interface{})
	require.Len(t, drivers, 1)
	assert.Equal(t, driver.Email, drivers[0].(map[string]interface{})["email"])
}

func TestDriversQueryPagination(t *testing.T) {
	schema := setupSchema(t)
	admin := seedUser(t, models.RoleAdmin)
	for i := 0; i < 12; i++ {
		seedUser(t, models.RoleDriver)
	}

	result := exec(WithUser(context.Background(), &admin), schema,
		`{ drivers(page: 2, limit: 5) { total page pages drivers { email } } }`, nil)
	require.Empty(t, result.Errors)

	page := result.Data.(map[string]interface{})["drivers"].(map[string]interface{})
	assert.Equal(t, 12, page["total"])
	assert.Equal(t, 2, page["page"])
	assert.Equal(t, 3, page["pages"])
	assert.Len(t, page["drivers"].([]interface{}), 5)

	result = exec(WithUser(context.Background(), &admin), schema,
		`{ drivers(status: "retired") { total } }`, nil)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "status must be")
}

func TestUpdateDriverMutation(t *testing.T) {
	schema := setupSchema(t)
	driver := seedUser(t, models.RoleDriver)
	admin := seedUser(t, models.RoleAdmin)

	query := `mutation($id: ID!, $busNumber: String, $isActive: Boolean) {
		updateDriver(id: $id, busNumber: $busNumber, isActive: $isActive) { busNumber isActive }
	}`

	result := exec(WithUser(context.Background(), &admin), schema, query, map[string]interface{}{
		"id":        fmt.Sprint(driver.ID),
		"busNumber": "AA-900",
		"isActive":  false,
	})
	require.Empty(t, result.Errors)

	var reloaded models.User
	require.NoError(t, config.DB.First(&reloaded, driver.ID).Error)
	assert.Equal(t, "AA-900", reloaded.BusNumber)
	assert.False(t, reloaded.IsActive)
}
