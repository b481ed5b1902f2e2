package graph

import (
	"context"
	"errors"
	"time"

	"github.com/graphql-go/graphql"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/metrics"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
)

type ctxKey int

const userKey ctxKey = iota

// WithUser stores the authenticated user on the request context for
// resolvers to pick up. A nil user means the request is anonymous.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

var (
	errUnauthenticated = errors.New("authentication required")
	errForbidden       = errors.New("access denied")
)

func requireAdmin(ctx context.Context) (*models.User, error) {
	user := userFrom(ctx)
	if user == nil {
		return nil, errUnauthenticated
	}
	if user.Role != models.RoleAdmin {
		return nil, errForbidden
	}
	return user, nil
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.ID, Resolve: fieldOf(func(u models.User) interface{} { return u.ID })},
		"name":            &graphql.Field{Type: graphql.String},
		"email":           &graphql.Field{Type: graphql.String},
		"role":            &graphql.Field{Type: graphql.String},
		"phoneNumber":     &graphql.Field{Type: graphql.String, Resolve: fieldOf(func(u models.User) interface{} { return u.PhoneNumber })},
		"busNumber":       &graphql.Field{Type: graphql.String, Resolve: fieldOf(func(u models.User) interface{} { return u.BusNumber })},
		"routeAssignment": &graphql.Field{Type: graphql.String, Resolve: fieldOf(func(u models.User) interface{} { return u.RouteAssignment })},
		"licenseNumber":   &graphql.Field{Type: graphql.String, Resolve: fieldOf(func(u models.User) interface{} { return u.LicenseNumber })},
		"isActive":        &graphql.Field{Type: graphql.Boolean, Resolve: fieldOf(func(u models.User) interface{} { return u.IsActive })},
		"lastLogin":       &graphql.Field{Type: graphql.DateTime, Resolve: fieldOf(func(u models.User) interface{} { return u.LastLogin })},
	},
})

// fieldOf adapts a struct accessor into a resolver. graphql-go resolves
// exported fields by name, but our JSON tags diverge from the GraphQL
// field names, so the accessors are explicit.
func fieldOf(get func(models.User) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		user, ok := p.Source.(models.User)
		if !ok {
			return nil, nil
		}
		return get(user), nil
	}
}

var stopType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Stop",
	Fields: graphql.Fields{
		"name":      &graphql.Field{Type: graphql.String},
		"latitude":  &graphql.Field{Type: graphql.Float},
		"longitude": &graphql.Field{Type: graphql.Float},
		"estimatedTime": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Stop).EstimatedTime, nil
		}},
		"order": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Stop).Seq, nil
		}},
	},
})

var routeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Route",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Route).ID, nil
		}},
		"name": &graphql.Field{Type: graphql.String},
		"routeNumber": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Route).RouteNumber, nil
		}},
		"description": &graphql.Field{Type: graphql.String},
		"fare":        &graphql.Field{Type: graphql.Float},
		"totalDistance": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Route).TotalDistance, nil
		}},
		"estimatedDuration": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Route).EstimatedDuration, nil
		}},
		"isActive": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(models.Route).IsActive, nil
		}},
		"stopCount": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			r := p.Source.(models.Route)
			return r.StopCount(), nil
		}},
		"stops": &graphql.Field{Type: graphql.NewList(stopType)},
	},
})

var windowedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "WindowedMetric",
	Fields: graphql.Fields{
		"value":      &graphql.Field{Type: graphql.Int},
		"sampleSize": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return p.Source.(metrics.Windowed).SampleSize, nil
		}},
	},
})

var dashboardType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AdminDashboard",
	Fields: graphql.Fields{
		"totalDrivers":        &graphql.Field{Type: graphql.Int},
		"activeDrivers":       &graphql.Field{Type: graphql.Int},
		"totalRoutes":         &graphql.Field{Type: graphql.Int},
		"activeSchedules":     &graphql.Field{Type: graphql.Int},
		"openIncidents":       &graphql.Field{Type: graphql.Int},
		"totalPassengers":     &graphql.Field{Type: graphql.Int},
		"onTimePerformance":   &graphql.Field{Type: windowedType},
		"averageDelayMinutes": &graphql.Field{Type: windowedType},
	},
})

type dashboard struct {
	TotalDrivers        int64            `json:"totalDrivers"`
	ActiveDrivers       int64            `json:"activeDrivers"`
	TotalRoutes         int64            `json:"totalRoutes"`
	ActiveSchedules     int64            `json:"activeSchedules"`
	OpenIncidents       int64            `json:"openIncidents"`
	TotalPassengers     int              `json:"totalPassengers"`
	OnTimePerformance   metrics.Windowed `json:"onTimePerformance"`
	AverageDelayMinutes metrics.Windowed `json:"averageDelayMinutes"`
}

var driverPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DriverPage",
	Fields: graphql.Fields{
		"drivers": &graphql.Field{Type: graphql.NewList(userType)},
		"total":   &graphql.Field{Type: graphql.Int},
		"page":    &graphql.Field{Type: graphql.Int},
		"pages":   &graphql.Field{Type: graphql.Int},
	},
})

type driverPage struct {
	Drivers []models.User `json:"drivers"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
}

var loginPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LoginPayload",
	Fields: graphql.Fields{
		"token": &graphql.Field{Type: graphql.String},
		"user":  &graphql.Field{Type: userType},
	},
})

type loginPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "OK", nil
				},
			},
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user := userFrom(p.Context)
					if user == nil {
						return nil, errUnauthenticated
					}
					return *user, nil
				},
			},
			"routes": &graphql.Field{
				Type: graphql.NewList(routeType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var routes []models.Route
					err := config.DB.Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
						Where("is_active = ?", true).
						Order("route_number ASC").
						Find(&routes).Error
					return routes, err
				},
			},
			"route": &graphql.Field{
				Type: routeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var route models.Route
					err := config.DB.Preload("Stops").First(&route, p.Args["id"]).Error
					if err != nil {
						return nil, errors.New("route not found")
					}
					return route, nil
				},
			},
			"drivers": &graphql.Field{
				Type: driverPageType,
				Args: graphql.FieldConfigArgument{
					"page":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
					"search": &graphql.ArgumentConfig{Type: graphql.String},
					"status": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, err
					}
					q := config.DB.Model(&models.User{}).Where("role = ?", models.RoleDriver)
					if search, ok := p.Args["search"].(string); ok && search != "" {
						pattern := "%" + search + "%"
						q = q.Where(
							"LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(bus_number) LIKE LOWER(?)",
							pattern, pattern, pattern,
						)
					}
					if status, ok := p.Args["status"].(string); ok && status != "" {
						switch status {
						case "active":
							q = q.Where("is_active = ?", true)
						case "inactive":
							q = q.Where("is_active = ?", false)
						default:
							return nil, errors.New("status must be active or inactive")
						}
					}

					page := p.Args["page"].(int)
					limit := p.Args["limit"].(int)
					if page < 1 {
						page = 1
					}
					if limit < 1 || limit > 100 {
						limit = 10
					}

					var out driverPage
					if err := q.Count(&out.Total).Error; err != nil {
						return nil, err
					}
					err := q.Order("created_at DESC").
						Offset((page - 1) * limit).
						Limit(limit).
						Find(&out.Drivers).Error
					out.Page = page
					out.Pages = int((out.Total + int64(limit) - 1) / int64(limit))
					return out, err
				},
			},
			"adminDashboard": &graphql.Field{
				Type: dashboardType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, err
					}
					db := config.DB
					var d dashboard
					db.Model(&models.User{}).Where("role = ?", models.RoleDriver).Count(&d.TotalDrivers)
					db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleDriver, true).Count(&d.ActiveDrivers)
					db.Model(&models.Route{}).Where("is_active = ?", true).Count(&d.TotalRoutes)
					db.Model(&models.Schedule{}).Where("status IN ?",
						[]models.ScheduleStatus{models.ScheduleScheduled, models.ScheduleInProgress}).Count(&d.ActiveSchedules)
					db.Model(&models.Incident{}).Where("status IN ?",
						[]models.IncidentStatus{models.IncidentReported, models.IncidentInvestigating}).Count(&d.OpenIncidents)
					d.TotalPassengers = metrics.TotalPassengersToday(db)
					d.OnTimePerformance = metrics.OnTimePerformance(db)
					d.AverageDelayMinutes = metrics.AverageDelay(db)
					return d, nil
				},
			},
		},
	})
}

func mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: loginPayloadType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"role":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					email := p.Args["email"].(string)
					password := p.Args["password"].(string)
					role := models.Role(p.Args["role"].(string))

					invalid := errors.New("Invalid credentials")
					var user models.User
					if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
						return nil, invalid
					}
					if user.Role != role || !user.IsActive {
						return nil, invalid
					}
					if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
						return nil, invalid
					}

					token, err := middleware.GenerateToken(user)
					if err != nil {
						return nil, errors.New("Server error")
					}
					now := time.Now()
					config.DB.Model(&user).Update("last_login", now)
					user.LastLogin = &now
					return loginPayload{Token: token, User: user}, nil
				},
			},
			"updateDriver": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id":              &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"name":            &graphql.ArgumentConfig{Type: graphql.String},
					"phoneNumber":     &graphql.ArgumentConfig{Type: graphql.String},
					"busNumber":       &graphql.ArgumentConfig{Type: graphql.String},
					"routeAssignment": &graphql.ArgumentConfig{Type: graphql.String},
					"licenseNumber":   &graphql.ArgumentConfig{Type: graphql.String},
					"isActive":        &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, err
					}

					var driver models.User
					err := config.DB.Where("role = ?", models.RoleDriver).First(&driver, p.Args["id"]).Error
					if err != nil {
						return nil, errors.New("Driver not found")
					}

					updates := map[string]interface{}{}
					if name, ok := p.Args["name"].(string); ok {
						updates["name"] = name
					}
					if phone, ok := p.Args["phoneNumber"].(string); ok {
						updates["phone_number"] = phone
					}
					if bus, ok := p.Args["busNumber"].(string); ok {
						updates["bus_number"] = bus
					}
					if assignment, ok := p.Args["routeAssignment"].(string); ok {
						updates["route_assignment"] = assignment
					}
					if license, ok := p.Args["licenseNumber"].(string); ok {
						updates["license_number"] = license
					}
					if isActive, ok := p.Args["isActive"].(bool); ok {
						updates["is_active"] = isActive
					}
					if len(updates) > 0 {
						if err := config.DB.Model(&driver).Updates(updates).Error; err != nil {
							return nil, errors.New("Server error")
						}
					}
					return driver, nil
				},
			},
		},
	})
}

// NewSchema builds the executable schema. Called once at startup.
func NewSchema() (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType(),
		Mutation: mutationType(),
	})
}
