package routes

import (
	"net/http"
	"time"

	ginlogger "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ethiobus/internal/graph"
)

// SetupRouter wires every route group onto a fresh engine. The caller is
// responsible for serving it.
func SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlogger.SetLogger())

	AuthRoutes(r)
	AdminRoutes(r)
	DriverRoutes(r)
	PassengerRoutes(r)
	GraphQLRoutes(r)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"message":   "EthioBus API is running",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	return r
}

// GraphQLRoutes mounts the GraphQL endpoint. The schema is built once; a
// broken schema is a programming error, so fail loudly at startup.
func GraphQLRoutes(r *gin.Engine) {
	schema, err := graph.NewSchema()
	if err != nil {
		logrus.WithError(err).Fatal("failed to build graphql schema")
	}
	r.POST("/graphql", graph.Handler(schema))
}
