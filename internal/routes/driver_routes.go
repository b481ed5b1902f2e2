package routes

import (
	"github.com/gin-gonic/gin"

	"ethiobus/internal/controllers"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
)

func DriverRoutes(r *gin.Engine) {
	driver := r.Group("/api/driver")
	driver.Use(middleware.RequireRole(models.RoleDriver))
	{
		driver.GET("/dashboard", controllers.DriverDashboard)
		driver.GET("/schedules", controllers.DriverSchedules)
		driver.PUT("/schedules/:id/start", controllers.StartSchedule)
		driver.PUT("/schedules/:id/complete", controllers.CompleteSchedule)
		driver.PUT("/schedules/:id/location", controllers.UpdateLocation)
		driver.POST("/incidents", controllers.ReportIncident)
		driver.GET("/incidents", controllers.DriverIncidents)
	}
}
