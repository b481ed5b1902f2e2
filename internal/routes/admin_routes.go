package routes

import (
	"github.com/gin-gonic/gin"

	"ethiobus/internal/controllers"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/api/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/dashboard", controllers.AdminDashboard)

		admin.GET("/drivers", controllers.ListDrivers)
		admin.GET("/drivers/:id", controllers.GetDriver)
		admin.PUT("/drivers/:id", controllers.UpdateDriver)

		admin.POST("/routes", controllers.CreateRoute)
		admin.GET("/routes", controllers.ListRoutes)
		admin.PUT("/routes/:id", controllers.UpdateRoute)
		admin.DELETE("/routes/:id", controllers.DeleteRoute)

		admin.POST("/schedules", controllers.CreateSchedule)
		admin.GET("/schedules", controllers.ListSchedules)
		admin.PUT("/schedules/:id", controllers.UpdateSchedule)
		admin.PATCH("/schedules/:id/status", controllers.UpdateScheduleStatus)
		admin.DELETE("/schedules/:id", controllers.DeleteSchedule)
		admin.POST("/schedules/bulk", controllers.BulkGenerateSchedules)

		admin.GET("/incidents", controllers.ListIncidents)
		admin.PATCH("/incidents/:id/assign", controllers.AssignIncident)
		admin.PATCH("/incidents/:id/status", controllers.UpdateIncidentStatus)
		admin.PATCH("/incidents/:id/resolution", controllers.UpdateIncidentResolution)

		admin.POST("/announcements", controllers.CreateAnnouncement)
		admin.PUT("/announcements/:id", controllers.UpdateAnnouncement)
		admin.DELETE("/announcements/:id", controllers.DeleteAnnouncement)
	}
}
