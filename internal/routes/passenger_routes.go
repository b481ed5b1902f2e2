package routes

import (
	"github.com/gin-gonic/gin"

	"ethiobus/internal/controllers"
)

// PassengerRoutes is the unauthenticated public surface.
func PassengerRoutes(r *gin.Engine) {
	passenger := r.Group("/api/passenger")
	{
		passenger.GET("/routes", controllers.PublicRoutes)
		passenger.GET("/routes/:id", controllers.PublicRoute)
		passenger.GET("/search", controllers.SearchRoutes)
		passenger.GET("/schedules", controllers.PublicSchedules)
		passenger.GET("/schedules/:id/tracking", controllers.ScheduleTracking)
		passenger.GET("/announcements", controllers.PublicAnnouncements)
	}
}
