package routes

import (
	"github.com/gin-gonic/gin"

	"ethiobus/internal/controllers"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
)

func AuthRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", controllers.Login)
		auth.POST("/register", middleware.RequireRole(models.RoleAdmin), controllers.Register)
		auth.POST("/logout", middleware.RequireAuth(), controllers.Logout)
		auth.GET("/me", middleware.RequireAuth(), controllers.Me)
		auth.PUT("/profile", middleware.RequireAuth(), controllers.UpdateProfile)
	}
}
