package routes

import (
	"backend/controllers"
	"backend/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	auth *controllers.AuthController,
	monitor *controllers.MonitorController,
	alerts *controllers.AlertController,
	realtime *controllers.RealtimeController,
) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	pub := r.Group("/auth")
	{
		pub.POST("/register", auth.Register)
		pub.POST("/login", auth.Login)
	}

	// Protected dashboard routes
	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware())
	{
		api.POST("/monitor/start", monitor.Start)
		api.POST("/monitor/upload", monitor.Upload)
		api.POST("/monitor/stop/:id", monitor.Stop)
		api.GET("/monitor/status/:id", monitor.Status)
		api.GET("/alerts", alerts.List)
		api.GET("/ws", realtime.MonitorWS)
	}

	return r
}
