package routes

import (
	"analysis-console-api/internal/handlers"
	"analysis-console-api/internal/middleware"
	"analysis-console-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(m *realtime.Manager) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "ok",
			"sessions": m.SessionCount(),
			"channels": m.ChannelCount(),
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		// Login endpoint
		api.POST("/login", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Event stream
		protectedRoutes.GET("/ws", handlers.WebSocketHandler(m))
		// Subscription endpoints
		protectedRoutes.POST("/subscribe", handlers.Subscribe(m))
		protectedRoutes.POST("/unsubscribe", handlers.Unsubscribe(m))
		// Push a fresh snapshot to a user's sessions
		protectedRoutes.POST("/refresh/:userid", handlers.RefreshUser(m))
		// External triggers
		protectedRoutes.POST("/status", handlers.UpdateStatus(m))
		protectedRoutes.POST("/analyses/:id/log", handlers.IngestLog(m))
	}

	return ginRouter
}
