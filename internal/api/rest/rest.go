package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/dhanki/token-platform/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Account registration and login (open)
		v1.POST("/auth/register", handler.Register)
		v1.POST("/auth/login", handler.Login)

		// Authenticated account endpoints
		authed := v1.Group("", middleware.Auth(authCfg))
		{
			authed.GET("/me", handler.GetProfile)
			authed.PATCH("/me", handler.UpdateProfile)

			authed.POST("/purchases", handler.PurchaseTokens)
			authed.GET("/purchases", handler.GetPurchaseHistory)
			authed.GET("/income", handler.GetIncomeHistory)

			authed.GET("/network", handler.GetReferralNetwork)
			authed.GET("/dashboard", handler.GetDashboard)
			authed.GET("/settings", handler.GetSettings)
		}

		// Admin console endpoints (requires the admin claim)
		admin := v1.Group("/admin", middleware.Auth(authCfg), middleware.AdminAuth())
		{
			admin.GET("/users", handler.AdminListUsers)
			admin.PATCH("/users/:id", handler.AdminUpdateUser)

			admin.GET("/transactions", handler.AdminListTransactions)
			admin.PATCH("/transactions/:id/status", handler.AdminUpdateTransactionStatus)

			admin.GET("/stats", handler.AdminPlatformStats)
			admin.PATCH("/settings", handler.AdminUpdateSettings)
		}
	}
}
