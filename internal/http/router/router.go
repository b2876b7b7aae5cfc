package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pasabuyph/backend/internal/config"
	"github.com/pasabuyph/backend/internal/http/handlers"
	"github.com/pasabuyph/backend/internal/http/middleware"
	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	paymentHandler *handlers.PaymentHandler,
	balanceHandler *handlers.BalanceHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/proofs", http.Dir(cfg.ProofStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Errand payment settlement
		protected.POST("/payments/submit", middleware.RequireRole(models.RoleRunner), paymentHandler.Submit)
		protected.PATCH("/payments/:errandId/verify", middleware.RequireRole(models.RoleCustomer), paymentHandler.Verify)
		protected.GET("/payments/:errandId", paymentHandler.GetByErrand)

		// Runner debt ledger and repayments
		protected.GET("/balance", middleware.RequireRole(models.RoleRunner), balanceHandler.GetBalance)
		protected.POST("/balance/repay", middleware.RequireRole(models.RoleRunner), balanceHandler.SubmitRepayment)
		protected.GET("/balance/payments", balanceHandler.ListRepayments)
		protected.PATCH("/balance/payments/:id/approve", middleware.RequireRole(models.RoleAdmin), balanceHandler.ApproveRepayment)
		protected.PATCH("/balance/payments/:id/reject", middleware.RequireRole(models.RoleAdmin), balanceHandler.RejectRepayment)

		// Notifications
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
	}

	return r
}
