package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/openraise/escrow-backend/internal/handlers"
	"github.com/openraise/escrow-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName         string
	AllowOrigins        []string
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	ProjectHandler      *handlers.ProjectHandler
	ContributionHandler *handlers.ContributionHandler
	RefundHandler       *handlers.RefundHandler
	SettlementHandler   *handlers.SettlementHandler
	AutomationHandler   *handlers.AutomationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/login", cfg.AuthHandler.Login)

	api := router.Group("/api")
	{
		api.GET("/projects/:id", cfg.ProjectHandler.Get)
		api.GET("/projects/:id/events", cfg.ProjectHandler.Events)
		api.GET("/projects/:id/contributions", cfg.ContributionHandler.Records)
		api.POST("/projects/:id/contribute", cfg.ContributionHandler.Contribute)
		api.POST("/projects/:id/cancel", cfg.ContributionHandler.Cancel)
		api.GET("/projects/:id/refunds", cfg.RefundHandler.List)
		api.GET("/projects/:id/refunds/:contributor", cfg.RefundHandler.Pending)
		api.POST("/projects/:id/refunds/claim", cfg.RefundHandler.Claim)
		api.GET("/projects/:id/settlement", cfg.SettlementHandler.Records)
	}

	// Operator
	operator := api.Group("/")
	operator.Use(cfg.AuthMiddleware.RequireOperator())
	{
		operator.POST("/projects", cfg.ProjectHandler.Create)
		operator.POST("/projects/:id/freeze", cfg.ProjectHandler.Freeze)
		operator.POST("/projects/:id/finalize", cfg.ProjectHandler.Finalize)
		operator.POST("/projects/:id/settlement/retry", cfg.SettlementHandler.RetryPayouts)
		operator.POST("/projects/:id/refunds/clear", cfg.RefundHandler.Clear)
		operator.GET("/settlement/fee-rate", cfg.SettlementHandler.GetFeeRate)
		operator.PUT("/settlement/fee-rate", cfg.SettlementHandler.SetFeeRate)
		operator.POST("/automation/check", cfg.AutomationHandler.Check)
		operator.POST("/automation/worklist/:id", cfg.AutomationHandler.Watch)
		operator.DELETE("/automation/worklist/:id", cfg.AutomationHandler.Unwatch)
		operator.POST("/automation/worklist-rebuild", cfg.AutomationHandler.Rebuild)
	}

	return router
}
