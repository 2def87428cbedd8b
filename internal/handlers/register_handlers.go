package handlers

import (
	"net/http"

	"github.com/SscSPs/fee_ledger_app/cmd/docs"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/SscSPs/fee_ledger_app/internal/platform/config"
	"github.com/SscSPs/fee_ledger_app/internal/utils"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// apiMiddleware runs on /api/v1 after authentication.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
	apiMiddleware ...gin.HandlerFunc,
) {
	registerValidators()

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services, posthogClient, apiMiddleware)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
	apiMiddleware []gin.HandlerFunc,
) {
	// Apply AuthMiddleware to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	v1.Use(apiMiddleware...)

	// Every ledger route is scoped to a branch and academic year
	scoped := v1.Group("/branches/:branch_id/years/:academic_year_id")

	balances := scoped.Group("/balances")
	registerFeeBalanceRoutes(balances, services.FeeBalance, services.Bulk, posthogClient)

	row := balances.Group("/:enrollment_id/:fee_kind")
	registerConcessionRoutes(row, services.Concession, posthogClient)
	registerTermPaymentRoutes(row, services.Payment, posthogClient)

	registerPaymentRoutes(scoped.Group("/payments"), services.Payment, posthogClient)
	registerReservationRoutes(scoped.Group("/reservations"), services.FeeBalance, posthogClient)
	registerFeeStructureRoutes(scoped, services.FeeStructure)
	registerDashboardRoutes(scoped, services.Dashboard)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
