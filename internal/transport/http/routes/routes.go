package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/infra/security"
	"github.com/securticket/securticket/internal/transport/http/handlers"
	"github.com/securticket/securticket/internal/transport/http/middleware"
	"github.com/securticket/securticket/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Accounts *usecase.AccountService
	Catalog  *usecase.CatalogService
	Bookings *usecase.BookingService
	Payments *usecase.PaymentService
	Audit    *usecase.AuditService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Tokens      *security.TokenManager
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Registry    *prometheus.Registry
	Services    ServiceSet
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument())
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	requireAuth := middleware.RequireAuth(deps.Tokens)

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Accounts, deps.Tokens)
		authHandler.RegisterRoutes(api.Group("/auth"), buildLoginMiddlewares(deps)...)

		eventHandler := handlers.NewEventHandler(deps.Services.Catalog)
		eventHandler.RegisterPublicRoutes(api.Group("/events"))

		adminEvents := api.Group("/events")
		adminEvents.Use(requireAuth, middleware.RequireCapability(domain.CapabilityManageEvents))
		eventHandler.RegisterAdminRoutes(adminEvents)

		bookingHandler := handlers.NewBookingHandler(deps.Services.Bookings, deps.Services.Payments)

		bookings := api.Group("/bookings")
		bookings.Use(requireAuth)
		bookingHandler.RegisterRoutes(bookings)

		adminBookings := api.Group("/admin/bookings")
		adminBookings.Use(requireAuth, middleware.RequireCapability(domain.CapabilityViewAllBookings))
		bookingHandler.RegisterAdminRoutes(adminBookings)

		paymentHandler := handlers.NewPaymentHandler(deps.Services.Payments)
		paymentHandler.RegisterRoutes(api.Group("/payments"))

		auditHandler := handlers.NewAuditHandler(deps.Services.Audit)

		audit := api.Group("/audit")
		audit.Use(requireAuth, middleware.RequireCapability(domain.CapabilityViewAuditLog))
		auditHandler.RegisterRoutes(audit)
	}

	return r
}

// buildLoginMiddlewares assembles the per-IP sliding-window limit applied in
// front of the login handler.
func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       "login",
		Limit:      deps.Config.RateLimit.LoginMaxAttempts,
		Window:     deps.Config.RateLimit.LoginWindow,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.Limit(rule)}
}
