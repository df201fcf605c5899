package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// RequestTimeout bounds every REST call. It is above the transport timeout
// so upstream errors surface as failures rather than 408s.
const RequestTimeout = 30 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(BearerAuthMiddleware())

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, RequestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/locations", with(ListLocationsHandler(deps)))
	v1.Get("/stations", with(StationsHandler(deps)))

	v1.Post("/sessions", CreateSessionHandler(deps))
	v1.Get("/sessions/:id", GetSessionHandler(deps))
	v1.Delete("/sessions/:id", DeleteSessionHandler(deps))
	v1.Post("/sessions/:id/search", with(SearchHandler(deps)))
	v1.Put("/sessions/:id/filters", FiltersHandler(deps))
	v1.Get("/sessions/:id/trips", TripsHandler(deps))
	v1.Post("/sessions/:id/selection", SelectionHandler(deps))
	v1.Post("/sessions/:id/book", with(BookHandler(deps)))
	v1.Post("/sessions/:id/payment", with(PaymentHandler(deps)))
	v1.Post("/sessions/:id/reset", ResetHandler(deps))

	if deps.Credentials != nil {
		v1.Put("/credentials", PutCredentialHandler(deps))
		v1.Get("/credentials", GetCredentialHandler(deps))
		v1.Delete("/credentials", DeleteCredentialHandler(deps))
	}

	// GraphQL
	app.Post("/graphql", with(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Get("/ws/sessions/:id", SessionUpgradeHandler(deps), websocket.New(SessionStreamHandler(deps)))
}
