package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/marketplace/pkg/health"
	"github.com/utafrali/marketplace/pkg/middleware"
)

// ServiceName labels the HTTP metrics and spans of this service.
const ServiceName = "catalog"

// RouterOption adjusts optional routes.
type RouterOption func(*routerOptions)

type routerOptions struct {
	mediaFiles ObjectReader
	rateLimit  *middleware.RateLimitConfig
}

// WithMediaFiles serves stored media objects under /media/.
func WithMediaFiles(objects ObjectReader) RouterOption {
	return func(o *routerOptions) { o.mediaFiles = objects }
}

// WithRateLimit limits API requests per seller.
func WithRateLimit(cfg middleware.RateLimitConfig) RouterOption {
	return func(o *routerOptions) { o.rateLimit = &cfg }
}

// NewRouter creates a chi router with all catalog service routes registered.
func NewRouter(
	productService ProductService,
	healthHandler *health.Handler,
	validateToken middleware.TokenValidator,
	cors CORSConfig,
	logger *slog.Logger,
	opts ...RouterOption,
) http.Handler {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if o.mediaFiles != nil {
		r.Get("/media/*", MediaFiles(o.mediaFiles))
	}

	// Product API endpoints
	productHandler := NewProductHandler(productService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(validateToken))
		r.Use(middleware.RequestLogger(logger))
		if o.rateLimit != nil {
			r.Use(middleware.RateLimit(*o.rateLimit))
		}

		r.With(middleware.RequireCapability(middleware.CapViewProducts)).Get("/", productHandler.ListProducts)
		r.With(middleware.RequireCapability(middleware.CapAddProduct)).Post("/", productHandler.CreateProduct)

		r.Route("/{productID}", func(r chi.Router) {
			r.With(middleware.RequireCapability(middleware.CapViewProduct)).Get("/", productHandler.GetProduct)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(middleware.CapEditProduct))
				r.Put("/", productHandler.UpdateProduct)
				r.Patch("/", productHandler.UpdateProduct)
			})
			r.With(middleware.RequireCapability(middleware.CapDeleteProduct)).Delete("/", productHandler.DeleteProduct)
		})
	})

	return r
}
