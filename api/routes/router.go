package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veldmarket/farmcart-backend/api/controllers"
	ordercontrollers "github.com/veldmarket/farmcart-backend/api/controllers/orders"
	paymentcontrollers "github.com/veldmarket/farmcart-backend/api/controllers/payments"
	"github.com/veldmarket/farmcart-backend/api/middleware"
	"github.com/veldmarket/farmcart-backend/internal/reconciliation"
	"github.com/veldmarket/farmcart-backend/pkg/config"
	"github.com/veldmarket/farmcart-backend/pkg/db"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/redis"
)

// NewRouter wires the HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	reconciliationSvc reconciliation.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/payments/callback", paymentcontrollers.Callback(reconciliationSvc, logg))
		r.Get("/orders/{orderId}/summary", ordercontrollers.Summary(reconciliationSvc, logg))
	})

	return r
}
