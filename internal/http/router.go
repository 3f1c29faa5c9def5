package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kriyptor/Market-Place-App/internal/cache"
	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	App  config.AppConfig
	HTTP config.HTTPConfig

	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Accounts    AccountService
	Cart        CartService
	Orders      OrderService
	Products    ProductService
	Idempotency cache.IdempotencyStore

	HealthChecks map[string]HealthCheck
}

func NewRouter(d RouterDeps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	basePath := d.App.APIBaseURL
	if basePath == "" {
		basePath = "/api/v1"
	}

	authH := NewAuthHandler(d.Accounts, log)
	cartH := NewCartHandler(d.Cart, log)
	ordersH := NewOrdersHandler(d.Orders, log)
	productH := NewProductHandler(d.Products, log)

	buyerOnly := Authenticate(d.Accounts, log, domain.RoleBuyer)
	vendorOnly := Authenticate(d.Accounts, log, domain.RoleVendor)
	idempotent := Idempotency(d.Idempotency, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(Instrument(d.Metrics))
	r.Use(Recoverer(log))
	if d.HTTP.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.HTTP.RequestTimeout))
	}
	if d.HTTP.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(d.HTTP.MaxRequestBodySize))
	}

	r.Get("/health", healthHandler(d.HealthChecks))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route(basePath, func(r chi.Router) {
		r.Route("/auth/user", func(r chi.Router) {
			r.Post("/sign-up", authH.SignUp)
			r.Post("/sign-in", authH.SignIn)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(buyerOnly)
			r.Get("/", cartH.GetCart)
			r.Post("/items", cartH.AddItem)
			r.Patch("/items/{id}", cartH.UpdateQuantity)
			r.Delete("/items/{id}", cartH.RemoveItem)
			r.With(idempotent).Delete("/items", cartH.Checkout)
			r.With(idempotent).Post("/checkout", cartH.Checkout)
		})

		r.Route("/order", func(r chi.Router) {
			r.With(buyerOnly).Get("/buyer/details", ordersH.BuyerOrders)
			r.Group(func(r chi.Router) {
				r.Use(vendorOnly)
				r.Get("/vendor/details", ordersH.VendorOrders)
				r.Get("/vendor/sales", ordersH.VendorSales)
				r.Patch("/{id}/status", ordersH.UpdateStatus)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productH.List)
			r.Get("/{id}", productH.Get)
			r.Group(func(r chi.Router) {
				r.Use(vendorOnly)
				r.Post("/", productH.Create)
				r.Patch("/{id}", productH.Update)
				r.Delete("/{id}", productH.Delete)
			})
		})
	})

	return otelhttp.NewHandler(r, "market-api")
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := map[string]any{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		respondJSON(w, status, body)
	}
}
