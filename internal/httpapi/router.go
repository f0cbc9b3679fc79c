package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JorgeRiveraMancilla/go-store-api/pkg/metrics"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Products *ProductHandler
	Baskets  *BasketHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
}

func NewRouter(h Handlers, m *metrics.ServerMetrics, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))
	r.Use(BuyerIdentityMiddleware)
	if m != nil {
		r.Use(MetricsMiddleware(m))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook delivery must not race the request timeout budget of
		// interactive routes, but shares the rest of the stack.
		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.Timeout(requestTimeout)).Post("/", h.Payments.CreateOrUpdateIntent)
			r.Post("/webhook", h.Payments.Webhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.ListProducts)
				r.Get("/{id}", h.Products.GetProduct)
			})

			r.Route("/basket", func(r chi.Router) {
				r.Get("/", h.Baskets.GetBasket)
				r.Post("/", h.Baskets.AddItem)
				r.Delete("/", h.Baskets.RemoveItem)
				r.Post("/merge", h.Baskets.MergeBasket)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListOrders)
				r.Post("/", h.Orders.PlaceOrder)
				r.Get("/{id}", h.Orders.GetOrder)
			})
		})
	})

	return r
}
