package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/branchpos-backend/api/controllers"
	"github.com/angelmondragon/branchpos-backend/api/middleware"
	"github.com/angelmondragon/branchpos-backend/internal/checkout"
	products "github.com/angelmondragon/branchpos-backend/internal/products"
	"github.com/angelmondragon/branchpos-backend/internal/session"
	"github.com/angelmondragon/branchpos-backend/pkg/config"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	idempotencyStore redis.IdempotencyStore,
	metricsHandler http.Handler,
	branchService controllers.CatalogSource,
	productService products.Service,
	sessionService session.Service,
	checkoutService checkout.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BranchContext(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/units", controllers.ListUnits(branchService, logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/unit-cost", controllers.PreviewUnitCost(branchService, logg))
			r.Post("/channel-price", controllers.PreviewChannelPrice(branchService, logg))
			r.Post("/stock", controllers.PreviewStock(branchService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Post("/preview", controllers.PreviewProduct(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(productService, logg))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.CreateSession(sessionService, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.GetSession(sessionService, logg))
				r.Post("/lines", controllers.AddSessionLine(sessionService, logg))
				r.Patch("/lines/{lineId}", controllers.UpdateSessionLine(sessionService, logg))
				r.Delete("/lines/{lineId}", controllers.RemoveSessionLine(sessionService, logg))
				r.Put("/channel", controllers.SetSessionChannel(sessionService, logg))
				r.Put("/discount", controllers.SetSessionDiscount(sessionService, logg))
				r.Post("/abandon", controllers.AbandonSession(sessionService, logg))
				r.Post("/checkout", controllers.CheckoutSession(checkoutService, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(checkoutService, logg))
			r.Get("/{saleId}", controllers.GetSale(checkoutService, logg))
		})
	})

	return r
}
