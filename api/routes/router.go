package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athathco/athath-backend/api/controllers"
	"github.com/athathco/athath-backend/api/middleware"
	"github.com/athathco/athath-backend/internal/cart"
	"github.com/athathco/athath-backend/internal/catalog"
	checkoutsvc "github.com/athathco/athath-backend/internal/checkout"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/disputes"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/enums"
	"github.com/athathco/athath-backend/pkg/logger"
	pkgredis "github.com/athathco/athath-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. The router wires but never
// constructs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *pkgredis.Client
	Catalog     *catalog.Repo
	Cart        *cart.Service
	Checkout    *checkoutsvc.Service
	Orders      *orders.Service
	Disputes    *disputes.Service
	Commissions *commission.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(d.Catalog, logg))
		r.Get("/products/{productID}", controllers.ProductDetail(d.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(d.Redis, logg))

			payThrottle := middleware.PaymentRateLimit(
				middleware.NewPaymentRateLimitPolicy(
					cfg.RateLimit.PayWindow,
					cfg.RateLimit.PayIPLimit,
					cfg.RateLimit.PaySubjectLimit,
				),
				d.Redis, logg,
			)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Put("/items", controllers.CartSetItem(d.Cart, logg))
			})

			r.With(payThrottle).Post("/checkout", controllers.Checkout(d.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Get("/{orderID}", controllers.OrderDetail(d.Orders, logg))
				r.With(payThrottle).Post("/{orderID}/pay", controllers.OrderPay(d.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.OrderCancel(d.Orders, logg))
			})

			r.Route("/disputes", func(r chi.Router) {
				r.Post("/", controllers.DisputeCreate(d.Disputes, logg))
				r.Get("/", controllers.DisputeList(d.Disputes, logg))
				r.Get("/{ticketID}", controllers.DisputeDetail(d.Disputes, logg))
				r.Post("/{ticketID}/messages", controllers.DisputeAddMessage(d.Disputes, logg))
			})

			r.Route("/retailer", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleRetailer.String(), logg))
				r.Get("/ledger", controllers.RetailerLedger(d.Commissions, logg))
				r.Get("/balance", controllers.RetailerBalance(d.Commissions, logg))
				r.Post("/orders/{orderID}/ship", controllers.RetailerShipOrder(d.Orders, logg))
				r.Post("/orders/{orderID}/deliver", controllers.RetailerDeliverOrder(d.Orders, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleAdmin.String(), logg))
				r.Post("/orders/{orderID}/refund", controllers.AdminRefund(d.Orders, logg))
				r.Route("/disputes", func(r chi.Router) {
					r.Get("/", controllers.AdminDisputeList(d.Disputes, logg))
					r.Patch("/{ticketID}/status", controllers.AdminDisputeUpdateStatus(d.Disputes, logg))
					r.Post("/{ticketID}/resolve", controllers.AdminDisputeResolve(d.Disputes, logg))
				})
			})
		})
	})

	return r
}
