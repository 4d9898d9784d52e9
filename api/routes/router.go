package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moda-commerce/moda-backend/api/controllers"
	webhookcontrollers "github.com/moda-commerce/moda-backend/api/controllers/webhooks"
	"github.com/moda-commerce/moda-backend/api/middleware"
	"github.com/moda-commerce/moda-backend/internal/cart"
	"github.com/moda-commerce/moda-backend/internal/catalog"
	checkoutsvc "github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/devices"
	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/internal/listings"
	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/payments/momo"
	"github.com/moda-commerce/moda-backend/internal/payments/vnpay"
	"github.com/moda-commerce/moda-backend/internal/reputation"
	"github.com/moda-commerce/moda-backend/internal/stock"
	"github.com/moda-commerce/moda-backend/internal/trades"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	pkgredis "github.com/moda-commerce/moda-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router mounts. Nil services answer with an
// internal error; nil gateway clients leave their callback routes unmounted.
type Deps struct {
	DB          pinger
	Redis       pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Catalog    catalog.Service
	Stock      stock.Service
	Cart       cart.Service
	Checkout   checkoutsvc.Service
	Inventory  inventory.Service
	Listings   listings.Service
	Trades     trades.Service
	Reputation reputation.Service
	Devices    devices.Service

	VNPay         *vnpay.Client
	MoMo          *momo.Client
	CallbackGuard *payments.CallbackGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/{paymentId}", controllers.PaymentDetail(deps.Checkout, logg))
		if deps.VNPay != nil {
			r.Get("/vnpay/ipn", webhookcontrollers.VNPayIPN(deps.Checkout, deps.VNPay, deps.CallbackGuard, logg))
			r.Get("/vnpay/return", webhookcontrollers.VNPayReturn(deps.Checkout, deps.VNPay, logg))
		}
		if deps.MoMo != nil {
			r.Post("/momo/ipn", webhookcontrollers.MoMoIPN(deps.Checkout, deps.MoMo, deps.CallbackGuard, logg))
		}
	})

	// public storefront reads
	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/catalog", controllers.CatalogList(deps.Catalog, logg))
		r.Get("/catalog/{itemId}", controllers.CatalogDetail(deps.Catalog, logg))
		r.Get("/sizes/{sizeId}/availability", controllers.StockAvailability(deps.Stock, logg))
		r.Get("/listings", controllers.ListingsBrowse(deps.Listings, logg))
		r.Get("/listings/{listingId}", controllers.ListingDetail(deps.Listings, logg))
		r.Get("/users/{userId}/reputation", controllers.ReputationDetail(deps.Reputation, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Delete("/items/{cartItemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})
		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(deps.Inventory, logg))
			r.Get("/{itemId}/{sizeId}", controllers.InventoryItem(deps.Inventory, logg))
		})

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", controllers.ListingCreate(deps.Listings, logg))
			r.Get("/mine", controllers.ListingsMine(deps.Listings, logg))
			r.Post("/{listingId}/cancel", controllers.ListingCancel(deps.Listings, logg))
			r.Post("/{listingId}/deactivate", controllers.ListingDeactivate(deps.Listings, logg))
			r.Post("/{listingId}/activate", controllers.ListingActivate(deps.Listings, logg))
		})

		r.Route("/trades", func(r chi.Router) {
			r.Post("/", controllers.TradeCreate(deps.Trades, logg))
			r.Get("/", controllers.TradesMine(deps.Trades, logg))
			r.Route("/{tradeId}", func(r chi.Router) {
				r.Get("/", controllers.TradeDetail(deps.Trades, logg))
				r.Post("/payment", controllers.TradeSubmitPayment(deps.Trades, logg))
				r.Post("/confirm-payment", controllers.TradeConfirmPayment(deps.Trades, logg))
				r.Post("/ship", controllers.TradeMarkShipped(deps.Trades, logg))
				r.Post("/confirm-delivery", controllers.TradeConfirmDelivery(deps.Trades, logg))
				r.Post("/complete", controllers.TradeComplete(deps.Trades, logg))
				r.Post("/dispute", controllers.TradeOpenDispute(deps.Trades, logg))
				r.Post("/cancel", controllers.TradeCancel(deps.Trades, logg))
				r.Post("/reviews", controllers.TradeReview(deps.Trades, logg))
				r.Get("/messages", controllers.TradeMessages(deps.Trades, logg))
				r.Post("/messages", controllers.TradePostMessage(deps.Trades, logg))
			})
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", controllers.DeviceList(deps.Devices, logg))
			r.Post("/", controllers.DeviceRegister(deps.Devices, logg))
			r.Delete("/{deviceId}", controllers.DeviceRemove(deps.Devices, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/catalog", controllers.AdminCatalogCreate(deps.Catalog, logg))
		r.Put("/catalog/{itemId}/sizes", controllers.AdminCatalogReplaceSizes(deps.Catalog, logg))
		r.Post("/stock/branches", controllers.AdminStockAddToBranch(deps.Stock, logg))
		r.Get("/stock/sizes/{sizeId}", controllers.AdminStockForSize(deps.Stock, logg))
	})

	return r
}
