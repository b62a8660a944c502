package api

import (
	"net/http"
	"time"

	"github.com/example/merch-storefront/internal/api/middleware"
	"github.com/example/merch-storefront/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	WebDir         string
	SecureCookie   bool
	RequestTimeout time.Duration
}

func NewRouter(handlers *Handlers, tokens *auth.SessionTokens, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/site", handlers.Site)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", handlers.ListCatalog)
			r.Get("/categories", handlers.ListCategories)
			r.Get("/{id}", handlers.GetCatalogItem)
		})

		// Bank webhook, not bound to a buyer session
		r.Route("/payments/bank-transfer", func(r chi.Router) {
			r.Post("/verify", handlers.VerifyTransfer)
			r.Get("/{reference}", handlers.TransferStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(tokens, cfg.SecureCookie, logger))

			r.Get("/session", handlers.GetSession)
			r.Delete("/session", handlers.AbandonSession)

			r.Route("/cart/items", func(r chi.Router) {
				r.Post("/", handlers.AddToCart)
				r.Put("/{id}", handlers.SetQuantity)
				r.Delete("/{id}", handlers.RemoveFromCart)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/payment", handlers.ProceedToPayment)
				r.Post("/method", handlers.SelectMethod)
				r.Post("/back", handlers.Back)
				r.Post("/submit", handlers.Submit)
				r.Post("/reset", handlers.Reset)
			})
		})
	})

	// Static files (web UI)
	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}

	return r
}
