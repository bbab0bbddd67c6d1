package router

import (
	"net/http"

	"homestay-promo/internal/handler"
	"homestay-promo/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Vouchers    *handler.VoucherHandler
	Promotions  *handler.PromotionHandler
	Redemptions *handler.RedemptionHandler
}

// New creates a new HTTP router with all routes and middleware configured.
// Operator routes under /api/admin require the API key; guest routes read
// the caller from the X-User-ID header.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Identity)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey, logger))

			r.Route("/vouchers", func(r chi.Router) {
				r.Post("/", h.Vouchers.Create)
				r.Get("/", h.Vouchers.List)
				r.Get("/{id}", h.Vouchers.GetByID)
				r.Post("/{id}/deactivate", h.Vouchers.Deactivate)
			})

			r.Post("/promotions/live", h.Promotions.Launch)
			r.Delete("/promotions/live", h.Promotions.End)
		})

		r.Get("/promotions/live", h.Promotions.Current)
		r.Post("/promotions/live/claim", h.Promotions.Claim)

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/mine", h.Vouchers.ListMine)
			r.Get("/{code}", h.Vouchers.GetByCode)
			r.Get("/{code}/usage", h.Redemptions.Usage)
			r.Post("/{code}/quote", h.Redemptions.Quote)
			r.Post("/{code}/redeem", h.Redemptions.Redeem)
		})
	})

	return r
}
