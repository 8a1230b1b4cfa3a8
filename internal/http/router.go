package httpx

import (
	"encoding/json"
	"net/http"

	"charipay/internal/config"
	"charipay/internal/gateway/checkout"
	"charipay/internal/gateway/reconcile"
	"charipay/internal/gateway/webhook"
	"charipay/internal/http/handlers"
	middlewarex "charipay/internal/http/middleware"
	"charipay/internal/store/redislock"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config      config.Cfg
	Builder     *checkout.Builder
	Processor   *reconcile.Processor
	WebhookDeps webhook.Deps
	Locker      *redislock.Locker
}

// NewRouter creates the HTTP router.
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"gateway": "paystack",
		})
	})

	// Donor-facing checkout and return flow
	r.Post("/donations", handlers.CreateDonation(deps.Builder))
	r.Get("/donations/{donationID}/return", handlers.DonationReturn(deps.Processor))

	// Webhook endpoint (public, validated by signature). Bound for
	// every method: the interpreter answers non-POST requests itself.
	r.HandleFunc("/webhooks/paystack", handlers.PaystackWebhook(deps.WebhookDeps, deps.Processor, deps.Locker))

	// Admin routes (protected by admin auth)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config))

		r.Post("/donations/{donationID}/refund", handlers.RefundDonation(deps.Processor))
	})

	return r
}
