package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ticketfair/ticketfair/internal/idempotency"
	"github.com/ticketfair/ticketfair/internal/observability"
	"github.com/ticketfair/ticketfair/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(AuthMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Post("/v1/events", h.CreateEvent)
	r.Post("/v1/events/{id}/activate", h.ActivateEvent)
	r.Post("/v1/events/{id}/finalize", h.FinalizeAuction)
	r.Get("/v1/events/{id}", h.GetEvent)
	r.Get("/v1/events/{id}/price", h.GetPrice)
	r.Post("/v1/bids", h.PlaceBid)
	r.Post("/v1/bids/{id}/refund", h.RefundBid)
	r.Post("/v1/tickets/award", h.AwardTicket)
	r.Post("/v1/tickets/{id}/claim", h.ClaimTicket)
	r.Post("/v1/accounts/deposit", h.Deposit)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
