package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"pomodoro-backend/internal/handlers"
	"pomodoro-backend/internal/middleware"
	"pomodoro-backend/internal/websocket"
)

type Options struct {
	FrontendURL   string
	DefaultUserID string
	// WriteLimiter throttles endpoints that append to the session log.
	WriteLimiter *middleware.RateLimiter
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
}

func New(
	sessionHandler *handlers.SessionHandler,
	wsHub *websocket.Hub,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if opts.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(opts.FrontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(opts.DefaultUserID))

		// ──── Session Routes ────
		r.Route("/session", func(r chi.Router) {
			r.Get("/recommendation", sessionHandler.Recommendation)

			r.Group(func(r chi.Router) {
				if opts.WriteLimiter != nil {
					r.Use(opts.WriteLimiter.Middleware)
				}
				r.Post("/end", sessionHandler.End)
			})
		})

		r.Get("/sessions", sessionHandler.List)

		// ──── Quest Routes ────
		r.Route("/quest", func(r chi.Router) {
			if opts.WriteLimiter != nil {
				r.Use(opts.WriteLimiter.Middleware)
			}
			r.Post("/claim", sessionHandler.ClaimQuest)
		})

		// ──── Stats Routes ────
		r.Get("/stats", sessionHandler.Stats)

		// ──── WebSocket ────
		if wsHub != nil {
			r.Get("/ws", wsHub.HandleWebSocket)
		}
	})

	return r
}
