package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"neurolearn-backend/internal/handlers"
	"neurolearn-backend/internal/middleware"
	"neurolearn-backend/internal/websocket"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Learning *handlers.LearningHandler
	Profile  *handlers.ProfileHandler
	Activity *handlers.ActivityHandler
	Content  *handlers.ContentHandler
	Jobs     *handlers.JobHandler
}

type Options struct {
	FrontendURL         string
	StoragePath         string
	AIRequestsPerMinute int
}

// New builds the route table. ctx bounds background goroutines owned by
// the router's middleware.
func New(ctx context.Context, jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.FrontendURL))

	aiLimiter := middleware.NewRateLimiter(ctx, opts.AIRequestsPerMinute, time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/content/supported-formats", h.Content.SupportedFormats)

		// Authenticates via ?token=
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Get("/profile", h.Profile.Get)
			r.Put("/profile", h.Profile.Update)
			r.Get("/activity", h.Activity.List)
			r.Get("/jobs/{id}", h.Jobs.GetJob)

			r.Route("/content", func(r chi.Router) {
				r.Post("/upload", h.Content.Upload)
				r.Post("/youtube", h.Content.YouTube)
			})

			r.Group(func(r chi.Router) {
				r.Use(aiLimiter.Middleware)

				r.Route("/learn", func(r chi.Router) {
					r.Post("/simplify", h.Learning.Simplify)
					r.Post("/expand", h.Learning.Expand)
					r.Post("/quiz", h.Learning.Quiz)
					r.Post("/comprehension", h.Learning.Comprehension)
					r.Post("/comprehension/grade", h.Learning.Grade)
					r.Post("/illustrate", h.Learning.Illustrate)
				})

				r.Route("/spark", func(r chi.Router) {
					r.Post("/challenge", h.Learning.Challenge)
					r.Post("/evaluate", h.Learning.Evaluate)
				})
			})
		})
	})

	files := http.StripPrefix("/files/", http.FileServer(http.Dir(opts.StoragePath)))
	r.Get("/files/*", files.ServeHTTP)

	return r
}
