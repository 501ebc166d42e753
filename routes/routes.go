package routes

import (
	"log/slog"

	"github.com/bolekz/riffa-games/handlers"
	"github.com/bolekz/riffa-games/middleware"
	"github.com/bolekz/riffa-games/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	JWTSecret     string
	WebhookSecret string
	FrontendURL   string
	Logger        *slog.Logger
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	Games         *handlers.GameHandler
	Tournaments   *handlers.TournamentHandler
	Claims        *handlers.ClaimHandler
	Payments      *handlers.PaymentHandler
	Webhooks      *handlers.WebhookHandler
	WebSockets    *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, cfg Config) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.JWTSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Post("/auth/register", cfg.AuthHandler.Register)
	router.Post("/auth/login", cfg.AuthHandler.Login)

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", cfg.UserHandler.PublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", cfg.UserHandler.Me)
			r.Delete("/me", cfg.UserHandler.DeleteAccount)
		})
	})

	router.Route("/games", func(r chi.Router) {
		r.Get("/{gameID}", cfg.Games.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Put("/{gameID}/logo", cfg.Games.UploadLogo)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", cfg.Tournaments.List)
		r.Get("/{tournamentID}", cfg.Tournaments.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", cfg.Tournaments.Create)
			r.Post("/{tournamentID}/join", cfg.Tournaments.Join)
			r.Post("/{tournamentID}/score", cfg.Tournaments.SubmitScore)
			r.Put("/{tournamentID}/banner", cfg.Tournaments.UploadBanner)
		})

		// Финализация и отмена — только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/{tournamentID}/finalize", cfg.Tournaments.Finalize)
			r.Post("/{tournamentID}/cancel", cfg.Tournaments.Cancel)
		})
	})

	router.Route("/claims", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", cfg.Claims.ListMine)
		r.Post("/{claimID}/resolve", cfg.Claims.Resolve)
	})

	router.Route("/payments", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/preference", cfg.Payments.CreatePreference)
		r.Get("/transactions", cfg.Payments.ListTransactions)
	})

	router.Route("/api/webhooks", func(r chi.Router) {
		r.Use(middleware.ValidateWebhookSignature(cfg.WebhookSecret, cfg.Logger))
		r.Post("/mercadopago", cfg.Webhooks.MercadoPago)
	})

	router.Get("/ws/tournaments/{tournamentID}", cfg.WebSockets.ServeWs)
}
