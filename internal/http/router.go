package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/swapbnb/api/internal/auth"
	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/exchange"
	"github.com/swapbnb/api/internal/favorite"
	"github.com/swapbnb/api/internal/home"
	"github.com/swapbnb/api/internal/httputil"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/message"
	"github.com/swapbnb/api/internal/metrics"
	"github.com/swapbnb/api/internal/user"
	"github.com/swapbnb/api/internal/verification"
	"github.com/swapbnb/api/internal/webhook"
)

// Handlers groups the feature handlers mounted by NewRouter
type Handlers struct {
	Auth         *auth.Handler
	Users        *user.Handler
	Homes        *home.Handler
	Favorites    *favorite.Handler
	Exchanges    *exchange.Handler
	Messages     *message.Handler
	Credits      *credits.Handler
	Verification *verification.Handler
	Webhooks     *webhook.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Swagger UI is only mounted in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/verify-email", h.Auth.VerifyEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
		r.Post("/resend-verification", h.Auth.ResendVerificationEmail)
		r.Get("/oauth/{provider}", h.Auth.OAuthStart)
		r.Get("/oauth/{provider}/callback", h.Auth.OAuthCallback)
	})

	// Signed by the payment provider, not by a session
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", h.Webhooks.Payments)
		r.Post("/identity", h.Webhooks.Identity)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", h.Users.GetMe)
			r.Patch("/me", h.Users.UpdateMe)
			r.Patch("/me/onboarding", h.Users.UpdateOnboarding)
			r.Post("/me/avatar", h.Users.UploadAvatar)
			r.Get("/me/homes", h.Homes.ListMine)
			r.Get("/{id}", h.Users.GetPublicProfile)
		})

		r.Route("/homes", func(r chi.Router) {
			r.Get("/", h.Homes.Browse)
			r.Post("/", h.Homes.Create)
			r.Get("/{id}", h.Homes.Get)
			r.Put("/{id}", h.Homes.Update)
			r.Delete("/{id}", h.Homes.Delete)
			r.Post("/{id}/images", h.Homes.UploadImage)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", h.Favorites.List)
			r.Get("/{homeID}", h.Favorites.Status)
			r.Post("/{homeID}/toggle", h.Favorites.Toggle)
		})

		r.Route("/exchanges", func(r chi.Router) {
			r.Get("/", h.Exchanges.List)
			r.Post("/", h.Exchanges.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Exchanges.Get)
				r.Delete("/", h.Exchanges.Delete)
				r.Post("/accept", h.Exchanges.Accept)
				r.Post("/reject", h.Exchanges.Reject)
				r.Post("/cancel", h.Exchanges.Cancel)
				r.Post("/videocall", h.Exchanges.ScheduleVideoCall)
				r.Post("/videocall/skip", h.Exchanges.SkipVideoCall)
				r.Post("/videocall/complete", h.Exchanges.CompleteVideoCall)
				r.Post("/pay", h.Exchanges.PayCredits)
				r.Post("/checkout", h.Exchanges.CreateCheckout)
				r.Get("/messages", h.Messages.ListExchangeMessages)
				r.Post("/messages", h.Messages.SendExchangeMessage)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.Messages.ListConversation)
			r.Post("/", h.Messages.Send)
			r.Get("/unread-count", h.Messages.UnreadCount)
			r.Post("/{id}/read", h.Messages.MarkRead)
		})

		r.Route("/credits", func(r chi.Router) {
			r.Get("/", h.Credits.GetBalance)
			r.Get("/transactions", h.Credits.GetHistory)
			r.Post("/welcome", h.Credits.ClaimWelcome)
			r.Post("/checkout", h.Credits.CreateCheckout)
		})

		r.Route("/verification", func(r chi.Router) {
			r.Post("/session", h.Verification.StartSession)
			r.Get("/status", h.Verification.Status)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
