package apiapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/http/handlers"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/ws"
)

const restTimeout = 60 * time.Second

type Dependencies struct {
	AuthService    *authsvc.Service
	MatchService   handlers.MatchService
	MessageHistory handlers.MessageHistory
	Channel        *ws.Handler
	HealthChecks   map[string]handlers.Pinger
	AllowedOrigins []string
	Logger         *zap.Logger
}

func newRouter(log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	ApplyMiddlewares(r, log)
	return r
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	messagesHandler := handlers.NewMessagesHandler(deps.Channel, deps.MessageHistory)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Use(corsMiddleware(deps.AllowedOrigins))

	r.Get("/healthz", healthHandler.Get)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/matches", func(r chi.Router) {
		r.Use(authMW)

		// The channel handshake outlives any request deadline once upgraded.
		r.Get("/{id}/ws", deps.Channel.ServeMatch)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(restTimeout))

			r.Post("/", matchesHandler.Create)
			r.Get("/", matchesHandler.List)
			r.Get("/suggestions", matchesHandler.Suggestions)
			r.Get("/{id}", matchesHandler.Get)
			r.Post("/{id}/respond", matchesHandler.Respond)
			r.Post("/{id}/messages", messagesHandler.Send)
			r.Get("/{id}/messages", messagesHandler.List)
		})
	})
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
