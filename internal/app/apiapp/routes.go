package apiapp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pavelrudenok/matchflow/internal/config"
	"github.com/pavelrudenok/matchflow/internal/infra/metrics"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	chatsvc "github.com/pavelrudenok/matchflow/internal/services/chat"
	discoverysvc "github.com/pavelrudenok/matchflow/internal/services/discovery"
	matchessvc "github.com/pavelrudenok/matchflow/internal/services/matches"
	swipessvc "github.com/pavelrudenok/matchflow/internal/services/swipes"
	"github.com/pavelrudenok/matchflow/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	SwipeService     *swipessvc.Service
	MatchService     *matchessvc.Service
	ChatService      *chatsvc.Service
	DiscoveryService *discoverysvc.Service
	Metrics          *metrics.Collector
	Gatherer         prometheus.Gatherer
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.Metrics)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	discoveryHandler := handlers.NewDiscoveryHandler(deps.DiscoveryService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/session", authHandler.Session)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/swipes", swipeHandler.Handle)
		r.Get("/matches", matchesHandler.Handle)
		r.Post("/unmatch", matchesHandler.Unmatch)
		r.Post("/messages", chatHandler.Send)
		r.Get("/conversations/{match_id}", chatHandler.Conversation)
		r.Post("/conversations/{match_id}/read", chatHandler.MarkRead)
		r.Get("/discover", discoveryHandler.Handle)
	})
}
