package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pavelrudenok/matchflow/internal/config"
	"github.com/pavelrudenok/matchflow/internal/infra/metrics"
	"github.com/pavelrudenok/matchflow/internal/repo/memory"
	pgrepo "github.com/pavelrudenok/matchflow/internal/repo/postgres"
	redrepo "github.com/pavelrudenok/matchflow/internal/repo/redis"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	chatsvc "github.com/pavelrudenok/matchflow/internal/services/chat"
	discoverysvc "github.com/pavelrudenok/matchflow/internal/services/discovery"
	matchessvc "github.com/pavelrudenok/matchflow/internal/services/matches"
	swipessvc "github.com/pavelrudenok/matchflow/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

// stores collects the persistence interfaces the services consume.
// They are backed by postgres when it is reachable and by the
// in-process store otherwise, so the API keeps serving in degraded mode.
type stores struct {
	ledger interface {
		swipessvc.Ledger
		discoverysvc.Ledger
	}
	matchStore interface {
		swipessvc.MatchStore
		matchessvc.Registry
		chatsvc.Registry
		discoverysvc.MatchStore
	}
	messageLog chatsvc.Log
	candidates discoverysvc.CandidateSource
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, collector)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			p.Close()
			log.Warn("postgres unreachable, continuing in degraded mode", zap.Error(err))
		} else {
			pool = p
		}
	}
	if pool != nil && cfg.Postgres.MigrateOnStart {
		if err := pgrepo.RunMigrations(cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var st stores
	if pool != nil {
		st = stores{
			ledger:     pgrepo.NewSwipeRepo(pool),
			matchStore: pgrepo.NewMatchRepo(pool),
			messageLog: pgrepo.NewMessageRepo(pool),
			candidates: pgrepo.NewCandidatePoolRepo(pool),
		}
	} else {
		mem := memory.NewStore()
		st = stores{
			ledger:     mem,
			matchStore: mem,
			messageLog: mem,
			candidates: mem,
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	idempotencyCache := redrepo.NewIdempotencyRepo(redisClient, cfg.Chat.IdempotencyTTL)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, cfg.Auth.SessionTTL)
	swipeService := swipessvc.NewService(swipessvc.Dependencies{
		Ledger:     st.ledger,
		MatchStore: st.matchStore,
		Metrics:    collector,
	})
	matchService := matchessvc.NewService(matchessvc.Dependencies{
		Registry: st.matchStore,
	})
	chatService := chatsvc.NewService(chatsvc.Dependencies{
		Log:         st.messageLog,
		Registry:    st.matchStore,
		Cache:       idempotencyCache,
		Metrics:     collector,
		PageSize:    cfg.Chat.PageSize,
		MaxPageSize: cfg.Chat.MaxPageSize,
	})
	discoveryService := discoverysvc.NewService(discoverysvc.Dependencies{
		Ledger:     st.ledger,
		MatchStore: st.matchStore,
		Source:     st.candidates,
		PoolSize:   cfg.Discovery.PoolSize,
	})

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		SwipeService:     swipeService,
		MatchService:     matchService,
		ChatService:      chatService,
		DiscoveryService: discoveryService,
		Metrics:          collector,
		Gatherer:         registry,
		Logger:           log,
		Config:           cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
