package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/config"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/rules"
	"github.com/gadsdencode/vybechex-sub000/internal/jobs/cleanup"
	pgrepo "github.com/gadsdencode/vybechex-sub000/internal/repo/postgres"
	redrepo "github.com/gadsdencode/vybechex-sub000/internal/repo/redis"
	"github.com/gadsdencode/vybechex-sub000/internal/services/admission"
	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
	matchessvc "github.com/gadsdencode/vybechex-sub000/internal/services/matches"
	messagessvc "github.com/gadsdencode/vybechex-sub000/internal/services/messages"
	profilesvc "github.com/gadsdencode/vybechex-sub000/internal/services/profiles"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/http/handlers"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/ws"
)

const subscriberReadyTimeout = 5 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	hub        *ws.Hub
	httpRouter http.Handler

	stopWorkers context.CancelFunc
	workers     sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if err := rules.ValidateWeights(); err != nil {
		return nil, fmt.Errorf("compatibility weights: %w", err)
	}

	r := newRouter(log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.Migrate {
			if err := pgrepo.Migrate(ctx, pool); err != nil {
				log.Warn("postgres migration failed", zap.Error(err))
			}
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	usesRedis := cfg.Admission.Store == "redis" || cfg.Channel.Fanout == "redis" || cfg.Auth.CheckSessions

	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)

	var counters admission.CounterStore
	if cfg.Admission.Store == "redis" {
		counters = redrepo.NewRateRepo(redisClient, cfg.Admission.Retention)
	} else {
		counters = pgrepo.NewRateCounterRepo(pool)
	}

	var sessions authsvc.SessionChecker
	if cfg.Auth.CheckSessions {
		sessions = redrepo.NewSessionRepo(redisClient)
	}
	authService := authsvc.NewService(authsvc.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTLeeway), sessions)

	profileService := profilesvc.NewService(profileRepo)
	admissionController := admission.NewController(counters, admission.Config{
		MaxActions: cfg.Admission.MaxActions,
		Window:     cfg.Admission.Window,
	}, log.Named("admission"))
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Matches:   matchRepo,
		Profiles:  profileService,
		Admission: admissionController,
	}, matchessvc.Config{
		MinSuggestionScore: cfg.Matching.MinSuggestionScore,
		SuggestionLimit:    cfg.Matching.SuggestionLimit,
	})
	messageService := messagessvc.NewService(messageRepo, matchesService, messagessvc.Config{
		MaxLength: cfg.Messages.MaxLength,
	})

	channelLog := log.Named("channel")
	hub := ws.NewHub(channelLog)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	app := &App{
		cfg:         cfg,
		logger:      log,
		postgres:    pool,
		redis:       redisClient,
		hub:         hub,
		httpRouter:  r,
		stopWorkers: stopWorkers,
	}

	var broadcaster ws.Broadcaster = ws.NewLocalBroadcaster(hub)
	if cfg.Channel.Fanout == "redis" {
		fanout := redrepo.NewFanoutRepo(redisClient, channelLog)
		broadcaster = fanout
		app.startSubscriber(workerCtx, fanout, hub)
	}

	channel := ws.NewHandler(ws.Dependencies{
		Hub:         hub,
		Authorizer:  matchesService,
		Sender:      messageService,
		Broadcaster: broadcaster,
	}, ws.Config{
		HeartbeatPeriod: cfg.Channel.HeartbeatPeriod,
		WriteWait:       cfg.Channel.WriteWait,
		MaxMessageBytes: cfg.Channel.MaxMessageBytes,
		SendBuffer:      cfg.Channel.SendBuffer,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
	}, channelLog)

	if cfg.Admission.Store == "postgres" {
		sweeper := cleanup.New(counters, cfg.Admission.Retention, cfg.Admission.SweepInterval, log.Named("cleanup"))
		app.workers.Add(1)
		go func() {
			defer app.workers.Done()
			sweeper.Start(workerCtx)
		}()
	}

	checks := map[string]handlers.Pinger{"postgres": nil}
	if pool != nil {
		checks["postgres"] = pool
	}
	if usesRedis {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		MatchService:   matchesService,
		MessageHistory: messageService,
		Channel:        channel,
		HealthChecks:   checks,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         log,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return app, nil
}

// startSubscriber feeds events published by any instance into the local hub.
func (a *App) startSubscriber(ctx context.Context, fanout *redrepo.FanoutRepo, hub *ws.Hub) {
	ready := make(chan struct{})
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		if err := fanout.Subscribe(ctx, ready, hub.Deliver); err != nil {
			a.logger.Error("channel fan-out subscriber stopped", zap.Error(err))
		}
	}()

	select {
	case <-ready:
	case <-time.After(subscriberReadyTimeout):
		a.logger.Warn("channel fan-out subscriber not ready, cross-instance delivery may lag")
	}
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

	a.hub.Close()
	a.stopWorkers()
	a.workers.Wait()

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
