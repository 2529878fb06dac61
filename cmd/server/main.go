package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/config"
	"github.com/chezmonami/marketplace-server/internal/database"
	"github.com/chezmonami/marketplace-server/internal/events"
	"github.com/chezmonami/marketplace-server/internal/handler"
	"github.com/chezmonami/marketplace-server/internal/jobs"
	"github.com/chezmonami/marketplace-server/internal/middleware"
	redisclient "github.com/chezmonami/marketplace-server/internal/redis"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/service"
	"github.com/chezmonami/marketplace-server/internal/session"
	"github.com/chezmonami/marketplace-server/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	adminRepo := repository.NewAdminRepository(db.DB)
	structureRepo := repository.NewStructureRepository(db.DB)
	productRepo := repository.NewProductRepository(db.DB)
	annonceRepo := repository.NewAnnonceRepository(db.DB)
	promotionRepo := repository.NewPromotionRepository(db.DB)

	broker := events.NewBroker(redisClient)
	defer broker.Close()

	// Admin session state lives in redis under a per-session scope;
	// the guard registry keeps the periodic checks running.
	registry := session.NewRegistry(func(scope string, onEvict func(session.EvictReason)) *session.Guard {
		return session.NewGuard(
			storage.NewRedisStore(redisClient, scope, cfg.SessionMax()),
			onEvict,
			session.WithCeilings(cfg.SessionMax(), cfg.InactivityMax()),
			session.WithCheckInterval(cfg.SessionCheckInterval()),
		)
	})
	defer registry.Close()

	cartManager := cart.NewManager(func(scope string) cart.ContextStorage {
		return storage.NewRedisStore(redisClient, scope, cfg.CartTTL())
	})
	defer cartManager.Close()

	catalogService := service.NewCatalogService(db, structureRepo, productRepo, promotionRepo)
	annonceService := service.NewAnnonceService(annonceRepo, structureRepo, broker)
	promotionService := service.NewPromotionService(promotionRepo, structureRepo, broker)
	analyticsService := service.NewAnalyticsService(redisClient, structureRepo, adminRepo)
	adminService := service.NewAdminService(
		adminRepo, registry,
		func(scope string) storage.Store {
			return storage.NewRedisStore(redisClient, scope, cfg.SessionMax())
		},
		cfg.SessionSecret,
	)
	rateLimiter := service.NewRateLimiter(redisClient)

	guardMiddleware := middleware.NewAdminGuardMiddleware(registry, adminService.ScopeForToken)
	deviceMiddleware := middleware.NewDeviceMiddleware(isProduction)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimiter, config.DefaultRateLimitPerMin)

	catalogHandler := handler.NewCatalogHandler(catalogService, annonceService, promotionService, analyticsService)
	cartHandler := handler.NewCartHandler(cartManager, broker, catalogService)
	eventsHandler := handler.NewEventsHandler(broker)
	adminHandler := handler.NewAdminHandler(
		adminService, catalogService, annonceService, promotionService, analyticsService,
		registry, guardMiddleware.Handler, isProduction,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.BodyLimit(config.MaxRequestBodySize))
	r.Use(middleware.SecurityHeaders(isProduction))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(deviceMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/", catalogHandler.Routes())
		r.Mount("/panier", cartHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.CSRF(isProduction))
		r.Mount("/", adminHandler.Routes())
	})

	r.Get("/*", handler.NewSPAHandler(cfg.StaticDir).ServeHTTP)

	cleanupJob := jobs.NewCleanupJob(annonceService, annonceRepo, promotionRepo, cartManager, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
