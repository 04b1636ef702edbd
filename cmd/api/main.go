package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"match-engine/internal/config"
	"match-engine/internal/db"
	apihttp "match-engine/internal/http"
	"match-engine/internal/observability"
	"match-engine/internal/repository"
	"match-engine/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	shutdownTracing := observability.InitTracing(ctx, logger, observability.TracingConfigFrom(cfg))
	defer func() {
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctxShutdown); err != nil {
			logger.Warn("otel shutdown failed", zap.Error(err))
		}
	}()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	ctxPing, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := db.Ping(ctxPing, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	cancelPing()

	userRepo := repository.NewPgUserRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	swipeRepo := repository.NewPgSwipeRepository(pool)

	// Redis es el store preferido para la cuota; sin Redis la cuota vive en Postgres.
	var (
		quotaStore   service.QuotaStore = repository.NewPgUsageRepository(pool)
		swipeLimiter service.SwipeRateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using postgres quota store", zap.Error(err))
		} else {
			quotaStore = service.NewRedisQuotaStore(redisClient)
			swipeLimiter = service.NewRedisSwipeRateLimiter(redisClient, logger, cfg.SwipeRateWindow, cfg.SwipeRateLimit)
		}
		cancel()
	}
	if swipeLimiter == nil {
		swipeLimiter = service.NewMemorySwipeRateLimiter(cfg.SwipeRateWindow, cfg.SwipeRateLimit)
	}

	defaultLoc, err := time.LoadLocation(cfg.QuotaTimeZone)
	if err != nil {
		logger.Warn("invalid quota time zone, using UTC", zap.String("time_zone", cfg.QuotaTimeZone), zap.Error(err))
		defaultLoc = time.UTC
	}

	policy := service.NewQuotaPolicy(cfg.QuotaTierLimits, cfg.QuotaDefaultTier)
	quotaGuard := service.NewQuotaGuard(quotaStore, policy, defaultLoc, time.Now, logger)
	evaluator := service.NewCompatibilityEvaluator(time.Now)
	ranker := service.NewCandidateRanker(evaluator, cfg.RankWorkers, time.Now)
	chatGate := service.NewChatGate(cfg.DirectMessageThreshold)

	matchSvc := service.NewMatchService(logger, userRepo, profileRepo, swipeRepo, evaluator, ranker, quotaGuard, chatGate, service.MatchServiceConfig{
		DefaultLimit:    cfg.RankDefaultLimit,
		MaxLimit:        cfg.RankMaxLimit,
		PoolSize:        cfg.RankPoolSize,
		FetchTimeout:    cfg.RankFetchTimeout,
		DefaultTimeZone: defaultLoc,
	}).WithSwipeLimiter(swipeLimiter)

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL)

	routerOpts := apihttp.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins}
	if cfg.OtelEnabled {
		routerOpts.ServiceName = cfg.OtelServiceName
	}
	router := apihttp.NewRouter(logger, jwtSvc, apihttp.NewMatchHandler(logger, matchSvc), routerOpts)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
