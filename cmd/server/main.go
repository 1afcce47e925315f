package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
	"github.com/iliyamo/bus-seat-reservation/internal/session"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	sessCfg := config.LoadSessionConfig()
	var sessions session.Store
	switch {
	case sessCfg.Store == "redis" && rdb == nil:
		log.Error("SESSION_STORE=redis but redis is unavailable")
		os.Exit(1)
	case sessCfg.Store != "memory" && rdb != nil:
		sessions = session.NewRedisStore(rdb, sessCfg.TTL)
	default:
		sessions = session.NewMemoryStore(sessCfg.TTL)
	}

	cacheCfg := config.LoadCacheConfig()
	var purge func(context.Context) error
	if cacheCfg.PurgeOnWrite {
		purge = func(ctx context.Context) error { return middleware.PurgeCache(ctx, cacheCfg, rdb) }
	}

	publisher := service.NewPublisher(cfg.AMQPURL)
	defer publisher.Close()
	if cfg.RunConsumer {
		consumer := queue.NewConsumer(cfg.AMQPURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("reservation consumer stopped", "error", err)
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	buses := repository.NewBusRepo(db)
	reservations := repository.NewReservationRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens, log)
	busH := handler.NewBusHandler(buses, reservations, users, log)
	busH.Purge = purge
	seatMapH := handler.NewSeatMapHandler(buses, reservations, sessions, log)
	resvH := handler.NewReservationHandler(buses, reservations, users, sessions, publisher, purge, log)
	driverH := handler.NewDriverHandler(buses, reservations)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, handler.NewHealthHandler(db, rdb))
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, busH, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterSeatMap(e, seatMapH, cfg.JWTSecret, sessCfg.Header)
	router.RegisterRider(e, resvH, cfg.JWTSecret, sessCfg.Header)
	router.RegisterDriver(e, driverH, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{Auth: authH, Buses: busH, Reservations: resvH}, cfg.JWTSecret, sessCfg.Header)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
