package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillswap/backend/internal/api"
	"skillswap/backend/internal/api/handler"
	"skillswap/backend/internal/auth"
	"skillswap/backend/internal/chathub"
	"skillswap/backend/internal/config"
	"skillswap/backend/internal/database"
	"skillswap/backend/internal/exchange"
	"skillswap/backend/internal/localization"
	"skillswap/backend/internal/negotiation"
	"skillswap/backend/internal/storage"
	"skillswap/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var (
		rdb    *redis.Client
		broker chathub.Broker
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisBroker, err := chathub.NewRedisBroker(ctx, rdb, logger)
		if err != nil {
			return err
		}
		defer redisBroker.Close()
		broker = redisBroker
	} else {
		logger.Warn("REDIS_ADDR not set, running single instance with in-process fan-out")
	}

	store := storage.NewStorageService(db, rdb, logger)
	localizer, err := localization.NewLocalizer()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var notifier negotiation.Notifier
	var tgNotifier *telegram.Notifier
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		tgNotifier = telegram.NewNotifier(bot, store, localizer, logger)
		notifier = tgNotifier
		botService := telegram.NewBotService(bot, store, localizer, logger)
		g.Go(func() error {
			botService.Run(gctx)
			return nil
		})
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	neg := negotiation.NewService(store, notifier, logger)
	authSvc := auth.NewService(store, tokens, auth.LogMailer{Log: logger}, cfg.OTPTTL, logger)
	hub := chathub.NewManagerService(neg, broker, logger)

	h := handler.NewHandler(hub, neg, authSvc, exchange.NewService(store, logger), store, logger)
	h.SecureCookie = cfg.AppEnv == "production"
	router := api.NewRouter(h, authSvc, cfg.AllowedOrigins, logger)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if tgNotifier != nil {
		tgNotifier.Wait()
	}
	logger.Info("server stopped")
	return err
}
