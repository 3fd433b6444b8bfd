package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/fuelpass/fuelpass-backend/api/routes"
	"github.com/fuelpass/fuelpass-backend/internal/coupons"
	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	"github.com/fuelpass/fuelpass-backend/pkg/config"
	"github.com/fuelpass/fuelpass-backend/pkg/db"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/migrate"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox"
	"github.com/fuelpass/fuelpass-backend/pkg/qrtoken"
	"github.com/fuelpass/fuelpass-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	tokenManager, err := qrtoken.NewManager(cfg.QRToken.Secret, cfg.QRToken.Issuer, cfg.QRToken.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create qr token manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	couponService, err := coupons.NewService(
		coupons.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		tokenManager,
		cfg.Coupons,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	raffleService, err := raffles.NewService(
		raffles.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		cfg.Raffles.SeedBytes,
		cfg.Raffles.DefaultPrize,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create raffle service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, couponService, raffleService),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
