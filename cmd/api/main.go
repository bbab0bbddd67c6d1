package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homestay-promo/internal/codegen"
	"homestay-promo/internal/codeset"
	"homestay-promo/internal/config"
	"homestay-promo/internal/database"
	"homestay-promo/internal/expiry"
	"homestay-promo/internal/handler"
	"homestay-promo/internal/notify"
	"homestay-promo/internal/repository"
	"homestay-promo/internal/router"
	"homestay-promo/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const eventBufferSize = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("store", cfg.Database.Driver).Msg("starting homestay promotion API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reserved, err := loadReservedCodes(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load reserved codes: %w", err)
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise notifications: %w", err)
	}
	defer closeNotifier()

	events := notify.NewDispatcher(notifier, eventBufferSize, logger)
	defer events.Close()

	opts := service.Options{
		CodeLength:             cfg.Promotion.CodeLength,
		CodePrefix:             cfg.Promotion.CodePrefix,
		CodeAttempts:           cfg.Promotion.CodeAttempts,
		MaxDurationMinutes:     cfg.Promotion.MaxDurationMinutes,
		ClaimedVoucherValidity: cfg.Promotion.ClaimedVoucherValidity,
		MaxRetries:             cfg.Promotion.MaxRetries,
		OperationTimeout:       cfg.Promotion.OperationTimeout,
	}
	generator := codegen.New()

	catalogService := service.NewCatalogService(store, generator, reserved, expiry.SystemClock, opts, logger)
	promotionService := service.NewPromotionService(store, generator, reserved, expiry.SystemClock, events, opts, logger)
	redemptionService := service.NewRedemptionService(store, expiry.SystemClock, events, opts, logger)

	mux := router.New(router.Handlers{
		Vouchers:    handler.NewVoucherHandler(catalogService, logger),
		Promotions:  handler.NewPromotionHandler(promotionService, logger),
		Redemptions: handler.NewRedemptionHandler(redemptionService, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newStore opens the configured voucher store.
func newStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.VoucherStore, func(), error) {
	if cfg.Database.Driver == config.StoreMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(logger), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return repository.NewPostgresStore(pool, logger), pool.Close, nil
}

// loadReservedCodes loads the blocklists generated codes must avoid. S3 is
// tried first when enabled, with the local file system as fallback.
func loadReservedCodes(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (codeset.Reserved, error) {
	if len(cfg.Promotion.ReservedCodeFiles) == 0 {
		logger.Info().Msg("no reserved code files configured")
		return codeset.NewReservedFromSets(), nil
	}

	fileLoader := codeset.NewFileLoader(logger)

	var s3Loader codeset.Loader
	if cfg.S3.Enabled {
		l, err := codeset.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for reserved code files (S3 disabled)")
	}

	loader := codeset.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
	return codeset.NewReserved(ctx, cfg.Promotion.ReservedCodeFiles, loader, logger)
}

// newNotifier fans events out to the log and to whichever of Redis and
// Telegram are configured.
func newNotifier(cfg *config.Config, logger zerolog.Logger) (notify.Notifier, func(), error) {
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	closeFn := func() {}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		notifiers = append(notifiers, notify.NewRedisNotifier(client, cfg.Redis.Channel))
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis client")
			}
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("publishing promotion events to redis")
	}

	if cfg.Telegram.Token != "" {
		telegram, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		notifiers = append(notifiers, telegram)
		logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("sending operator alerts to telegram")
	}

	return notify.Multi(notifiers...), closeFn, nil
}
