package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/altynbek07/invbot/internal/api"
	"github.com/altynbek07/invbot/internal/bot"
	"github.com/altynbek07/invbot/internal/config"
	"github.com/altynbek07/invbot/internal/db"
	"github.com/altynbek07/invbot/internal/gateway"
	"github.com/altynbek07/invbot/internal/idempotency"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
	"github.com/altynbek07/invbot/internal/repository"
	"github.com/altynbek07/invbot/internal/service"
	"github.com/altynbek07/invbot/internal/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the bot, the callback server and the broadcast worker,
// blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("init bot api: %w", err)
	}

	store := service.NewPgStore(repository.NewStore(pool))
	gwClient := gateway.NewClient(cfg.GatewayURL, cfg.GatewayPublicKey, cfg.GatewayCallbackURL, cfg.GatewayTimeout)
	dedupe := idempotency.NewStore(redisClient, cfg.CallbackDedupe)

	settingsSvc := service.NewSettingsService(store, redisClient, cfg.SettingsTTL)
	sender := notify.NewTelegramSender(botAPI)
	dispatcher := notify.NewDispatcher(sender, notify.AdminGroupFunc(settingsSvc.AdminGroupFunc()))

	userSvc := service.NewUserService(store)
	txSvc := service.NewTransactionService(store, gwClient, dispatcher, cfg.AutoPayout)
	payinSvc := service.NewPayinService(store, gwClient, dispatcher)
	payoutSvc := service.NewPayoutService(store, gwClient, dispatcher)
	callbackSvc := service.NewCallbackService(store, dispatcher, dedupe)
	adminSvc := service.NewAdminService(store)
	reportSvc := service.NewReportService(store)
	broadcaster := worker.NewBroadcaster(store, sender, cfg.BroadcastPause)

	tgBot := bot.New(botAPI, bot.Deps{
		Users:             userSvc,
		Payin:             payinSvc,
		Payout:            payoutSvc,
		Txs:               txSvc,
		Admins:            adminSvc,
		Settings:          settingsSvc,
		Reports:           reportSvc,
		Broadcaster:       broadcaster,
		Currencies:        cfg.Currencies,
		SpecialCurrencies: cfg.SpecialCurrencies,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		tgBot.Run(ctx)
	}()

	router := api.NewRouter(pool, redisClient, callbackSvc, cfg.AllowedCallbackIPs, cfg.CallbackRPS)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			cancel()
			wg.Wait()
			return fmt.Errorf("server error: %w", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
