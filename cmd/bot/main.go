// Package main is the entry point for the Waifu Catcher bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"waifu-catcher-bot/internal/bot"
	"waifu-catcher-bot/internal/catalog"
	"waifu-catcher-bot/internal/config"
	"waifu-catcher-bot/internal/gacha"
	"waifu-catcher-bot/internal/metrics"
	"waifu-catcher-bot/internal/migrate"
	"waifu-catcher-bot/internal/pkg/db"
	"waifu-catcher-bot/internal/pkg/lock"
	"waifu-catcher-bot/internal/pkg/redisstore"
	"waifu-catcher-bot/internal/repository"
	"waifu-catcher-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setLogLevel(cfg.Log.Level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := migrate.Up(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(dbPool.Pool)
	userRepo := repository.NewUserRepository(dbPool.Pool)
	collectionRepo := repository.NewCollectionRepository(dbPool.Pool)

	if _, err := catalog.Seed(ctx, catalogRepo, cfg.Catalog.SeedFile); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.SeedFile).Msg("Failed to seed catalog")
	}

	var (
		pendingStore repository.PendingStore
		redisClient  *goredis.Client
	)
	switch cfg.Pending.Backend {
	case config.BackendRedis:
		redisClient, err = redisstore.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		pendingStore = redisstore.NewPendingStore(redisClient, cfg.Pending.TTL)
	default:
		pendingStore = repository.NewPendingRepository(dbPool.Pool)
	}
	log.Info().Str("backend", cfg.Pending.Backend).Msg("Pending roll store ready")

	// Rarity selection
	src, err := gacha.NewSource()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed random source")
	}
	selector, err := gacha.NewSelector(gacha.DefaultTiers(), src)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build rarity selector")
	}

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		m.Serve(cfg.Metrics.Addr)
	}

	// Initialize services
	gachaService := service.NewGachaService(
		catalogRepo,
		userRepo,
		pendingStore,
		collectionRepo,
		selector,
		gacha.Remaining,
		cfg.Gacha.CooldownSeconds,
		service.WithObserver(m),
	)
	collectionService := service.NewCollectionService(collectionRepo)

	teleBot, err := bot.NewTeleBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	resolver := bot.NewNameResolver(teleBot, bot.DefaultNameCacheSize, bot.DefaultNameCacheTTL)
	rankingService := service.NewRankingService(userRepo, resolver)

	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:     cfg,
		Gacha:      gachaService,
		Collection: collectionService,
		Ranking:    rankingService,
		Catalog:    catalogRepo,
		UserLock:   lock.NewUserLock(),
		Metrics:    m,
	})

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Int("cooldown_seconds", cfg.Gacha.CooldownSeconds).
			Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := m.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown failed")
	}

	log.Info().Msg("Bot stopped gracefully")
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
