package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"trustlens/internal/api"
	"trustlens/internal/api/handlers"
	"trustlens/internal/config"
	"trustlens/internal/domain/services"
	"trustlens/internal/infrastructure/cache"
	"trustlens/internal/infrastructure/database"
	"trustlens/internal/infrastructure/database/repository"
	"trustlens/internal/infrastructure/model"
	"trustlens/internal/infrastructure/probes"
	"trustlens/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	logger.SetGlobal(log)

	log.Info().
		Str("name", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("starting trustlens API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infrastructure. Postgres and Redis are both best-effort: without
	// them the engine loses the merchant signal and verdict caching but
	// keeps scoring.
	var db *database.PostgresDB
	var merchants services.MerchantStore
	if pg, err := database.NewPostgres(ctx, cfg.Database, log); err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, merchant signal degraded")
	} else {
		db = pg
		defer db.Close()
		merchants = repository.NewMerchantRepository(db.Pool())
	}

	var redis *cache.RedisCache
	if rc, err := cache.NewRedis(ctx, cfg.Redis, log); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, verdict caching and rate limiting disabled")
	} else {
		redis = rc
		defer redis.Close()
	}

	// Engine services
	blacklist := services.NewBlacklistCache(cfg.Engine.Feed.URL, cfg.Engine.Feed.Timeout, log)
	blacklist.RefreshIfStale(ctx, cfg.Engine.Feed.TTL)

	detector := services.NewTyposquatDetector(cfg.Engine.Brands, cfg.Engine.SuspiciousTLDs, cfg.Engine.URLShorteners)
	scamText := services.NewScamTextRuleEngine(detector, services.ScamTextOptions{
		ScreenThreshold:  cfg.Engine.ScreenThreshold,
		GenericThreshold: cfg.Engine.GenericThreshold,
		CustomPhrases:    cfg.Engine.CustomPhrases,
	}, log)

	tlsProbe := probes.NewTLSProbe(cfg.Engine.Probes.TLSTimeout, log)
	headerProbe := probes.NewHeaderProbe(cfg.Engine.Probes.HTTPTimeout, log)
	ager := probes.NewWhoisAger(cfg.Engine.Probes.WhoisTimeout, cfg.Engine.Probes.WhoisWorkers, log)

	assessor := services.NewDomainTrustAssessor(tlsProbe, headerProbe, ager, merchants, blacklist, services.DomainTrustOptions{
		TrustedDomains:  cfg.Engine.TrustedDomains,
		PaymentGateways: cfg.Engine.PaymentGateways,
		ProbeTimeout:    cfg.Engine.Probes.HTTPTimeout,
		BlacklistTTL:    cfg.Engine.Feed.TTL,
	}, log)

	var urlClf services.URLClassifier
	var textClf services.TextClassifier
	if cfg.Engine.Sidecar.Enabled && cfg.Engine.Sidecar.BaseURL != "" {
		sidecar := model.NewSidecarClassifier(cfg.Engine.Sidecar.BaseURL, cfg.Engine.Sidecar.Timeout, log)
		urlClf = sidecar
		textClf = sidecar
	}

	authenticity := model.NewAuthenticityChecker(
		cfg.Engine.Authenticity.Command,
		cfg.Engine.Authenticity.Args,
		cfg.Engine.Authenticity.Timeout,
		log,
	)

	aggregator := services.NewRiskScoreAggregator(assessor, urlClf, textClf, redis, log)
	fusion := services.NewMediaRiskFusion(authenticity, scamText, log)

	// HTTP layer
	h := &handlers.Handlers{
		Health: handlers.NewHealthHandler(redis, db, blacklist, cfg.App.Version, log),
		URL:    handlers.NewURLHandler(aggregator, log),
		Text:   handlers.NewTextHandler(scamText, log),
		Media:  handlers.NewMediaHandler(fusion, merchants, log),
		Email:  handlers.NewEmailHandler(detector, log),
	}

	router := api.NewRouter(*cfg, h, redis, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("trustlens API stopped")
}
