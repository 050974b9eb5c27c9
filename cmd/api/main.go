package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medicarehealth/practice-platform/cmd/mainconfig"
	"github.com/medicarehealth/practice-platform/internal/advice"
	"github.com/medicarehealth/practice-platform/internal/api"
	"github.com/medicarehealth/practice-platform/internal/appointments"
	"github.com/medicarehealth/practice-platform/internal/catalog"
	appconfig "github.com/medicarehealth/practice-platform/internal/config"
	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/internal/notify"
	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/internal/practice"
	"github.com/medicarehealth/practice-platform/internal/profiles"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting practice-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics := metrics.NewAuthMetrics(registry)
	adviceMetrics := metrics.NewAdviceMetrics(registry)
	apptMetrics := metrics.NewAppointmentMetrics(registry)

	// Database. The API degrades to in-memory storage without one, which
	// keeps local frontend work possible with zero infrastructure.
	var pool *pgxpool.Pool
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		sqlDB, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database/sql handle", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Identity relay.
	var identityClient *identity.Client
	if client, err := identity.NewClient(identity.Config{
		BaseURL:     cfg.AuthBaseURL,
		AnonKey:     cfg.AuthAnonKey,
		ServiceKey:  cfg.AuthServiceKey,
		RedirectURL: cfg.AuthRedirectURL,
	}, logger); err != nil {
		logger.Warn("identity provider not configured, auth endpoints disabled", "error", err)
	} else {
		identityClient = client
	}
	authHandler := identity.NewHandler(identityClient, authMetrics, logger)

	// Catalog with optional Redis read-through cache.
	var catalogRepo catalog.Repository
	if pool != nil {
		catalogRepo = catalog.NewPostgresRepository(pool)
	} else {
		catalogRepo = catalog.NewInMemoryRepository()
	}
	catalogCache := catalog.NewCache(catalogRepo, redisClient, cfg.CatalogTTL, logger)
	catalogHandler := catalog.NewHandler(catalogCache, logger)

	// Email notifications.
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	default:
		logger.Info("email provider not configured, notifications go to the log")
	}
	notifier := notify.NewService(emailSender, logger)

	// Appointments.
	var apptRepo appointments.Repository
	if pool != nil {
		apptRepo = appointments.NewPostgresRepository(pool)
	} else {
		apptRepo = appointments.NewInMemoryRepository()
	}
	apptService := appointments.NewService(apptRepo, catalogCache, notifier, logger, apptMetrics)
	apptHandler := appointments.NewHandler(apptService, logger)

	// Patient profiles.
	var profileRepo profiles.Repository
	if pool != nil {
		profileRepo = profiles.NewPostgresRepository(pool)
	} else {
		profileRepo = profiles.NewInMemoryRepository()
	}
	profileHandler := profiles.NewHandler(profileRepo, logger)

	// AI advice: Groq primary, Bedrock or Gemini fallback.
	llm := buildLLMChain(ctx, cfg, awsCfg, logger)
	adviceOpts := advice.Options{
		Model:     cfg.GroqModelID,
		FastModel: cfg.GroqFastModelID,
		MaxTokens: int32(cfg.AdviceMaxTokens),
		Timeout:   cfg.AdviceTimeout,
	}
	adviceHandler := advice.NewHandler(llm, adviceOpts,
		profiles.NewHealthContextReader(profileRepo), catalogCache, logger, adviceMetrics)
	chatHandler := advice.NewChatHandler(llm, adviceOpts, logger, adviceMetrics)

	var dashboardHandler *practice.DashboardHandler
	if sqlDB != nil {
		dashboardHandler = practice.NewDashboardHandler(
			practice.NewDashboardRepository(sqlDB), registry, logger)
	}

	routerCfg := &api.Config{
		Logger:              logger,
		AuthHandler:         authHandler,
		AppointmentsHandler: apptHandler,
		CatalogHandler:      catalogHandler,
		ProfileHandler:      profileHandler,
		AdviceHandler:       adviceHandler,
		ChatHandler:         chatHandler,
		DashboardHandler:    dashboardHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthJWTSecret:       cfg.AuthJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthRateLimit:       cfg.AuthRateLimit,
		AuthRateBurst:       cfg.AuthRateBurst,
		AdviceRateLimit:     cfg.AdviceRateLimit,
		AdviceRateBurst:     cfg.AdviceRateBurst,
	}
	if pool != nil {
		routerCfg.DB = pool
	}
	r := api.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // SSE advice streams outlive a normal request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMChain assembles the advice inference stack. Returns nil when
// no provider is configured, which makes the advice endpoints fail
// closed with 503.
func buildLLMChain(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) advice.LLMClient {
	var primary advice.LLMClient
	if groq, err := advice.NewGroqClient(cfg.GroqAPIKey, cfg.GroqBaseURL); err != nil {
		logger.Warn("groq not configured", "error", err)
	} else {
		primary = groq
	}

	var fallback advice.LLMClient
	switch {
	case cfg.BedrockFallback && cfg.BedrockModelID != "":
		fallback = advice.PinModel(
			advice.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)),
			cfg.BedrockModelID,
		)
		logger.Info("bedrock fallback enabled", "model", cfg.BedrockModelID)
	case cfg.GeminiAPIKey != "":
		gemini, err := advice.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
			break
		}
		fallback = gemini
		logger.Info("gemini fallback enabled", "model", cfg.GeminiModelID)
	}

	if primary == nil && fallback == nil {
		return nil
	}
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return advice.NewFallbackLLMClient(primary, fallback, logger)
}
