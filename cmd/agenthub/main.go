package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/config"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/handler"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/clerk"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/mail"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("redis_cache", cfg.RedisURL != ""),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Float64("default_agent_percentage", cfg.DefaultAgentPercentage),
		zap.Float64("approval_threshold", cfg.ApprovalThreshold),
		zap.Int("admin_emails", len(cfg.AdminEmails)),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "agent-hub-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Commission table ---
	table, err := config.LoadCommissionTable(cfg.CommissionTiersFile)
	if err != nil {
		logger.Fatal("failed to load commission table", zap.Error(err))
	}
	logger.Info("commission table loaded", zap.Int("tiers", len(table.Tiers)), zap.Int("ranks", len(table.Ranks)))

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	db := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilienceCfg,
		logger,
	)

	var identity port.IdentityAdmin
	if cfg.ClerkSecretKey != "" {
		identity = clerk.NewClient(httpClient, cfg.ClerkAPIURL, cfg.ClerkSecretKey, resilience.NewCircuitBreaker("clerk"), resilienceCfg)
		logger.Info("clerk admin API enabled", zap.String("clerk_api_url", cfg.ClerkAPIURL))
	} else {
		logger.Warn("CLERK_SECRET_KEY not set, role sync and user lookup disabled")
	}

	var mailer port.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender, logger)
		logger.Info("smtp mailer enabled", zap.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP_HOST not set, invitation codes will not be emailed")
	}

	// --- Cache ---
	var (
		profileCache   port.Cache[domain.AgentProfile]
		thresholdCache port.Cache[float64]
		reminderCache  port.Cache[bool]
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		profileCache = cache.NewRedis[domain.AgentProfile](rdb, "agenthub:profile:", cfg.CacheTTL, logger)
		thresholdCache = cache.NewRedis[float64](rdb, "agenthub:threshold:", cfg.CacheTTL, logger)
		reminderCache = cache.NewRedis[bool](rdb, "agenthub:reminder:", cfg.ReminderLookahead, logger)
		logger.Info("using redis cache")
	} else {
		profiles := cache.New[domain.AgentProfile](cfg.CacheTTL)
		thresholds := cache.New[float64](cfg.CacheTTL)
		reminders := cache.New[bool](cfg.ReminderLookahead)
		defer profiles.Close()
		defer thresholds.Close()
		defer reminders.Close()

		profileCache, thresholdCache, reminderCache = profiles, thresholds, reminders
		logger.Info("using in-memory cache")
	}

	// --- Services ---
	authSvc, err := service.NewAuthService(cfg.ClerkJWTPublicKey, cfg.ClerkIssuer, cfg.JWTSecret, cfg.AdminEmails, logger)
	if err != nil {
		logger.Fatal("failed to configure session verification", zap.Error(err))
	}

	notificationSvc := service.NewNotificationService(db, metrics, logger)
	agentSvc := service.NewAgentService(db, db, db, db, profileCache, table, cfg.AdminEmails, metrics, logger)
	approvalSvc := service.NewApprovalService(db, db, thresholdCache, notificationSvc, cfg.ApprovalThreshold, metrics, logger)
	transactionSvc := service.NewTransactionService(db, agentSvc, approvalSvc, notificationSvc, table, cfg.DefaultAgentPercentage, metrics, logger)
	installmentSvc := service.NewInstallmentService(db, db, db, db, notificationSvc, cfg.DefaultAgentPercentage, metrics, logger)
	propertySvc := service.NewPropertyService(db, db, logger)
	roleSvc := service.NewRoleService(db, identity, logger)
	invitationSvc := service.NewInvitationService(db, db, mailer, table, cfg.InvitationTTL, cfg.PublicAppURL, metrics, logger)

	// --- Background workers ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	reminders := service.NewReminderWorker(db, notificationSvc, reminderCache, cfg.ReminderInterval, cfg.ReminderLookahead, logger)
	go reminders.Run(workerCtx)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:          authSvc,
		Agents:        agentSvc,
		Properties:    propertySvc,
		Transactions:  transactionSvc,
		Installments:  installmentSvc,
		Approvals:     approvalSvc,
		Notifications: notificationSvc,
		Roles:         roleSvc,
		Invitations:   invitationSvc,
		Database:      db,
	}, cfg.CORSAllowedOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
