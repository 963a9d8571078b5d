package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vtu-backend/config"
	"vtu-backend/internal/adapter/gateway"
	httpHandler "vtu-backend/internal/adapter/http/handler"
	"vtu-backend/internal/adapter/provider/amigo"
	"vtu-backend/internal/adapter/provider/bills"
	pgStorage "vtu-backend/internal/adapter/storage/postgres"
	redisStorage "vtu-backend/internal/adapter/storage/redis"
	"vtu-backend/internal/core/ports"
	"vtu-backend/internal/service"
	"vtu-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("VTU_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting VTU backend")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}
	single, dailyTotal, err := cfg.Fraud.Limits()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fraud limits")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	pricingRepo := pgStorage.NewPricingRepo(pool)
	planRepo := pgStorage.NewPlanRepo(pool)
	apiLogRepo := pgStorage.NewAPICallLogRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	announcementRepo := pgStorage.NewAnnouncementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis-backed collaborators
	cache := redisStorage.NewCache(rdb)
	refLock := redisStorage.NewReferenceLock(rdb)
	events := redisStorage.NewEventPublisher(rdb)
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// External providers
	sigSvc := service.NewHMACSignatureService()
	dataProvider := amigo.NewClient(cfg.Amigo, log)
	billsProvider := bills.NewMockProvider(0, log)
	gateways := []ports.PaymentGateway{
		gateway.NewPaystack(cfg.Paystack, sigSvc, log),
		gateway.NewMonnify(cfg.Monnify, sigSvc, log),
	}

	// Services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.RefreshExpiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, transactor, logger.Component(log, "wallet"))
	pricingSvc := service.NewPricingService(pricingRepo, logger.Component(log, "pricing"))
	limitSvc := service.NewLimitService(txRepo, service.PurchaseLimits{
		Enabled:    cfg.Fraud.Enabled,
		SingleTx:   single,
		DailyTotal: dailyTotal,
		DailyCount: cfg.Fraud.DailyCountLimit,
	}, logger.Component(log, "limits"))
	catalogSvc := service.NewCatalogService(planRepo, pricingSvc, dataProvider, cache, cfg.Cache.PlansTTL, logger.Component(log, "catalog"))
	authSvc := service.NewAuthService(userRepo, walletSvc, hashSvc, tokenSvc, auditSvc, logger.Component(log, "auth"))
	settlementSvc := service.NewSettlementService(
		txRepo,
		walletSvc,
		pricingSvc,
		limitSvc,
		catalogSvc,
		dataProvider,
		billsProvider,
		apiLogRepo,
		events,
		transactor,
		cfg.Features.BillsEnabled,
		logger.Component(log, "settlement"),
	)
	fundingSvc := service.NewFundingService(txRepo, userRepo, walletSvc, gateways, refLock, events, auditSvc, transactor, logger.Component(log, "funding"))
	reportingSvc := service.NewReportingService(txRepo, userRepo, apiLogRepo, logger.Component(log, "reporting"))
	adminSvc := service.NewAdminService(userRepo, pricingSvc, catalogSvc, walletSvc, auditSvc, logger.Component(log, "admin"))
	announcementSvc := service.NewAnnouncementService(announcementRepo, auditSvc, logger.Component(log, "announcements"))

	if cfg.Reconcile.Enabled {
		sweeper := service.NewPendingSweeper(txRepo, ledgerRepo, fundingSvc, transactor, cfg.Reconcile.StaleAfter, cfg.Reconcile.BatchSize, logger.Component(log, "sweeper"))
		go sweeper.Run(ctx, cfg.Reconcile.Interval)
	}

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		TokenSvc:        tokenSvc,
		WalletSvc:       walletSvc,
		FundingSvc:      fundingSvc,
		SettlementSvc:   settlementSvc,
		CatalogSvc:      catalogSvc,
		ReportingSvc:    reportingSvc,
		AdminSvc:        adminSvc,
		AnnouncementSvc: announcementSvc,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		Mode:            cfg.Server.Mode,
		Logger:          log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	auditSvc.Wait()

	log.Info().Msg("Server exited")
}
