package handler

import (
	"vtu-backend/internal/adapter/http/middleware"
	redisStore "vtu-backend/internal/adapter/storage/redis"
	"vtu-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	TokenSvc        ports.TokenService
	WalletSvc       ports.WalletService
	FundingSvc      ports.FundingService
	SettlementSvc   ports.SettlementService
	CatalogSvc      ports.CatalogService
	ReportingSvc    ports.ReportingService
	AdminSvc        ports.AdminService
	AnnouncementSvc ports.AnnouncementService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Mode            string
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.ClientContext())
	r.Use(middleware.MaxBodySize(maxRequestBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/refresh", rl("auth_refresh"), authHandler.Refresh)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.FundingSvc)
	// Webhooks authenticate by body signature, not by JWT.
	webhooks := v1.Group("/wallet", rl("webhook"))
	{
		webhooks.POST("/paystack/webhook", walletHandler.PaystackWebhook)
		webhooks.POST("/monnify/webhook", walletHandler.MonnifyWebhook)
	}

	// --- JWT ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.AuthSvc, deps.Logger)

	v1.GET("/auth/me", jwtAuth, rl("read"), authHandler.Me)

	announcementHandler := NewAnnouncementHandler(deps.AnnouncementSvc)
	v1.GET("/broadcast", jwtAuth, rl("read"), announcementHandler.Live)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/me", rl("read"), walletHandler.GetBalance)
		wallet.GET("/ledger", rl("read"), walletHandler.GetLedger)
		wallet.POST("/fund", rl("wallet_fund"), walletHandler.Fund)
		wallet.GET("/verify/:gateway/:reference", rl("read"), walletHandler.Verify)
	}

	purchaseHandler := NewPurchaseHandler(deps.SettlementSvc, deps.CatalogSvc)
	data := v1.Group("/data", jwtAuth)
	{
		data.GET("/plans", rl("read"), purchaseHandler.ListPlans)
		data.POST("/purchase", rl("purchase"), purchaseHandler.PurchaseData)
	}

	services := v1.Group("/services", jwtAuth)
	{
		services.GET("/catalog", rl("read"), purchaseHandler.ServiceCatalog)
		services.POST("/airtime", rl("purchase"), purchaseHandler.BuyAirtime)
		services.POST("/cable", rl("purchase"), purchaseHandler.BuyCable)
		services.POST("/electricity", rl("purchase"), purchaseHandler.BuyElectricity)
		services.POST("/exam", rl("purchase"), purchaseHandler.BuyExam)
	}

	txHandler := NewTransactionHandler(deps.ReportingSvc)
	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("/me", rl("read"), txHandler.ListMine)
		transactions.GET("/:reference", rl("read"), txHandler.GetByReference)
	}

	// --- Admin ---
	adminHandler := NewAdminHandler(deps.AdminSvc, deps.ReportingSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.RequireAdmin(), rl("admin"))
	{
		admin.GET("/analytics", adminHandler.Analytics)
		admin.POST("/pricing", adminHandler.UpsertPricing)
		admin.POST("/fund-wallet", adminHandler.FundWallet)
		admin.POST("/users/:id/suspend", adminHandler.SuspendUser)
		admin.POST("/users/:id/activate", adminHandler.ActivateUser)
		admin.POST("/wallets/:user_id/lock", adminHandler.LockWallet)
		admin.POST("/wallets/:user_id/unlock", adminHandler.UnlockWallet)
		admin.POST("/plans/sync", adminHandler.SyncPlans)
		admin.GET("/broadcasts", announcementHandler.List)
		admin.POST("/broadcasts", announcementHandler.Create)
		admin.PATCH("/broadcasts/:id", announcementHandler.Update)
	}

	return r
}
