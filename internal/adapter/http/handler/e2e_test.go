package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vtu-backend/config"
	"vtu-backend/internal/adapter/gateway"
	httpHandler "vtu-backend/internal/adapter/http/handler"
	"vtu-backend/internal/adapter/provider/amigo"
	"vtu-backend/internal/adapter/provider/bills"
	"vtu-backend/internal/adapter/storage/memory"
	redisStorage "vtu-backend/internal/adapter/storage/redis"
	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_e2e"

// testApp runs the real router, services and Redis stores over the in-memory
// store, with httptest servers standing in for Amigo and Paystack.
type testApp struct {
	server   *httptest.Server
	store    *memory.Store
	users    *memory.UserRepo
	plans    *memory.PlanRepo
	tokens   *service.JWTTokenService
	signer   *service.HMACSignatureService
	amigoHit func() int
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zerolog.Nop()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var (
		amigoMu    sync.Mutex
		amigoCalls int
	)
	amigoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		amigoMu.Lock()
		amigoCalls++
		amigoMu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["mobile_number"] == "08099999999" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"success":false,"detail":"Invalid phone number"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"reference":"AMG-E2E","message":"Data gifted successfully"}`))
	}))
	t.Cleanup(amigoSrv.Close)

	paystackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = fmt.Fprintf(w, `{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.test/%s","access_code":"ac","reference":%q}}`,
			body["reference"], body["reference"])
	}))
	t.Cleanup(paystackSrv.Close)

	db := memory.NewStore()
	userRepo := memory.NewUserRepo(db)
	walletRepo := memory.NewWalletRepo(db)
	ledgerRepo := memory.NewLedgerRepo(db)
	txRepo := memory.NewTransactionRepo(db)
	pricingRepo := memory.NewPricingRepo(db)
	planRepo := memory.NewPlanRepo(db)
	apiLogRepo := memory.NewAPICallLogRepo(db)
	auditRepo := memory.NewAuditRepo(db)
	announcementRepo := memory.NewAnnouncementRepo(db)

	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService("e2e-secret-with-enough-bytes!!", time.Hour, 24*time.Hour, "vtu-backend")
	hashSvc := service.NewArgon2HashServiceWithParams(service.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})

	dataProvider := amigo.NewClient(config.AmigoConfig{
		BaseURL:          amigoSrv.URL + "/",
		APIKey:           "amigo-key",
		Timeout:          2 * time.Second,
		UseStaticCatalog: true,
	}, log)
	billsProvider := bills.NewMockProvider(0, log)
	gateways := []ports.PaymentGateway{
		gateway.NewPaystack(config.PaystackConfig{BaseURL: paystackSrv.URL, SecretKey: "sk_test", WebhookSecret: webhookSecret}, sigSvc, log),
	}

	auditSvc := service.NewAuditService(auditRepo, log)
	t.Cleanup(auditSvc.Wait)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, db, log)
	pricingSvc := service.NewPricingService(pricingRepo, log)
	limitSvc := service.NewLimitService(txRepo, service.PurchaseLimits{
		Enabled:    true,
		SingleTx:   decimal.NewFromInt(50000),
		DailyTotal: decimal.NewFromInt(200000),
		DailyCount: 50,
	}, log)
	catalogSvc := service.NewCatalogService(planRepo, pricingSvc, dataProvider, redisStorage.NewCache(rdb), time.Minute, log)
	authSvc := service.NewAuthService(userRepo, walletSvc, hashSvc, tokenSvc, auditSvc, log)
	events := redisStorage.NewEventPublisher(rdb)
	settlementSvc := service.NewSettlementService(txRepo, walletSvc, pricingSvc, limitSvc, catalogSvc,
		dataProvider, billsProvider, apiLogRepo, events, db, true, log)
	fundingSvc := service.NewFundingService(txRepo, userRepo, walletSvc, gateways,
		redisStorage.NewReferenceLock(rdb), events, auditSvc, db, log)
	reportingSvc := service.NewReportingService(txRepo, userRepo, apiLogRepo, log)
	adminSvc := service.NewAdminService(userRepo, pricingSvc, catalogSvc, walletSvc, auditSvc, log)
	announcementSvc := service.NewAnnouncementService(announcementRepo, auditSvc, log)

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
		RateLimitStore:  redisStorage.NewRateLimitStore(rdb),
		HealthCheckers:  []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Mode:            gin.TestMode,
		Logger:          log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testApp{
		server: srv,
		store:  db,
		users:  userRepo,
		plans:  planRepo,
		tokens: tokenSvc,
		signer: sigSvc,
		amigoHit: func() int {
			amigoMu.Lock()
			defer amigoMu.Unlock()
			return amigoCalls
		},
	}
}

type apiResponse struct {
	status int
	Data   json.RawMessage `json:"data"`
	Code   string          `json:"error_code"`
	Msg    string          `json:"message"`
	Hint   string          `json:"hint"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) apiResponse {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "body: %s", string(r.Data))
}

// signup registers and logs in a new account, returning its token.
func (a *testApp) signup(t *testing.T, role string) string {
	t.Helper()
	email := uuid.NewString()[:8] + "@example.com"

	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "full_name": "E2E User", "password": "password123", "role": role,
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.Msg)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	resp.decode(t, &login)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	admin := &domain.User{
		ID:       uuid.New(),
		Email:    "admin-" + uuid.NewString()[:8] + "@example.com",
		FullName: "Admin",
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	require.NoError(t, a.users.Create(context.Background(), admin))
	token, _, err := a.tokens.Generate(admin.ID, admin.Role)
	require.NoError(t, err)
	return token
}

func (a *testApp) addPlan(t *testing.T, network, code, price string) {
	t.Helper()
	_, err := a.plans.Upsert(context.Background(), &domain.DataPlan{
		ID:        uuid.New(),
		Network:   network,
		PlanCode:  domain.CanonicalPlanCode(network, code),
		PlanName:  network + " 1GB",
		DataSize:  "1GB",
		Validity:  "30 days",
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	})
	require.NoError(t, err)
}

// fund runs checkout and a signed charge.success webhook for amount.
func (a *testApp) fund(t *testing.T, token, amount string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/wallet/fund", token, map[string]string{"amount": amount})
	require.Equal(t, http.StatusCreated, resp.status, resp.Msg)
	var checkout ports.CheckoutResponse
	resp.decode(t, &checkout)
	require.NotEmpty(t, checkout.Reference)

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":%d,"reference":%q,"amount":1,"customer":{"email":"x@example.com"}}}`,
		time.Now().UnixNano(), checkout.Reference))
	resp = a.do(t, http.MethodPost, "/api/v1/wallet/paystack/webhook", "", body,
		"x-paystack-signature", a.signer.Sign(webhookSecret, body))
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	return checkout.Reference
}

func (a *testApp) balance(t *testing.T, token string) decimal.Decimal {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/api/v1/wallet/me", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var w struct {
		Balance decimal.Decimal `json:"balance"`
	}
	resp.decode(t, &w)
	return w.Balance
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestE2E_FundAndBuyData(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")
	app.addPlan(t, "mtn", "1001", "450")

	assertMoney(t, "0", app.balance(t, token))
	app.fund(t, token, "1000")
	assertMoney(t, "1000", app.balance(t, token))

	resp := app.do(t, http.MethodPost, "/api/v1/data/purchase", token, map[string]any{
		"plan_code": "mtn:1001", "mobile_number": "+2348031234567",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var purchase struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	resp.decode(t, &purchase)
	assert.Equal(t, "success", purchase.Status)
	assertMoney(t, "550", app.balance(t, token))

	resp = app.do(t, http.MethodGet, "/api/v1/transactions/"+purchase.Reference, token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var txn domain.Transaction
	resp.decode(t, &txn)
	assert.Equal(t, "08031234567", txn.Customer)
	assert.Equal(t, domain.TxStatusSuccess, txn.Status)
}

func TestE2E_ProviderRejectionRefunds(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")
	app.addPlan(t, "mtn", "1001", "450")
	app.fund(t, token, "1000")

	resp := app.do(t, http.MethodPost, "/api/v1/data/purchase", token, map[string]any{
		"plan_code": "1001", "mobile_number": "08099999999",
	})
	assert.Equal(t, http.StatusBadGateway, resp.status)
	assert.Equal(t, "PRV_002", resp.Code)
	assert.Contains(t, resp.Msg, "Invalid phone number")
	assert.Contains(t, resp.Hint, "Reference DATA_")
	assertMoney(t, "1000", app.balance(t, token))

	resp = app.do(t, http.MethodGet, "/api/v1/wallet/ledger", token, nil)
	var entries []domain.LedgerEntry
	resp.decode(t, &entries)
	assert.Len(t, entries, 3) // funding, debit, refund
}

func TestE2E_InsufficientBalanceNeverCallsProvider(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")
	app.addPlan(t, "mtn", "1001", "450")

	resp := app.do(t, http.MethodPost, "/api/v1/data/purchase", token, map[string]any{
		"plan_code": "mtn:1001", "mobile_number": "08031234567",
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "WAL_002", resp.Code)
	assert.Zero(t, app.amigoHit())
}

func TestE2E_DuplicateWebhookCreditsOnce(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/fund", token, map[string]string{"amount": "750"})
	require.Equal(t, http.StatusCreated, resp.status)
	var checkout ports.CheckoutResponse
	resp.decode(t, &checkout)

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":42,"reference":%q,"amount":75000}}`, checkout.Reference))
	sig := app.signer.Sign(webhookSecret, body)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallet/paystack/webhook", bytes.NewReader(body))
			req.Header.Set("x-paystack-signature", sig)
			if resp, err := http.DefaultClient.Do(req); err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assertMoney(t, "750", app.balance(t, token))
}

func TestE2E_WebhookBadSignature(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/fund", token, map[string]string{"amount": "100"})
	var checkout ports.CheckoutResponse
	resp.decode(t, &checkout)

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q}}`, checkout.Reference))
	resp = app.do(t, http.MethodPost, "/api/v1/wallet/paystack/webhook", "", body,
		"x-paystack-signature", app.signer.Sign("wrong-secret", body))

	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "GW_001", resp.Code)
	assertMoney(t, "0", app.balance(t, token))
}

func TestE2E_ConcurrentPurchasesNeverOverdraw(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")
	app.addPlan(t, "glo", "2001", "300")
	app.fund(t, token, "1000")

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(map[string]any{"plan_code": "glo:2001", "mobile_number": "08051234567"})
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/data/purchase", bytes.NewReader(raw))
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, statuses[http.StatusOK])
	assert.Equal(t, attempts-3, statuses[http.StatusBadRequest])
	assertMoney(t, "100", app.balance(t, token))
	assert.Equal(t, 3, app.amigoHit())
}

func TestE2E_ServicePurchases(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "reseller")
	app.fund(t, token, "10000")

	resp := app.do(t, http.MethodPost, "/api/v1/services/exam", token, map[string]any{
		"exam_type": "waec", "quantity": 2, "phone": "08031234567",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var exam struct {
		Status string         `json:"status"`
		Meta   map[string]any `json:"meta"`
	}
	resp.decode(t, &exam)
	assert.Equal(t, "success", exam.Status)
	assertMoney(t, "6000", app.balance(t, token))

	resp = app.do(t, http.MethodPost, "/api/v1/services/electricity", token, map[string]any{
		"disco": "ikeja", "meter_number": "000012345678", "meter_type": "prepaid", "amount": 1500,
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var elec struct {
		Status string `json:"status"`
	}
	resp.decode(t, &elec)
	assert.Equal(t, "refunded", elec.Status)
	assertMoney(t, "6000", app.balance(t, token))

	resp = app.do(t, http.MethodPost, "/api/v1/services/cable", token, map[string]any{
		"provider": "netflix", "smartcard_number": "7012345678", "package_code": "X", "amount": 100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestE2E_AdminFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "")
	app.addPlan(t, "mtn", "1001", "450")
	admin := app.adminToken(t)

	resp := app.do(t, http.MethodGet, "/api/v1/admin/analytics", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = app.do(t, http.MethodPost, "/api/v1/admin/pricing", admin, map[string]any{
		"key": "MTN", "role": "user", "margin": "50",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)

	resp = app.do(t, http.MethodGet, "/api/v1/data/plans", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var plans []domain.PricedPlan
	resp.decode(t, &plans)
	require.Len(t, plans, 1)
	assertMoney(t, "500", plans[0].Price)

	var me struct {
		ID string `json:"id"`
	}
	{
		claims, err := app.tokens.Validate(token)
		require.NoError(t, err)
		me.ID = claims.UserID.String()
	}

	resp = app.do(t, http.MethodPost, "/api/v1/admin/fund-wallet", admin, map[string]any{
		"user_id": me.ID, "amount": "2500",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	assertMoney(t, "2500", app.balance(t, token))

	resp = app.do(t, http.MethodPost, "/api/v1/admin/wallets/"+me.ID+"/lock", admin, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = app.do(t, http.MethodPost, "/api/v1/data/purchase", token, map[string]any{
		"plan_code": "mtn:1001", "mobile_number": "08031234567",
	})
	assert.Equal(t, http.StatusLocked, resp.status)
	assert.Equal(t, "WAL_001", resp.Code)

	resp = app.do(t, http.MethodPost, "/api/v1/admin/users/"+me.ID+"/suspend", admin, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = app.do(t, http.MethodGet, "/api/v1/wallet/me", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "AUTH_004", resp.Code)

	resp = app.do(t, http.MethodGet, "/api/v1/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var stats ports.Analytics
	resp.decode(t, &stats)
	assert.Equal(t, int64(2), stats.TotalUsers)
}

func TestE2E_NegativeResellerMargin(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "reseller")
	app.addPlan(t, "mtn", "1001", "100")
	admin := app.adminToken(t)

	resp := app.do(t, http.MethodPost, "/api/v1/admin/pricing", admin, map[string]any{
		"key": "mtn", "role": "reseller", "margin": "-10",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)

	app.fund(t, token, "1000")
	resp = app.do(t, http.MethodPost, "/api/v1/data/purchase", token, map[string]any{
		"plan_code": "mtn:1001", "mobile_number": "08031234567",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var purchase struct {
		Amount decimal.Decimal `json:"amount"`
		Status string          `json:"status"`
	}
	resp.decode(t, &purchase)
	assert.Equal(t, "success", purchase.Status)
	assertMoney(t, "90", purchase.Amount)
	assertMoney(t, "910", app.balance(t, token))
}

func TestE2E_RefreshAndMe(t *testing.T) {
	app := newTestApp(t)
	email := "refresh-" + uuid.NewString()[:8] + "@example.com"

	resp := app.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "full_name": "Refresh User", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.Msg)

	resp = app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var login struct {
		AccessToken   string `json:"access_token"`
		RefreshToken  string `json:"refresh_token"`
		Expiry        int64  `json:"expiry"`
		RefreshExpiry int64  `json:"refresh_expiry"`
	}
	resp.decode(t, &login)
	require.NotEmpty(t, login.RefreshToken)
	assert.Greater(t, login.RefreshExpiry, login.Expiry)

	// A refresh token is not accepted as a bearer token.
	resp = app.do(t, http.MethodGet, "/api/v1/auth/me", login.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = app.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var refreshed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	resp.decode(t, &refreshed)
	require.NotEmpty(t, refreshed.AccessToken)

	resp = app.do(t, http.MethodGet, "/api/v1/auth/me", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var me struct {
		Email    string `json:"email"`
		Role     string `json:"role"`
		IsActive bool   `json:"is_active"`
	}
	resp.decode(t, &me)
	assert.Equal(t, email, me.Email)
	assert.Equal(t, "user", me.Role)
	assert.True(t, me.IsActive)

	// An access token cannot be exchanged for a new pair.
	resp = app.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_003", resp.Code)
}

func TestE2E_Broadcasts(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "user")
	admin := app.adminToken(t)

	resp := app.do(t, http.MethodPost, "/api/v1/admin/broadcasts", token, map[string]any{
		"title": "Hi", "message": "not allowed to post",
	})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = app.do(t, http.MethodPost, "/api/v1/admin/broadcasts", admin, map[string]any{
		"title": "Maintenance", "message": "MTN SME delivery is slow tonight", "level": "warning",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.Msg)
	var created domain.Announcement
	resp.decode(t, &created)
	assert.True(t, created.IsActive, "new broadcasts are active by default")

	resp = app.do(t, http.MethodGet, "/api/v1/broadcast", token, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var live []domain.Announcement
	resp.decode(t, &live)
	require.Len(t, live, 1)
	assert.Equal(t, "Maintenance", live[0].Title)
	assert.Equal(t, domain.AnnouncementWarning, live[0].Level)

	resp = app.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/broadcasts/%d", created.ID), admin, map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)

	resp = app.do(t, http.MethodGet, "/api/v1/broadcast", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	live = nil
	resp.decode(t, &live)
	assert.Empty(t, live)

	resp = app.do(t, http.MethodGet, "/api/v1/admin/broadcasts", admin, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var all []domain.Announcement
	resp.decode(t, &all)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	resp = app.do(t, http.MethodPatch, "/api/v1/admin/broadcasts/999", admin, map[string]any{"title": "Gone"})
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "ANN_001", resp.Code)
}
