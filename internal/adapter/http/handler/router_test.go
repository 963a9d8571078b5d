package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/internal/core/ports/mocks"
	"vtu-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type routerMocks struct {
	auth          *mocks.MockAuthService
	token         *mocks.MockTokenService
	wallet        *mocks.MockWalletService
	funding       *mocks.MockFundingService
	settlement    *mocks.MockSettlementService
	catalog       *mocks.MockCatalogService
	reporting     *mocks.MockReportingService
	admin         *mocks.MockAdminService
	announcements *mocks.MockAnnouncementService
}

func newTestRouter(t *testing.T) (*gin.Engine, routerMocks) {
	ctrl := gomock.NewController(t)
	m := routerMocks{
		auth:          mocks.NewMockAuthService(ctrl),
		token:         mocks.NewMockTokenService(ctrl),
		wallet:        mocks.NewMockWalletService(ctrl),
		funding:       mocks.NewMockFundingService(ctrl),
		settlement:    mocks.NewMockSettlementService(ctrl),
		catalog:       mocks.NewMockCatalogService(ctrl),
		reporting:     mocks.NewMockReportingService(ctrl),
		admin:         mocks.NewMockAdminService(ctrl),
		announcements: mocks.NewMockAnnouncementService(ctrl),
	}
	r := SetupRouter(RouterDeps{
		AuthSvc:         m.auth,
		TokenSvc:        m.token,
		WalletSvc:       m.wallet,
		FundingSvc:      m.funding,
		SettlementSvc:   m.settlement,
		CatalogSvc:      m.catalog,
		ReportingSvc:    m.reporting,
		AdminSvc:        m.admin,
		AnnouncementSvc: m.announcements,
		Mode:            gin.TestMode,
		Logger:          zerolog.Nop(),
	})
	return r, m
}

func (m routerMocks) authenticate(user *domain.User) {
	m.token.EXPECT().Validate("good-token").Return(&ports.TokenClaims{UserID: user.ID, Role: user.Role}, nil)
	m.auth.EXPECT().Authorize(gomock.Any(), user.ID).Return(user, nil)
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_003")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SuspendedUserRejected(t *testing.T) {
	r, m := newTestRouter(t)
	userID := uuid.New()
	m.token.EXPECT().Validate("good-token").Return(&ports.TokenClaims{UserID: userID, Role: domain.RoleUser}, nil)
	m.auth.EXPECT().Authorize(gomock.Any(), userID).Return(nil, apperror.ErrUserSuspended())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_004")
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	r, m := newTestRouter(t)
	m.authenticate(testUser(domain.RoleReseller))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_005")
}

func TestRouter_AdminAnalytics(t *testing.T) {
	r, m := newTestRouter(t)
	m.authenticate(testUser(domain.RoleAdmin))
	m.reporting.EXPECT().Analytics(gomock.Any()).Return(&ports.Analytics{TotalUsers: 1}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Broadcasts(t *testing.T) {
	t.Run("any user reads live broadcasts", func(t *testing.T) {
		r, m := newTestRouter(t)
		m.authenticate(testUser(domain.RoleUser))
		m.announcements.EXPECT().Live(gomock.Any()).Return([]domain.Announcement{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/broadcast", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("only admins publish", func(t *testing.T) {
		r, m := newTestRouter(t)
		m.authenticate(testUser(domain.RoleReseller))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/broadcasts", strings.NewReader(`{"title":"Hi","message":"hello there"}`))
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRouter_WebhookSkipsJWT(t *testing.T) {
	r, m := newTestRouter(t)
	m.funding.EXPECT().HandleWebhook(gomock.Any(), "paystack", gomock.Any(), "abc").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/paystack/webhook", strings.NewReader(`{"event":"charge.success"}`))
	req.Header.Set("x-paystack-signature", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
