package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"
	"vtu-backend/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fundingTestDeps struct {
	*store
	svc     *FundingServiceImpl
	gateway *mocks.MockPaymentGateway
	refLock *mocks.MockReferenceLock
	audit   *AuditServiceImpl
	user    domain.User
	actor   domain.Actor
}

func setupFunding(t *testing.T) *fundingTestDeps {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := newStore(t)

	gw := mocks.NewMockPaymentGateway(ctrl)
	gw.EXPECT().Name().Return("paystack").AnyTimes()

	refLock := mocks.NewMockReferenceLock(ctrl)
	events := mocks.NewMockEventPublisher(ctrl)
	events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	audit := NewAuditService(s.audits, zerolog.Nop())
	svc := NewFundingService(s.txs, s.users, s.wallet, []ports.PaymentGateway{gw}, refLock, events, audit, s.db, zerolog.Nop())

	user := s.addUser(t, domain.RoleUser)
	return &fundingTestDeps{
		store:   s,
		svc:     svc,
		gateway: gw,
		refLock: refLock,
		audit:   audit,
		user:    user,
		actor:   domain.Actor{UserID: user.ID, Role: user.Role, Email: user.Email, FullName: user.FullName, IP: "10.0.0.1"},
	}
}

func (d *fundingTestDeps) allowLocks() {
	d.refLock.EXPECT().Acquire(gomock.Any(), gomock.Any(), fundingLockTTL).Return(true, nil).AnyTimes()
	d.refLock.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

// openFunding creates a pending wallet_fund transaction through Fund.
func (d *fundingTestDeps) openFunding(t *testing.T, amount string) string {
	t.Helper()
	var reference string
	d.gateway.EXPECT().InitiateCheckout(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CheckoutRequest) (*ports.CheckoutResponse, error) {
			reference = req.Reference
			return &ports.CheckoutResponse{CheckoutURL: "https://checkout.example/" + req.Reference, Reference: req.Reference}, nil
		},
	)
	_, err := d.svc.Fund(context.Background(), d.actor, ports.FundRequest{Amount: dec(amount)})
	require.NoError(t, err)
	return reference
}

func (d *fundingTestDeps) status(t *testing.T, reference string) domain.TransactionStatus {
	t.Helper()
	txn, err := d.txs.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	require.NotNil(t, txn)
	return txn.Status
}

func TestFunding_Fund_CreatesPendingAndAudits(t *testing.T) {
	d := setupFunding(t)

	d.gateway.EXPECT().InitiateCheckout(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CheckoutRequest) (*ports.CheckoutResponse, error) {
			assert.Equal(t, d.user.Email, req.Email)
			assertDecimal(t, "2500", req.Amount)
			assert.Contains(t, req.Reference, "FUND_")
			return &ports.CheckoutResponse{CheckoutURL: "https://checkout.example/abc", AccessCode: "abc"}, nil
		},
	)

	checkout, err := d.svc.Fund(context.Background(), d.actor, ports.FundRequest{Amount: dec("2500")})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/abc", checkout.CheckoutURL)
	require.NotEmpty(t, checkout.Reference)

	assert.Equal(t, domain.TxStatusPending, d.status(t, checkout.Reference))
	assert.True(t, d.balance(t, d.user.ID).IsZero())

	d.audit.Wait()
	audits := d.audits.Entries()
	require.Len(t, audits, 1)
	assert.Equal(t, domain.AuditActionWalletFundInit, audits[0].Action)
	assert.Equal(t, checkout.Reference, audits[0].ResourceID)
	assert.Equal(t, "10.0.0.1", audits[0].IPAddress)
}

func TestFunding_Fund_Rejections(t *testing.T) {
	d := setupFunding(t)

	_, err := d.svc.Fund(context.Background(), d.actor, ports.FundRequest{Amount: dec("0")})
	assertAppError(t, err, "WAL_003")

	_, err = d.svc.Fund(context.Background(), d.actor, ports.FundRequest{Amount: dec("100"), Gateway: "stripe"})
	assertAppError(t, err, "SYS_002")
}

func TestFunding_Fund_CheckoutFailureMarksFailed(t *testing.T) {
	d := setupFunding(t)

	var reference string
	d.gateway.EXPECT().InitiateCheckout(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CheckoutRequest) (*ports.CheckoutResponse, error) {
			reference = req.Reference
			return nil, errors.New("gateway 500")
		},
	)

	_, err := d.svc.Fund(context.Background(), d.actor, ports.FundRequest{Amount: dec("1000")})
	assertAppError(t, err, "GW_003")

	txn, err := d.txs.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, txn.Status)
	require.NotNil(t, txn.FailureReason)
	assert.Contains(t, *txn.FailureReason, "gateway 500")
}

func TestFunding_HandleWebhook_InvalidSignature(t *testing.T) {
	d := setupFunding(t)
	body := []byte(`{"event":"charge.success"}`)

	err := d.svc.HandleWebhook(context.Background(), "paystack", body, "")
	assertAppError(t, err, "GW_001")

	d.gateway.EXPECT().VerifySignature(body, "bad").Return(false)
	err = d.svc.HandleWebhook(context.Background(), "paystack", body, "bad")
	assertAppError(t, err, "GW_001")
}

func TestFunding_HandleWebhook_ReplayCreditsOnce(t *testing.T) {
	d := setupFunding(t)
	d.allowLocks()
	reference := d.openFunding(t, "2500")

	body := []byte(`{"event":"charge.success"}`)
	d.gateway.EXPECT().VerifySignature(body, "sig").Return(true).Times(3)
	d.gateway.EXPECT().ParseWebhook(body).Return(&ports.GatewayEvent{
		Kind:       ports.EventPaymentSucceeded,
		Reference:  reference,
		ExternalID: "PSK-123",
		Amount:     dec("2500"),
	}, nil).Times(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", body, "sig"))
	}

	assertDecimal(t, "2500", d.balance(t, d.user.ID))
	assert.Len(t, d.entries(t, reference), 1)
	assert.Equal(t, domain.TxStatusSuccess, d.status(t, reference))
	d.assertLedgerBalanced(t, d.user.ID)
}

func TestFunding_HandleWebhook_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	d := setupFunding(t)
	d.allowLocks()
	reference := d.openFunding(t, "1000")

	body := []byte(`{}`)
	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
	d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
		Kind:      ports.EventPaymentSucceeded,
		Reference: reference,
	}, nil).AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", body, "sig"))
		}()
	}
	wg.Wait()

	assertDecimal(t, "1000", d.balance(t, d.user.ID))
	assert.Len(t, d.entries(t, reference), 1)
}

func TestFunding_HandleWebhook_LockHeldElsewhereSkips(t *testing.T) {
	d := setupFunding(t)
	reference := d.openFunding(t, "1000")

	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true)
	d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
		Kind:      ports.EventPaymentSucceeded,
		Reference: reference,
	}, nil)
	d.refLock.EXPECT().Acquire(gomock.Any(), "fund:"+reference, fundingLockTTL).Return(false, nil)

	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`{}`), "sig"))
	assert.Equal(t, domain.TxStatusPending, d.status(t, reference))
}

func TestFunding_HandleWebhook_LockStoreDownStillCredits(t *testing.T) {
	d := setupFunding(t)
	reference := d.openFunding(t, "1000")

	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true)
	d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
		Kind:      ports.EventPaymentSucceeded,
		Reference: reference,
	}, nil)
	d.refLock.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))

	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`{}`), "sig"))
	assert.Equal(t, domain.TxStatusSuccess, d.status(t, reference))
	assertDecimal(t, "1000", d.balance(t, d.user.ID))
}

func TestFunding_HandleWebhook_DuplicateExternalReference(t *testing.T) {
	d := setupFunding(t)
	d.allowLocks()
	first := d.openFunding(t, "500")
	second := d.openFunding(t, "500")

	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true).Times(2)
	gomock.InOrder(
		d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
			Kind: ports.EventPaymentSucceeded, Reference: first, ExternalID: "EXT-1",
		}, nil),
		d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
			Kind: ports.EventPaymentSucceeded, Reference: second, ExternalID: "EXT-1",
		}, nil),
	)

	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`1`), "sig"))
	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`2`), "sig"))

	assertDecimal(t, "500", d.balance(t, d.user.ID))
	assert.Equal(t, domain.TxStatusSuccess, d.status(t, first))
	assert.Equal(t, domain.TxStatusPending, d.status(t, second))
}

func TestFunding_HandleWebhook_FailedAndUnknownEvents(t *testing.T) {
	d := setupFunding(t)
	d.allowLocks()
	reference := d.openFunding(t, "500")

	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true).Times(3)
	gomock.InOrder(
		d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
			Kind: ports.EventPaymentSucceeded, Reference: "FUND_unknown",
		}, nil),
		d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(nil, errors.New("bad json")),
		d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(&ports.GatewayEvent{
			Kind: ports.EventPaymentFailed, Reference: reference,
		}, nil),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`{}`), "sig"))
	}

	assert.Equal(t, domain.TxStatusFailed, d.status(t, reference))
	assert.True(t, d.balance(t, d.user.ID).IsZero())
}

func TestFunding_HandleWebhook_ReservedTransfer(t *testing.T) {
	d := setupFunding(t)
	d.allowLocks()

	ev := &ports.GatewayEvent{
		Kind:          ports.EventReservedTransfer,
		ExternalID:    "MNFY|20260101|000123",
		Amount:        dec("3000"),
		CustomerEmail: d.user.Email,
	}
	d.gateway.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true).Times(2)
	d.gateway.EXPECT().ParseWebhook(gomock.Any()).Return(ev, nil).Times(2)

	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`{}`), "sig"))
	require.NoError(t, d.svc.HandleWebhook(context.Background(), "paystack", []byte(`{}`), "sig"))

	assertDecimal(t, "3000", d.balance(t, d.user.ID))

	txn, err := d.txs.GetByReference(context.Background(), domain.SanitizeReference(ev.ExternalID))
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, domain.TxStatusSuccess, txn.Status)
	assert.Equal(t, "reserved_account", txn.Meta["source"])
	d.assertLedgerBalanced(t, d.user.ID)
}

func TestFunding_Verify(t *testing.T) {
	t.Run("paid credits", func(t *testing.T) {
		d := setupFunding(t)
		d.allowLocks()
		reference := d.openFunding(t, "700")
		d.gateway.EXPECT().VerifyTransaction(gomock.Any(), reference).
			Return(&ports.GatewayVerification{Status: ports.GatewayPaid, ExternalID: "PSK-9", Amount: dec("700")}, nil)

		res, err := d.svc.Verify(context.Background(), d.actor, "paystack", reference)
		require.NoError(t, err)
		assert.Equal(t, domain.TxStatusSuccess, res.Status)
		assert.True(t, res.Credited)
		assertDecimal(t, "700", d.balance(t, d.user.ID))

		// Already resolved: no second gateway call.
		res, err = d.svc.Verify(context.Background(), d.actor, "paystack", reference)
		require.NoError(t, err)
		assert.Equal(t, domain.TxStatusSuccess, res.Status)
		assert.False(t, res.Credited)
	})

	t.Run("gateway error degrades to pending", func(t *testing.T) {
		d := setupFunding(t)
		reference := d.openFunding(t, "700")
		d.gateway.EXPECT().VerifyTransaction(gomock.Any(), reference).Return(nil, errors.New("timeout"))

		res, err := d.svc.Verify(context.Background(), d.actor, "paystack", reference)
		require.NoError(t, err)
		assert.Equal(t, domain.TxStatusPending, res.Status)
		assert.False(t, res.Credited)
	})

	t.Run("failed at gateway", func(t *testing.T) {
		d := setupFunding(t)
		reference := d.openFunding(t, "700")
		d.gateway.EXPECT().VerifyTransaction(gomock.Any(), reference).
			Return(&ports.GatewayVerification{Status: ports.GatewayFailed}, nil)

		res, err := d.svc.Verify(context.Background(), d.actor, "paystack", reference)
		require.NoError(t, err)
		assert.Equal(t, domain.TxStatusFailed, res.Status)
	})

	t.Run("other user's reference is not found", func(t *testing.T) {
		d := setupFunding(t)
		reference := d.openFunding(t, "700")

		stranger := domain.Actor{UserID: uuid.New(), Role: domain.RoleUser}
		_, err := d.svc.Verify(context.Background(), stranger, "paystack", reference)
		assertAppError(t, err, "TX_001")
	})

	t.Run("purchase reference rejected", func(t *testing.T) {
		d := setupFunding(t)
		now := time.Now().UTC()
		dbTx, err := d.db.Begin(context.Background())
		require.NoError(t, err)
		require.NoError(t, d.txs.Create(context.Background(), dbTx, &domain.Transaction{
			ID: uuid.New(), UserID: d.user.ID, Reference: "DATA_x", TxType: domain.TxTypeData,
			Amount: dec("100"), Status: domain.TxStatusSuccess, CreatedAt: now, UpdatedAt: now,
		}))
		require.NoError(t, dbTx.Commit(context.Background()))

		_, err = d.svc.Verify(context.Background(), d.actor, "paystack", "DATA_x")
		assertAppError(t, err, "SYS_002")
	})
}
