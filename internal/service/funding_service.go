package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/outcome"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	fundingLockTTL    = 30 * time.Second
	fundingLockPrefix = "fund:"
)

// FundingServiceImpl implements ports.FundingService.
//
// Every credit happens under the transaction row lock after re-checking the
// status, so replays and concurrent deliveries of the same event credit once.
// The Redis reference lock only keeps duplicate deliveries off the database.
type FundingServiceImpl struct {
	txRepo         ports.TransactionRepository
	userRepo       ports.UserRepository
	wallet         ports.WalletService
	gateways       map[string]ports.PaymentGateway
	defaultGateway string
	refLock        ports.ReferenceLock
	events         ports.EventPublisher
	auditSvc       ports.AuditService
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewFundingService creates a new FundingServiceImpl. The first gateway is the
// default when a fund request names none.
func NewFundingService(
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	wallet ports.WalletService,
	gateways []ports.PaymentGateway,
	refLock ports.ReferenceLock,
	events ports.EventPublisher,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *FundingServiceImpl {
	byName := make(map[string]ports.PaymentGateway, len(gateways))
	defaultGateway := ""
	for _, gw := range gateways {
		if defaultGateway == "" {
			defaultGateway = gw.Name()
		}
		byName[gw.Name()] = gw
	}
	return &FundingServiceImpl{
		txRepo:         txRepo,
		userRepo:       userRepo,
		wallet:         wallet,
		gateways:       byName,
		defaultGateway: defaultGateway,
		refLock:        refLock,
		events:         events,
		auditSvc:       auditSvc,
		transactor:     transactor,
		log:            log,
	}
}

func (s *FundingServiceImpl) gateway(name string) (ports.PaymentGateway, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = s.defaultGateway
	}
	gw, ok := s.gateways[name]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported payment gateway %q", name))
	}
	return gw, nil
}

// Fund opens a pending wallet_fund transaction and starts a hosted checkout.
func (s *FundingServiceImpl) Fund(ctx context.Context, actor domain.Actor, req ports.FundRequest) (*ports.CheckoutResponse, error) {
	amount := domain.Money(req.Amount)
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	gw, err := s.gateway(req.Gateway)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		Reference: domain.NewReference(domain.TxTypeWalletFund.ReferencePrefix()),
		TxType:    domain.TxTypeWalletFund,
		Amount:    amount,
		Status:    domain.TxStatusPending,
		Provider:  gw.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	checkout, err := gw.InitiateCheckout(ctx, ports.CheckoutRequest{
		Email:       actor.Email,
		Name:        actor.FullName,
		Amount:      amount,
		Reference:   txn.Reference,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.log.Error().Err(err).Str("reference", txn.Reference).Str("gateway", gw.Name()).Msg("checkout init failed")
		s.failFunding(context.WithoutCancel(ctx), txn.Reference, outcome.TruncateReason("Checkout initialization failed: "+err.Error()))
		return nil, apperror.ErrGatewayUnavailable(err)
	}
	if checkout.Reference == "" {
		checkout.Reference = txn.Reference
	}

	actorID := actor.UserID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ActorID:      &actorID,
		Action:       domain.AuditActionWalletFundInit,
		ResourceType: "transaction",
		ResourceID:   txn.Reference,
		Details:      fmt.Sprintf(`{"gateway":%q,"amount":%q}`, gw.Name(), amount.StringFixed(domain.MoneyPlaces)),
		IPAddress:    actor.IP,
	})

	s.log.Info().Str("reference", txn.Reference).Str("gateway", gw.Name()).Msg("wallet funding initiated")
	return checkout, nil
}

// HandleWebhook verifies and applies one gateway event. Only a signature
// failure is reported to the caller.
func (s *FundingServiceImpl) HandleWebhook(ctx context.Context, gatewayName string, body []byte, signature string) error {
	gw, err := s.gateway(gatewayName)
	if err != nil {
		return err
	}
	if signature == "" || !gw.VerifySignature(body, signature) {
		s.log.Warn().Str("gateway", gw.Name()).Msg("webhook signature rejected")
		return apperror.ErrInvalidSignature()
	}

	ev, err := gw.ParseWebhook(body)
	if err != nil {
		s.log.Warn().Err(err).Str("gateway", gw.Name()).Msg("undecodable webhook payload ignored")
		return nil
	}

	logger := s.log.With().Str("gateway", gw.Name()).Str("reference", ev.Reference).Str("event", string(ev.Kind)).Logger()

	switch ev.Kind {
	case ports.EventPaymentSucceeded:
		if ev.Reference == "" {
			logger.Warn().Msg("payment event without reference ignored")
			return nil
		}
		if _, err := s.creditFunding(ctx, gw.Name(), ev.Reference, ev.ExternalID, "webhook"); err != nil {
			logger.Error().Err(err).Msg("webhook credit failed")
		}
	case ports.EventPaymentFailed:
		s.failFunding(ctx, ev.Reference, "Payment failed at gateway")
	case ports.EventReservedTransfer:
		if err := s.creditReservedTransfer(ctx, gw.Name(), ev); err != nil {
			logger.Error().Err(err).Msg("reserved transfer credit failed")
		}
	default:
		logger.Debug().Msg("webhook event ignored")
	}
	return nil
}

// Verify polls the gateway for one of the caller's funding transactions.
func (s *FundingServiceImpl) Verify(ctx context.Context, actor domain.Actor, gatewayName, reference string) (*ports.VerifyResult, error) {
	if _, err := s.gateway(gatewayName); err != nil {
		return nil, err
	}
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil || (txn.UserID != actor.UserID && actor.Role != domain.RoleAdmin) {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.TxType != domain.TxTypeWalletFund {
		return nil, apperror.Validation("reference is not a wallet funding transaction")
	}
	if txn.Provider == "" {
		txn.Provider = strings.ToLower(gatewayName)
	}
	return s.VerifyPending(ctx, txn)
}

// VerifyPending asks the transaction's gateway for its state and credits on
// success. Gateway errors degrade to pending.
func (s *FundingServiceImpl) VerifyPending(ctx context.Context, txn *domain.Transaction) (*ports.VerifyResult, error) {
	result := &ports.VerifyResult{Reference: txn.Reference, Status: txn.Status}
	if txn.Status != domain.TxStatusPending {
		return result, nil
	}

	gw, err := s.gateway(txn.Provider)
	if err != nil {
		return nil, err
	}

	verification, err := gw.VerifyTransaction(ctx, txn.Reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", txn.Reference).Str("gateway", gw.Name()).Msg("gateway verify failed, reporting pending")
		return result, nil
	}

	switch verification.Status {
	case ports.GatewayPaid:
		credited, err := s.creditFunding(ctx, gw.Name(), txn.Reference, verification.ExternalID, "verify")
		if err != nil {
			s.log.Error().Err(err).Str("reference", txn.Reference).Msg("verify credit failed, reporting pending")
			return result, nil
		}
		result.Credited = credited
	case ports.GatewayFailed:
		s.failFunding(ctx, txn.Reference, "Payment failed at gateway")
	}

	current, err := s.txRepo.GetByReference(ctx, txn.Reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if current != nil {
		result.Status = current.Status
	}
	return result, nil
}

// creditFunding credits a pending wallet_fund transaction exactly once.
func (s *FundingServiceImpl) creditFunding(ctx context.Context, gateway, reference, externalID, source string) (bool, error) {
	release, ok := s.acquire(ctx, reference)
	if !ok {
		s.log.Info().Str("reference", reference).Msg("funding event already being processed")
		metrics.DuplicateEvents.WithLabelValues(gateway).Inc()
		return false, nil
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil || txn.TxType != domain.TxTypeWalletFund {
		s.log.Warn().Str("reference", reference).Msg("funding event for unknown reference ignored")
		return false, nil
	}
	if txn.Status != domain.TxStatusPending {
		s.log.Info().Str("reference", reference).Str("status", string(txn.Status)).Msg("funding event for resolved transaction ignored")
		metrics.DuplicateEvents.WithLabelValues(gateway).Inc()
		return false, nil
	}
	if externalID != "" {
		exists, err := s.txRepo.ExistsByExternalReference(ctx, dbTx, externalID)
		if err != nil {
			return false, apperror.InternalError(fmt.Errorf("check external reference: %w", err))
		}
		if exists {
			s.log.Warn().Str("reference", reference).Str("external_reference", externalID).Msg("external reference already applied")
			metrics.DuplicateEvents.WithLabelValues(gateway).Inc()
			return false, nil
		}
		txn.ExternalReference = &externalID
	}

	if _, err := s.wallet.CreditTx(ctx, dbTx, txn.UserID, txn.Amount, txn.Reference, "Wallet funding via "+gateway); err != nil {
		return false, err
	}
	txn.Status = domain.TxStatusSuccess
	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		return false, apperror.InternalError(fmt.Errorf("update transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.FundingCredits.WithLabelValues(gateway, source).Inc()
	s.publish(ctx, domain.EventWalletFunded, txn)
	s.log.Info().Str("reference", reference).Str("gateway", gateway).Str("source", source).Msg("wallet funded")
	return true, nil
}

// creditReservedTransfer records and credits a bank transfer that arrived with
// no internal transaction behind it.
func (s *FundingServiceImpl) creditReservedTransfer(ctx context.Context, gateway string, ev *ports.GatewayEvent) error {
	if ev.ExternalID == "" || !ev.Amount.IsPositive() {
		s.log.Warn().Str("gateway", gateway).Msg("reserved transfer without id or amount ignored")
		return nil
	}
	user, err := s.userRepo.GetByEmail(ctx, ev.CustomerEmail)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		s.log.Warn().Str("external_reference", ev.ExternalID).Msg("reserved transfer for unknown customer ignored")
		return nil
	}

	reference := domain.SanitizeReference(ev.ExternalID)
	release, ok := s.acquire(ctx, reference)
	if !ok {
		metrics.DuplicateEvents.WithLabelValues(gateway).Inc()
		return nil
	}
	defer release()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	exists, err := s.txRepo.ExistsByExternalReference(ctx, dbTx, ev.ExternalID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check external reference: %w", err))
	}
	if !exists {
		existing, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
		}
		exists = existing != nil
	}
	if exists {
		s.log.Info().Str("external_reference", ev.ExternalID).Msg("reserved transfer already applied")
		metrics.DuplicateEvents.WithLabelValues(gateway).Inc()
		return nil
	}

	externalID := ev.ExternalID
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                uuid.New(),
		UserID:            user.ID,
		Reference:         reference,
		TxType:            domain.TxTypeWalletFund,
		Amount:            domain.Money(ev.Amount),
		Status:            domain.TxStatusSuccess,
		Provider:          gateway,
		ExternalReference: &externalID,
		Meta:              map[string]any{"source": "reserved_account"},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if _, err := s.wallet.CreditTx(ctx, dbTx, user.ID, txn.Amount, txn.Reference, "Reserved account transfer via "+gateway); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.FundingCredits.WithLabelValues(gateway, "reserved_account").Inc()
	s.publish(ctx, domain.EventWalletFunded, txn)
	s.log.Info().Str("reference", reference).Str("user_id", user.ID.String()).Msg("reserved account transfer credited")
	return nil
}

// failFunding marks a pending funding transaction failed. Nothing is refunded:
// funding never debits the wallet.
func (s *FundingServiceImpl) failFunding(ctx context.Context, reference, reason string) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("begin tx for funding failure")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("lock transaction for funding failure")
		return
	}
	if txn == nil || txn.TxType != domain.TxTypeWalletFund || txn.Status != domain.TxStatusPending {
		return
	}

	txn.Status = domain.TxStatusFailed
	txn.FailureReason = &reason
	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("update transaction for funding failure")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("commit funding failure")
		return
	}
	s.publish(ctx, domain.EventFundingFailed, txn)
}

// acquire takes the per-reference lock. Lock store errors do not block
// processing; the row lock still applies.
func (s *FundingServiceImpl) acquire(ctx context.Context, reference string) (func(), bool) {
	key := fundingLockPrefix + reference
	ok, err := s.refLock.Acquire(ctx, key, fundingLockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("reference lock unavailable, relying on row lock")
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := s.refLock.Release(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn().Err(err).Str("reference", reference).Msg("reference lock release failed")
		}
	}, true
}

func (s *FundingServiceImpl) publish(ctx context.Context, eventType domain.EventType, txn *domain.Transaction) {
	publishEvent(ctx, s.events, s.log, eventType, txn)
}
