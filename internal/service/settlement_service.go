package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/outcome"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const dataPurchaseEndpoint = "/data/"

// SettlementServiceImpl implements ports.SettlementService.
//
// A purchase is: price, limit checks, one transaction that inserts the pending
// record and debits the wallet, the provider call outside any transaction,
// then a second transaction that resolves the record (success, or refund).
type SettlementServiceImpl struct {
	txRepo        ports.TransactionRepository
	wallet        ports.WalletService
	pricing       ports.PricingService
	limits        ports.LimitService
	catalog       ports.CatalogService
	dataProvider  ports.DataProvider
	billsProvider ports.BillsProvider
	apiLogs       ports.APICallLogRepository
	events        ports.EventPublisher
	transactor    ports.DBTransactor
	billsEnabled  bool
	log           zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	txRepo ports.TransactionRepository,
	wallet ports.WalletService,
	pricing ports.PricingService,
	limits ports.LimitService,
	catalog ports.CatalogService,
	dataProvider ports.DataProvider,
	billsProvider ports.BillsProvider,
	apiLogs ports.APICallLogRepository,
	events ports.EventPublisher,
	transactor ports.DBTransactor,
	billsEnabled bool,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		txRepo:        txRepo,
		wallet:        wallet,
		pricing:       pricing,
		limits:        limits,
		catalog:       catalog,
		dataProvider:  dataProvider,
		billsProvider: billsProvider,
		apiLogs:       apiLogs,
		events:        events,
		transactor:    transactor,
		billsEnabled:  billsEnabled,
		log:           log,
	}
}

// PurchaseData buys a data bundle for req.MobileNumber.
func (s *SettlementServiceImpl) PurchaseData(ctx context.Context, actor domain.Actor, req ports.DataPurchaseRequest) (*ports.PurchaseResult, error) {
	plan, err := s.catalog.ResolvePlan(ctx, req.PlanCode)
	if err != nil {
		return nil, err
	}
	networkID, ok := s.dataProvider.NetworkID(plan.Network)
	if !ok {
		return nil, apperror.ErrUnsupportedProduct(fmt.Sprintf("Unsupported network for data purchase: %s", plan.Network))
	}

	charge, err := s.pricing.PriceForData(ctx, plan, actor.Role)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(ctx, actor.UserID, charge); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		Reference:   domain.NewReference(domain.TxTypeData.ReferencePrefix()),
		TxType:      domain.TxTypeData,
		Amount:      charge,
		Status:      domain.TxStatusPending,
		Provider:    s.dataProvider.Name(),
		Network:     plan.Network,
		ProductCode: plan.PlanCode,
		Customer:    req.MobileNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	txn.SetMeta("plan_name", plan.PlanName)
	txn.SetMeta("ported_number", req.Ported)

	if err := s.openAndDebit(ctx, txn, fmt.Sprintf("Data purchase to %s", req.MobileNumber)); err != nil {
		return nil, err
	}

	// The wallet is debited: from here on the caller going away must not
	// stop the purchase from resolving.
	settleCtx := context.WithoutCancel(ctx)

	start := time.Now()
	resp, callErr := s.dataProvider.PurchaseData(settleCtx, ports.DataPurchase{
		NetworkID:      networkID,
		MobileNumber:   req.MobileNumber,
		PlanCode:       plan.ProviderCode(),
		Ported:         req.Ported,
		IdempotencyKey: txn.Reference,
	})
	s.recordCall(settleCtx, actor.UserID, s.dataProvider.Name(), dataPurchaseEndpoint, txn.Reference, resp, callErr, time.Since(start))

	return s.settle(settleCtx, txn, resp, callErr)
}

// PurchaseService buys airtime, cable, electricity or exam pins.
func (s *SettlementServiceImpl) PurchaseService(ctx context.Context, actor domain.Actor, req ports.ServicePurchaseRequest) (*ports.PurchaseResult, error) {
	if !s.billsEnabled {
		return nil, apperror.ErrUnsupportedProduct("Service purchases are currently unavailable")
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if !req.TxType.IsPurchase() || req.TxType == domain.TxTypeData || !domain.IsCatalogProvider(req.TxType, provider) {
		return nil, apperror.ErrUnsupportedProduct(fmt.Sprintf("Unsupported provider %q for %s", req.Provider, req.TxType))
	}

	base := req.Amount
	quantity := 0
	if req.TxType == domain.TxTypeExam {
		if req.Quantity < domain.MinExamQuantity || req.Quantity > domain.MaxExamQuantity {
			return nil, apperror.Validation(fmt.Sprintf("quantity must be between %d and %d", domain.MinExamQuantity, domain.MaxExamQuantity))
		}
		quantity = req.Quantity
		base = domain.ExamPinUnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	}
	if !base.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	charge, margin, err := s.pricing.ChargeForService(ctx, req.TxType, provider, base, actor.Role)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(ctx, actor.UserID, charge); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		Reference:   domain.NewReference(req.TxType.ReferencePrefix()),
		TxType:      req.TxType,
		Amount:      charge,
		Status:      domain.TxStatusPending,
		Provider:    provider,
		ProductCode: req.ProductCode,
		Customer:    req.Customer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	txn.SetMeta("base_amount", base.StringFixed(domain.MoneyPlaces))
	txn.SetMeta("margin_applied", margin.StringFixed(domain.MoneyPlaces))
	if quantity > 0 {
		txn.SetMeta("quantity", quantity)
	}

	description := fmt.Sprintf("%s purchase (%s) for %s", req.TxType, provider, req.Customer)
	if err := s.openAndDebit(ctx, txn, description); err != nil {
		return nil, err
	}

	settleCtx := context.WithoutCancel(ctx)

	start := time.Now()
	resp, callErr := s.billsProvider.Purchase(settleCtx, ports.BillPurchase{
		TxType:      req.TxType,
		Provider:    provider,
		Customer:    req.Customer,
		ProductCode: req.ProductCode,
		Amount:      base,
		Quantity:    quantity,
		Reference:   txn.Reference,
	})
	s.recordCall(settleCtx, actor.UserID, s.billsProvider.Name(), "/"+string(req.TxType), txn.Reference, resp, callErr, time.Since(start))

	return s.settle(settleCtx, txn, resp, callErr)
}

// precheck runs every rejection that must happen before money moves.
func (s *SettlementServiceImpl) precheck(ctx context.Context, userID uuid.UUID, charge decimal.Decimal) error {
	if !charge.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	return s.limits.EnforcePurchaseLimits(ctx, userID, charge)
}

// openAndDebit inserts the pending record and debits the wallet atomically.
// If the debit fails the record is rolled back with it, so an abandoned
// purchase leaves nothing behind.
func (s *SettlementServiceImpl) openAndDebit(ctx context.Context, txn *domain.Transaction, description string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if _, err := s.wallet.DebitTx(ctx, dbTx, txn.UserID, txn.Amount, txn.Reference, description); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// settle resolves a debited purchase from the provider's answer.
func (s *SettlementServiceImpl) settle(ctx context.Context, txn *domain.Transaction, resp *ports.ProviderResponse, callErr error) (*ports.PurchaseResult, error) {
	logger := s.log.With().Str("reference", txn.Reference).Str("tx_type", string(txn.TxType)).Logger()

	if callErr != nil {
		var provErr *ports.ProviderError
		isRejection := errors.As(callErr, &provErr)
		reason := outcome.TruncateReason(callErr.Error())
		if isRejection {
			reason = outcome.TruncateReason(provErr.Message)
		}

		logger.Warn().Err(callErr).Msg("provider call failed, refunding")
		if _, err := s.refund(ctx, txn.Reference, reason, "Auto refund due to provider error"); err != nil {
			return nil, err
		}
		if isRejection {
			return nil, apperror.ErrProviderRejected(reason).WithHint("Reference " + txn.Reference)
		}
		return nil, apperror.ErrProviderUnavailable(callErr).WithHint("Reference " + txn.Reference)
	}

	body := resp.Body
	decision := outcome.ClassifyResponse(body)
	message := strings.TrimSpace(stringField(body, "message"))

	switch decision.Status {
	case outcome.Success:
		resolved, err := s.markSuccess(ctx, txn.Reference, stringField(body, "reference", "transaction_reference", "transaction_id"), fulfilmentExtras(body))
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("purchase succeeded")
		return s.result(resolved, message), nil

	case outcome.Failed:
		logger.Info().Str("reason", decision.Reason).Msg("provider rejected purchase, refunding")
		resolved, err := s.refund(ctx, txn.Reference, decision.Reason, "Auto refund for failed purchase")
		if err != nil {
			return nil, err
		}
		if message == "" {
			message = decision.Reason
		}
		return s.result(resolved, message), nil

	default:
		logger.Warn().Str("basis", string(decision.Basis)).Msg("provider outcome ambiguous, leaving pending")
		metrics.SettlementOutcomes.WithLabelValues(string(txn.TxType), string(domain.TxStatusPending)).Inc()
		s.publish(ctx, domain.EventPurchasePending, txn)
		if message == "" {
			message = "Purchase is processing"
		}
		return s.result(txn, message), nil
	}
}

// markSuccess moves a pending purchase to success. A record that was already
// resolved is returned unchanged.
func (s *SettlementServiceImpl) markSuccess(ctx context.Context, reference, externalRef string, extras map[string]any) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.Status != domain.TxStatusPending {
		return txn, nil
	}

	txn.Status = domain.TxStatusSuccess
	txn.FailureReason = nil
	if externalRef != "" {
		txn.ExternalReference = &externalRef
	}
	for k, v := range extras {
		txn.SetMeta(k, v)
	}
	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.SettlementOutcomes.WithLabelValues(string(txn.TxType), string(txn.Status)).Inc()
	s.publish(ctx, domain.EventPurchaseSucceeded, txn)
	return txn, nil
}

// refund applies failed-with-refund as one step: credit the exact charge under
// the same reference and set the record to refunded.
func (s *SettlementServiceImpl) refund(ctx context.Context, reference, reason, description string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.Status != domain.TxStatusPending {
		return txn, nil
	}

	if _, err := s.wallet.CreditTx(ctx, dbTx, txn.UserID, txn.Amount, txn.Reference, description); err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("refund credit failed, purchase left pending")
		return nil, err
	}

	reason = outcome.TruncateReason(reason)
	txn.Status = domain.TxStatusRefunded
	txn.FailureReason = &reason
	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.SettlementOutcomes.WithLabelValues(string(txn.TxType), string(txn.Status)).Inc()
	s.publish(ctx, domain.EventPurchaseRefunded, txn)
	return txn, nil
}

// recordCall writes the API-call log entry for every provider call, whatever the outcome.
func (s *SettlementServiceImpl) recordCall(
	ctx context.Context,
	userID uuid.UUID,
	service, endpoint, reference string,
	resp *ports.ProviderResponse,
	callErr error,
	elapsed time.Duration,
) {
	statusCode := 0
	switch {
	case resp != nil:
		statusCode = resp.StatusCode
	case callErr != nil:
		var provErr *ports.ProviderError
		if errors.As(callErr, &provErr) {
			statusCode = provErr.StatusCode
		}
	}
	success := callErr == nil

	metrics.ProviderLatency.WithLabelValues(service, endpoint, strconv.FormatBool(success)).Observe(elapsed.Seconds())

	entry := &domain.APICallLog{
		ID:         uuid.New(),
		UserID:     &userID,
		Service:    service,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		DurationMS: elapsed.Milliseconds(),
		Reference:  reference,
		Success:    success,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.apiLogs.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to record api call")
	}
}

func (s *SettlementServiceImpl) publish(ctx context.Context, eventType domain.EventType, txn *domain.Transaction) {
	publishEvent(ctx, s.events, s.log, eventType, txn)
}

func (s *SettlementServiceImpl) result(txn *domain.Transaction, message string) *ports.PurchaseResult {
	return &ports.PurchaseResult{
		Reference:   txn.Reference,
		Status:      txn.Status,
		Message:     message,
		Amount:      txn.Amount,
		Transaction: txn,
	}
}

// fulfilmentExtras picks the delivery artefacts bill providers return.
func fulfilmentExtras(body map[string]any) map[string]any {
	extras := make(map[string]any)
	for _, key := range []string{"token", "pins", "units"} {
		if v, ok := body[key]; ok && v != nil {
			extras[key] = v
		}
	}
	return extras
}

// stringField returns the first non-empty value among keys, formatted as text.
func stringField(body map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := body[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}
