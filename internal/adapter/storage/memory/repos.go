package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Users ---

// UserRepo implements ports.UserRepository.
type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("insert user: duplicate email %s", u.Email)
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

// --- Wallets ---

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(_ context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.walletByUser[w.UserID]; exists {
		return nil
	}
	r.s.wallets[w.ID] = *w
	r.s.walletByUser[w.UserID] = w.ID
	onRollback(tx, func() {
		delete(r.s.wallets, w.ID)
		delete(r.s.walletByUser, w.UserID)
	})
	return nil
}

func (r *WalletRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.walletByUser[userID]
	if !ok {
		return nil, nil
	}
	w := r.s.wallets[id]
	return &w, nil
}

// GetByUserIDForUpdate relies on the store-wide transaction lock.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, _ pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepo) UpdateBalance(_ context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	prev := w
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	r.s.wallets[walletID] = w
	onRollback(tx, func() { r.s.wallets[walletID] = prev })
	return nil
}

func (r *WalletRepo) SetLocked(_ context.Context, tx pgx.Tx, walletID uuid.UUID, locked bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	prev := w
	w.IsLocked = locked
	r.s.wallets[walletID] = w
	onRollback(tx, func() { r.s.wallets[walletID] = prev })
	return nil
}

// --- Ledger ---

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Append(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledger = append(r.s.ledger, *e)
	n := len(r.s.ledger)
	onRollback(tx, func() { r.s.ledger = r.s.ledger[:n-1] })
	return nil
}

func (r *LedgerRepo) ListByWallet(_ context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.LedgerEntry
	for i := len(r.s.ledger) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.s.ledger[i].WalletID == walletID {
			out = append(out, r.s.ledger[i])
		}
	}
	return out, nil
}

func (r *LedgerRepo) ListByReference(_ context.Context, reference string) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range r.s.ledger {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *LedgerRepo) Totals(_ context.Context, walletID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	credits, debits := decimal.Zero, decimal.Zero
	for _, e := range r.s.ledger {
		if e.WalletID != walletID {
			continue
		}
		if e.EntryType == domain.EntryCredit {
			credits = credits.Add(e.Amount)
		} else {
			debits = debits.Add(e.Amount)
		}
	}
	return credits, debits, nil
}

// --- Transactions ---

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

func NewTransactionRepo(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.transactions[t.Reference]; exists {
		return fmt.Errorf("insert transaction: duplicate reference %s", t.Reference)
	}
	r.s.transactions[t.Reference] = cloneTx(*t)
	ref := t.Reference
	onRollback(tx, func() { delete(r.s.transactions, ref) })
	return nil
}

func (r *TransactionRepo) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[reference]
	if !ok {
		return nil, nil
	}
	out := cloneTx(t)
	return &out, nil
}

func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, _ pgx.Tx, reference string) (*domain.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r *TransactionRepo) ExistsByExternalReference(_ context.Context, _ pgx.Tx, externalRef string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.transactions {
		if t.ExternalReference != nil && *t.ExternalReference == externalRef {
			return true, nil
		}
	}
	return false, nil
}

func (r *TransactionRepo) Update(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.transactions[t.Reference]
	if !ok {
		return fmt.Errorf("transaction not found: %s", t.Reference)
	}
	next := cloneTx(*t)
	next.UpdatedAt = time.Now().UTC()
	r.s.transactions[t.Reference] = next
	onRollback(tx, func() { r.s.transactions[prev.Reference] = prev })
	return nil
}

func (r *TransactionRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	var out []domain.Transaction
	for _, t := range r.s.transactions {
		if t.UserID == userID {
			out = append(out, cloneTx(t))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TransactionRepo) DailyUsage(_ context.Context, userID uuid.UUID, since time.Time) (int64, decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var count int64
	total := decimal.Zero
	for _, t := range r.s.transactions {
		if t.UserID != userID || !t.TxType.IsPurchase() || t.CreatedAt.Before(since) {
			continue
		}
		if t.Status != domain.TxStatusPending && t.Status != domain.TxStatusSuccess {
			continue
		}
		count++
		total = total.Add(t.Amount)
	}
	return count, total, nil
}

func (r *TransactionRepo) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	var out []domain.Transaction
	for _, t := range r.s.transactions {
		if t.Status == domain.TxStatusPending && t.CreatedAt.Before(olderThan) {
			out = append(out, cloneTx(t))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TransactionRepo) GetStats(_ context.Context) (*ports.TransactionStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &ports.TransactionStats{}
	for _, t := range r.s.transactions {
		if t.Status != domain.TxStatusSuccess {
			continue
		}
		stats.Successful++
		stats.TotalRevenue = stats.TotalRevenue.Add(t.Amount)
		if t.TxType == domain.TxTypeData {
			stats.DataRevenue = stats.DataRevenue.Add(t.Amount)
			if p, ok := r.s.plans[t.ProductCode]; ok {
				stats.DataCostEstimate = stats.DataCostEstimate.Add(p.BasePrice)
			}
		}
	}
	return stats, nil
}

func cloneTx(t domain.Transaction) domain.Transaction {
	if t.Meta != nil {
		m := make(map[string]any, len(t.Meta))
		for k, v := range t.Meta {
			m[k] = v
		}
		t.Meta = m
	}
	if t.ExternalReference != nil {
		v := *t.ExternalReference
		t.ExternalReference = &v
	}
	if t.FailureReason != nil {
		v := *t.FailureReason
		t.FailureReason = &v
	}
	return t
}

// --- Pricing ---

// PricingRepo implements ports.PricingRepository.
type PricingRepo struct{ s *Store }

func NewPricingRepo(s *Store) *PricingRepo { return &PricingRepo{s: s} }

func pricingKey(key string, role domain.PricingRole) string {
	return key + "|" + string(role)
}

func (r *PricingRepo) Get(_ context.Context, key string, role domain.PricingRole) (*domain.PricingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rule, ok := r.s.pricing[pricingKey(key, role)]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r *PricingRepo) Upsert(_ context.Context, rule *domain.PricingRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pricingKey(rule.Key, rule.Role)
	if existing, ok := r.s.pricing[k]; ok {
		rule.ID = existing.ID
	}
	r.s.pricing[k] = *rule
	return nil
}

func (r *PricingRepo) List(_ context.Context) ([]domain.PricingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.PricingRule, 0, len(r.s.pricing))
	for _, rule := range r.s.pricing {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return pricingKey(out[i].Key, out[i].Role) < pricingKey(out[j].Key, out[j].Role) })
	return out, nil
}

// --- Plans ---

// PlanRepo implements ports.PlanRepository.
type PlanRepo struct{ s *Store }

func NewPlanRepo(s *Store) *PlanRepo { return &PlanRepo{s: s} }

func (r *PlanRepo) GetByCode(_ context.Context, code string) (*domain.DataPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.plans[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *PlanRepo) FindBySuffix(_ context.Context, code string) ([]domain.DataPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.DataPlan
	for k, p := range r.s.plans {
		if p.IsActive && strings.HasSuffix(k, ":"+code) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PlanRepo) ListActive(_ context.Context) ([]domain.DataPlan, error) {
	r.s.mu.RLock()
	var out []domain.DataPlan
	for _, p := range r.s.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].BasePrice.LessThan(out[j].BasePrice)
	})
	return out, nil
}

func (r *PlanRepo) Upsert(_ context.Context, p *domain.DataPlan) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.plans[p.PlanCode]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	r.s.plans[p.PlanCode] = *p
	return !ok, nil
}

func (r *PlanRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.plans)), nil
}

// --- API call logs ---

// APICallLogRepo implements ports.APICallLogRepository.
type APICallLogRepo struct{ s *Store }

func NewAPICallLogRepo(s *Store) *APICallLogRepo { return &APICallLogRepo{s: s} }

func (r *APICallLogRepo) Create(_ context.Context, entry *domain.APICallLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apiLogs = append(r.s.apiLogs, *entry)
	return nil
}

func (r *APICallLogRepo) CountByOutcome(_ context.Context) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ok, failed int64
	for _, l := range r.s.apiLogs {
		if l.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed, nil
}

// Entries returns a copy of all recorded calls.
func (r *APICallLogRepo) Entries() []domain.APICallLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.APICallLog(nil), r.s.apiLogs...)
}

// --- Audit ---

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

// Entries returns a copy of all audit records.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audits...)
}

// --- Announcements ---

// AnnouncementRepo implements ports.AnnouncementRepository.
type AnnouncementRepo struct{ s *Store }

func NewAnnouncementRepo(s *Store) *AnnouncementRepo { return &AnnouncementRepo{s: s} }

func (r *AnnouncementRepo) Create(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lastAnnounceID++
	a.ID = r.s.lastAnnounceID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.s.announcements[a.ID] = *a
	return nil
}

func (r *AnnouncementRepo) GetByID(_ context.Context, id int64) (*domain.Announcement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.announcements[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AnnouncementRepo) Update(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.announcements[a.ID]
	if !ok {
		return fmt.Errorf("update announcement %d: not found", a.ID)
	}
	a.CreatedAt = existing.CreatedAt
	a.CreatedByEmail = existing.CreatedByEmail
	r.s.announcements[a.ID] = *a
	return nil
}

func (r *AnnouncementRepo) ListLive(_ context.Context, now time.Time, limit int) ([]domain.Announcement, error) {
	return r.list(limit, func(a *domain.Announcement) bool { return a.LiveAt(now) })
}

func (r *AnnouncementRepo) List(_ context.Context, limit int) ([]domain.Announcement, error) {
	return r.list(limit, func(*domain.Announcement) bool { return true })
}

func (r *AnnouncementRepo) list(limit int, keep func(*domain.Announcement) bool) ([]domain.Announcement, error) {
	r.s.mu.RLock()
	var out []domain.Announcement
	for _, a := range r.s.announcements {
		if keep(&a) {
			out = append(out, a)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
