package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Store abstracts the repository surface the service depends on.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAccounts(ctx context.Context, includeInactive bool) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int, error)
	CountPostings(ctx context.Context, id int64) (int, error)
	FindAccountByRole(ctx context.Context, role ReportingRole) (Account, error)
	UpdateCachedBalance(ctx context.Context, id int64, balance decimal.Decimal) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReportInvalidator busts cached report output after a posting changes
// the journal. Wired to the reports service at composition time.
type ReportInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// Service coordinates chart-of-accounts management, balance lookups,
// check writing, and cached-balance reconciliation.
type Service struct {
	store   Store
	agg     *Aggregator
	audit   AuditPort
	reports ReportInvalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(store Store, agg *Aggregator, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{store: store, agg: agg, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithReportInvalidator wires the report cache so postings bust it.
func (s *Service) WithReportInvalidator(inv ReportInvalidator) {
	s.reports = inv
}

func (s *Service) invalidateReports(ctx context.Context) {
	if s.reports != nil {
		s.reports.InvalidateCache(ctx)
	}
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, includeInactive bool) ([]Account, error) {
	return s.store.ListAccounts(ctx, includeInactive)
}

// GetAccount fetches one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.store.GetAccount(ctx, id)
}

func validAccountType(t AccountType) bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

func validReportingRole(r *ReportingRole) bool {
	if r == nil {
		return true
	}
	switch *r {
	case RoleBank, RoleReceivable, RoleInventory, RolePayable:
		return true
	}
	return false
}

// checkParent validates that parentID can host a sub-account of typ.
// Only one level of nesting is permitted.
func (s *Service) checkParent(ctx context.Context, parentID int64, typ AccountType) error {
	parent, err := s.store.GetAccount(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.IsSubAccount() {
		return ErrParentDepth
	}
	if parent.Type != typ {
		return ErrParentTypeMismatch
	}
	return nil
}

// CreateAccount adds a chart node after structural validation.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	if in.Code == "" || in.Name == "" {
		return Account{}, errors.New("ledger: code and name are required")
	}
	if !validAccountType(in.Type) {
		return Account{}, fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	if !validReportingRole(in.ReportingRole) {
		return Account{}, fmt.Errorf("ledger: unknown reporting role %q", *in.ReportingRole)
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, *in.ParentID, in.Type); err != nil {
			return Account{}, err
		}
	}
	account, err := s.store.CreateAccount(ctx, in)
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, in.ActorID, "account.create", account.ID, map[string]any{"code": account.Code, "type": string(account.Type)})
	return account, nil
}

// UpdateAccount edits account metadata. The account type is immutable;
// an account can never be its own parent.
func (s *Service) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	current, err := s.store.GetAccount(ctx, in.ID)
	if err != nil {
		return Account{}, err
	}
	if in.Type != "" && in.Type != current.Type {
		return Account{}, ErrTypeImmutable
	}
	if !validReportingRole(in.ReportingRole) {
		return Account{}, fmt.Errorf("ledger: unknown reporting role %q", *in.ReportingRole)
	}
	if in.ParentID != nil {
		if *in.ParentID == in.ID {
			return Account{}, ErrOwnParent
		}
		if err := s.checkParent(ctx, *in.ParentID, current.Type); err != nil {
			return Account{}, err
		}
	}
	account, err := s.store.UpdateAccount(ctx, in)
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, in.ActorID, "account.update", account.ID, map[string]any{"code": account.Code})
	return account, nil
}

// DeleteAccount removes an account unless it still anchors sub-accounts
// or journal postings.
func (s *Service) DeleteAccount(ctx context.Context, id, actorID int64) error {
	children, err := s.store.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrAccountHasChildren
	}
	postings, err := s.store.CountPostings(ctx, id)
	if err != nil {
		return err
	}
	if postings > 0 {
		return ErrAccountHasPostings
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "account.delete", id, nil)
	return nil
}

// GetBalance returns the cached balance payload for the lookup endpoint.
func (s *Service) GetBalance(ctx context.Context, id int64) (BalanceLookup, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return BalanceLookup{}, err
	}
	return BalanceLookup{
		Balance:     account.Balance,
		AccountCode: account.Code,
		AccountName: account.Name,
	}, nil
}

// ReconcileReport summarises one cached-balance reconciliation pass.
type ReconcileReport struct {
	Checked  int
	Repaired int
}

// ReconcileBalances recomputes every account's balance from journal
// aggregates and repairs the cached column where it has drifted. The
// cached convention is debit-positive: opening + debits - credits.
func (s *Service) ReconcileBalances(ctx context.Context) (ReconcileReport, error) {
	totals, err := s.agg.Totals(ctx, AsOf(s.now()), nil)
	if err != nil {
		return ReconcileReport{}, err
	}
	accounts, err := s.store.ListAccounts(ctx, true)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{}
	for _, acc := range accounts {
		report.Checked++
		computed := acc.OpeningBalance
		if t, ok := totals[acc.ID]; ok {
			computed = t.Debit.Sub(t.Credit)
		}
		if computed.Equal(acc.Balance) {
			continue
		}
		if s.logger != nil {
			s.logger.Warn("cached balance drift",
				slog.Int64("account_id", acc.ID),
				slog.String("code", acc.Code),
				slog.String("cached", acc.Balance.String()),
				slog.String("computed", computed.String()))
		}
		if err := s.store.UpdateCachedBalance(ctx, acc.ID, computed); err != nil {
			return report, err
		}
		report.Repaired++
	}
	return report, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
