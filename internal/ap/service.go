package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// RepositoryPort defines data access for payables.
type RepositoryPort interface {
	ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	CreateSupplier(ctx context.Context, in CreateSupplierInput) (Supplier, error)
	ListBills(ctx context.Context, supplierID *int64) ([]Bill, error)
	GetBill(ctx context.Context, id int64) (Bill, error)
	CreateBill(ctx context.Context, in CreateBillInput) (Bill, error)
	ApplyPayment(ctx context.Context, in BillPaymentInput, newPaid decimal.Decimal, newStatus BillStatus) (BillPayment, error)
	ListPayments(ctx context.Context, billID int64) ([]BillPayment, error)
}

// LedgerPort posts payment journals to the general ledger.
type LedgerPort interface {
	PostPaired(ctx context.Context, input ledger.PairedInput) (ledger.Journal, error)
}

// RolePort locates the accounts a bill payment posts against.
type RolePort interface {
	FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error)
}

// Service handles payables business logic.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	accounts RolePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. ledger and accounts may be nil, in
// which case bill payments skip general ledger posting.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, accounts RolePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledgerPort, accounts: accounts, logger: logger, now: time.Now}
}

// ListSuppliers returns suppliers.
func (s *Service) ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, includeInactive)
}

// CreateSupplier registers a supplier.
func (s *Service) CreateSupplier(ctx context.Context, in CreateSupplierInput) (Supplier, error) {
	if in.Name == "" {
		return Supplier{}, errors.New("ap: supplier name required")
	}
	return s.repo.CreateSupplier(ctx, in)
}

// ListBills returns bills, optionally for one supplier.
func (s *Service) ListBills(ctx context.Context, supplierID *int64) ([]Bill, error) {
	return s.repo.ListBills(ctx, supplierID)
}

// GetBill fetches a bill with its payments.
func (s *Service) GetBill(ctx context.Context, id int64) (Bill, []BillPayment, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return Bill{}, nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return Bill{}, nil, err
	}
	return bill, payments, nil
}

// CreateBill validates and records a bill.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (Bill, error) {
	if in.SupplierID == 0 {
		return Bill{}, errors.New("ap: supplier required")
	}
	if !in.Total.IsPositive() {
		return Bill{}, errors.New("ap: total must be positive")
	}
	if _, err := s.repo.GetSupplier(ctx, in.SupplierID); err != nil {
		return Bill{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.Date.AddDate(0, 0, 30)
	}
	if in.Number == "" {
		in.Number = fmt.Sprintf("BILL-%d", s.now().UnixNano())
	}
	return s.repo.CreateBill(ctx, in)
}

// PayBill applies a payment to an open bill and, when the ledger ports
// are wired, posts debit payables / credit bank. A posting failure
// after the payment committed comes back as *LedgerPostError so
// callers can warn instead of failing the payment.
func (s *Service) PayBill(ctx context.Context, in BillPaymentInput) (BillPayment, error) {
	if !in.Amount.IsPositive() {
		return BillPayment{}, errors.New("ap: amount must be positive")
	}
	bill, err := s.repo.GetBill(ctx, in.BillID)
	if err != nil {
		return BillPayment{}, err
	}
	if bill.Status != BillOpen {
		return BillPayment{}, ErrBillClosed
	}
	if in.Amount.GreaterThan(bill.Outstanding()) {
		return BillPayment{}, ErrOverpayment
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	newPaid := bill.Paid.Add(in.Amount)
	newStatus := BillOpen
	if newPaid.GreaterThanOrEqual(bill.Total) {
		newStatus = BillPaid
	}

	payment, err := s.repo.ApplyPayment(ctx, in, newPaid, newStatus)
	if err != nil {
		return BillPayment{}, err
	}

	if err := s.postPayment(ctx, bill, payment, in.ActorID); err != nil {
		s.logger.Warn("bill payment posted without journal",
			slog.Int64("bill_id", bill.ID),
			slog.Any("error", err))
		return payment, wrapLedgerPostError(err)
	}
	return payment, nil
}

func (s *Service) postPayment(ctx context.Context, bill Bill, payment BillPayment, actorID int64) error {
	if s.ledger == nil || s.accounts == nil {
		return nil
	}
	payable, err := s.accounts.FindAccountByRole(ctx, ledger.RolePayable)
	if err != nil {
		return fmt.Errorf("ap: payable account: %w", err)
	}
	bank, err := s.accounts.FindAccountByRole(ctx, ledger.RoleBank)
	if err != nil {
		return fmt.Errorf("ap: bank account: %w", err)
	}
	_, err = s.ledger.PostPaired(ctx, ledger.PairedInput{
		Date:            payment.Date,
		Amount:          payment.Amount,
		DebitAccountID:  payable.ID,
		CreditAccountID: bank.ID,
		Memo:            fmt.Sprintf("Payment for bill %s", bill.Number),
		SourceModule:    "AP",
		ActorID:         actorID,
	})
	return err
}

// Aging builds the payables aging report as of a cutoff. Only active
// suppliers are reported.
func (s *Service) Aging(ctx context.Context, cutoff time.Time) (AgingReport, error) {
	suppliers, err := s.repo.ListSuppliers(ctx, false)
	if err != nil {
		return AgingReport{}, err
	}
	bills, err := s.repo.ListBills(ctx, nil)
	if err != nil {
		return AgingReport{}, err
	}
	return BuildAging(suppliers, bills, cutoff), nil
}

// BalanceSummary lists per-supplier outstanding totals.
func (s *Service) BalanceSummary(ctx context.Context, cutoff time.Time) ([]BalanceSummaryRow, error) {
	suppliers, err := s.repo.ListSuppliers(ctx, false)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.ListBills(ctx, nil)
	if err != nil {
		return nil, err
	}
	return BuildBalanceSummary(suppliers, bills, cutoff), nil
}
