package ar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// RepositoryPort defines data access for receivables.
type RepositoryPort interface {
	ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error)
	ListInvoices(ctx context.Context, customerID *int64) ([]Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error)
	ApplyReceipt(ctx context.Context, in ReceiptInput, newPaid decimal.Decimal, newStatus InvoiceStatus) (Receipt, error)
	ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error)
}

// LedgerPort posts receipt journals to the general ledger.
type LedgerPort interface {
	PostPaired(ctx context.Context, input ledger.PairedInput) (ledger.Journal, error)
}

// RolePort locates the accounts a receipt posts against.
type RolePort interface {
	FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error)
}

// Service handles receivables business logic.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	accounts RolePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. ledger and accounts may be nil, in
// which case receipts skip general ledger posting.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, accounts RolePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledgerPort, accounts: accounts, logger: logger, now: time.Now}
}

// ListCustomers returns customers.
func (s *Service) ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, includeInactive)
}

// CreateCustomer registers a customer.
func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error) {
	if in.Name == "" {
		return Customer{}, errors.New("ar: customer name required")
	}
	return s.repo.CreateCustomer(ctx, in)
}

// ListInvoices returns invoices, optionally for one customer.
func (s *Service) ListInvoices(ctx context.Context, customerID *int64) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, customerID)
}

// GetInvoice fetches an invoice with its receipts.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, []Receipt, error) {
	invoice, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	return invoice, receipts, nil
}

// CreateInvoice validates and records an invoice.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if in.CustomerID == 0 {
		return Invoice{}, errors.New("ar: customer required")
	}
	if !in.Total.IsPositive() {
		return Invoice{}, errors.New("ar: total must be positive")
	}
	if _, err := s.repo.GetCustomer(ctx, in.CustomerID); err != nil {
		return Invoice{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.Date.AddDate(0, 0, 30)
	}
	if in.Number == "" {
		in.Number = fmt.Sprintf("INV-%d", s.now().UnixNano())
	}
	return s.repo.CreateInvoice(ctx, in)
}

// RecordReceipt applies a payment to an open invoice and, when the
// ledger ports are wired, posts debit bank / credit receivables.
func (s *Service) RecordReceipt(ctx context.Context, in ReceiptInput) (Receipt, error) {
	if !in.Amount.IsPositive() {
		return Receipt{}, errors.New("ar: amount must be positive")
	}
	invoice, err := s.repo.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return Receipt{}, err
	}
	if invoice.Status != InvoiceOpen {
		return Receipt{}, ErrInvoiceClosed
	}
	if in.Amount.GreaterThan(invoice.Outstanding()) {
		return Receipt{}, ErrOverpayment
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	newPaid := invoice.Paid.Add(in.Amount)
	newStatus := InvoiceOpen
	if newPaid.GreaterThanOrEqual(invoice.Total) {
		newStatus = InvoicePaid
	}

	receipt, err := s.repo.ApplyReceipt(ctx, in, newPaid, newStatus)
	if err != nil {
		return Receipt{}, err
	}

	if err := s.postReceipt(ctx, invoice, receipt, in.ActorID); err != nil {
		// The receipt is recorded; the journal is caught up by the
		// reconcile job. Surface the drift in the log.
		s.logger.Warn("receipt posted without journal",
			slog.Int64("invoice_id", invoice.ID),
			slog.Any("error", err))
	}
	return receipt, nil
}

func (s *Service) postReceipt(ctx context.Context, invoice Invoice, receipt Receipt, actorID int64) error {
	if s.ledger == nil || s.accounts == nil {
		return nil
	}
	bank, err := s.accounts.FindAccountByRole(ctx, ledger.RoleBank)
	if err != nil {
		return fmt.Errorf("ar: bank account: %w", err)
	}
	receivable, err := s.accounts.FindAccountByRole(ctx, ledger.RoleReceivable)
	if err != nil {
		return fmt.Errorf("ar: receivable account: %w", err)
	}
	_, err = s.ledger.PostPaired(ctx, ledger.PairedInput{
		Date:            receipt.Date,
		Amount:          receipt.Amount,
		DebitAccountID:  bank.ID,
		CreditAccountID: receivable.ID,
		Memo:            fmt.Sprintf("Receipt for invoice %s", invoice.Number),
		SourceModule:    "AR",
		ActorID:         actorID,
	})
	return err
}

// Aging builds the receivables aging report as of a cutoff. Only
// active customers are reported.
func (s *Service) Aging(ctx context.Context, cutoff time.Time) (AgingReport, error) {
	customers, err := s.repo.ListCustomers(ctx, false)
	if err != nil {
		return AgingReport{}, err
	}
	invoices, err := s.repo.ListInvoices(ctx, nil)
	if err != nil {
		return AgingReport{}, err
	}
	return BuildAging(customers, invoices, cutoff), nil
}

// BalanceSummary lists per-customer outstanding totals.
func (s *Service) BalanceSummary(ctx context.Context, cutoff time.Time) ([]BalanceSummaryRow, error) {
	customers, err := s.repo.ListCustomers(ctx, false)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.ListInvoices(ctx, nil)
	if err != nil {
		return nil, err
	}
	return BuildBalanceSummary(customers, invoices, cutoff), nil
}
