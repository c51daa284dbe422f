package ar

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type memoryRepo struct {
	customers map[int64]Customer
	invoices  map[int64]Invoice
	receipts  []Receipt
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer), invoices: make(map[int64]Invoice)}
}

func (m *memoryRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memoryRepo) ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if includeInactive || c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return Customer{}, ErrCustomerNotFound
}

func (m *memoryRepo) CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error) {
	c := Customer{ID: m.id(), Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, IsActive: true}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) ListInvoices(ctx context.Context, customerID *int64) ([]Invoice, error) {
	var out []Invoice
	for _, i := range m.invoices {
		if customerID == nil || i.CustomerID == *customerID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	if i, ok := m.invoices[id]; ok {
		return i, nil
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (m *memoryRepo) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	for _, i := range m.invoices {
		if i.Number == in.Number {
			return Invoice{}, ErrDuplicateNumber
		}
	}
	i := Invoice{
		ID:         m.id(),
		Number:     in.Number,
		CustomerID: in.CustomerID,
		Date:       in.Date,
		DueDate:    in.DueDate,
		Total:      in.Total,
		Paid:       decimal.Zero,
		Status:     InvoiceOpen,
		Memo:       in.Memo,
	}
	m.invoices[i.ID] = i
	return i, nil
}

func (m *memoryRepo) ApplyReceipt(ctx context.Context, in ReceiptInput, newPaid decimal.Decimal, newStatus InvoiceStatus) (Receipt, error) {
	invoice, ok := m.invoices[in.InvoiceID]
	if !ok {
		return Receipt{}, ErrInvoiceNotFound
	}
	invoice.Paid = newPaid
	invoice.Status = newStatus
	m.invoices[in.InvoiceID] = invoice
	receipt := Receipt{ID: m.id(), InvoiceID: in.InvoiceID, Amount: in.Amount, Date: in.Date, Method: in.Method, Note: in.Note}
	m.receipts = append(m.receipts, receipt)
	return receipt, nil
}

func (m *memoryRepo) ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	var out []Receipt
	for _, r := range m.receipts {
		if r.InvoiceID == invoiceID {
			out = append(out, r)
		}
	}
	return out, nil
}

type capturedPost struct {
	input ledger.PairedInput
}

type fakeLedger struct {
	posts []capturedPost
}

func (f *fakeLedger) PostPaired(ctx context.Context, input ledger.PairedInput) (ledger.Journal, error) {
	f.posts = append(f.posts, capturedPost{input: input})
	return ledger.Journal{ID: int64(len(f.posts))}, nil
}

type fakeRoles struct {
	accounts map[ledger.ReportingRole]ledger.Account
}

func (f *fakeRoles) FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error) {
	if a, ok := f.accounts[role]; ok {
		return a, nil
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func newTestService(repo *memoryRepo) (*Service, *fakeLedger) {
	posts := &fakeLedger{}
	roles := &fakeRoles{accounts: map[ledger.ReportingRole]ledger.Account{
		ledger.RoleBank:       {ID: 10, Code: "1000", Name: "Checking"},
		ledger.RoleReceivable: {ID: 11, Code: "1200", Name: "Accounts Receivable"},
	}}
	svc := NewService(repo, posts, roles, nil)
	svc.now = func() time.Time { return day("2024-06-30") }
	return svc, posts
}

func seedInvoice(t *testing.T, svc *Service, repo *memoryRepo, customer string, date string, total string) Invoice {
	t.Helper()
	c, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{Name: customer})
	require.NoError(t, err)
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		Number:     customer + "-" + date,
		CustomerID: c.ID,
		Date:       day(date),
		DueDate:    day(date).AddDate(0, 0, 30),
		Total:      d(total),
	})
	require.NoError(t, err)
	return inv
}

func TestRecordReceiptPartialThenFull(t *testing.T) {
	repo := newMemoryRepo()
	svc, posts := newTestService(repo)
	inv := seedInvoice(t, svc, repo, "Acme", "2024-06-01", "200")

	_, err := svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: inv.ID, Amount: d("80")})
	require.NoError(t, err)
	got, _ := repo.GetInvoice(context.Background(), inv.ID)
	require.Equal(t, InvoiceOpen, got.Status)
	require.True(t, got.Outstanding().Equal(d("120")))

	_, err = svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: inv.ID, Amount: d("120")})
	require.NoError(t, err)
	got, _ = repo.GetInvoice(context.Background(), inv.ID)
	require.Equal(t, InvoicePaid, got.Status)
	require.True(t, got.Outstanding().IsZero())

	// Each receipt posts debit bank / credit receivables.
	require.Len(t, posts.posts, 2)
	require.Equal(t, int64(10), posts.posts[0].input.DebitAccountID)
	require.Equal(t, int64(11), posts.posts[0].input.CreditAccountID)
	require.Equal(t, "AR", posts.posts[0].input.SourceModule)
}

func TestRecordReceiptGuards(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	inv := seedInvoice(t, svc, repo, "Acme", "2024-06-01", "100")

	_, err := svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: inv.ID, Amount: d("150")})
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: inv.ID, Amount: d("100")})
	require.NoError(t, err)
	_, err = svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: inv.ID, Amount: d("1")})
	require.ErrorIs(t, err, ErrInvoiceClosed)

	_, err = svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: 999, Amount: d("1")})
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestAgingBucketBoundaries(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	cutoff := day("2024-06-30")

	// Exactly 30 days old lands in 1-30; 31 days old in 31-60.
	seedInvoice(t, svc, repo, "Thirty", "2024-05-31", "100")
	seedInvoice(t, svc, repo, "ThirtyOne", "2024-05-30", "200")
	seedInvoice(t, svc, repo, "Today", "2024-06-30", "50")
	seedInvoice(t, svc, repo, "Ancient", "2024-01-15", "75")

	report, err := svc.Aging(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, report.Rows, 4)

	byName := map[string]AgingRow{}
	for _, row := range report.Rows {
		byName[row.Customer] = row
	}
	require.True(t, byName["Thirty"].Days1to30.Equal(d("100")))
	require.True(t, byName["ThirtyOne"].Days31to60.Equal(d("200")))
	require.True(t, byName["Today"].Current.Equal(d("50")))
	require.True(t, byName["Ancient"].Over90.Equal(d("75")))

	require.True(t, report.Totals.Total.Equal(d("425")))
	require.True(t, report.Totals.Days1to30.Equal(d("100")))
}

func TestAgingSkipsSettledAndFutureInvoices(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	cutoff := day("2024-06-30")

	paid := seedInvoice(t, svc, repo, "Settled", "2024-06-01", "60")
	_, err := svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: paid.ID, Amount: d("60")})
	require.NoError(t, err)
	seedInvoice(t, svc, repo, "Future", "2024-07-15", "500")

	report, err := svc.Aging(context.Background(), cutoff)
	require.NoError(t, err)
	require.Empty(t, report.Rows)
	require.True(t, report.Totals.Total.IsZero())
}

func TestAgingExcludesInactiveCustomers(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	cutoff := day("2024-06-30")

	seedInvoice(t, svc, repo, "Active Co", "2024-06-01", "100")
	gone := seedInvoice(t, svc, repo, "Gone Co", "2024-06-01", "250")

	// Deactivate the second customer; its outstanding invoice drops
	// out of the aging and the balance summary.
	c := repo.customers[gone.CustomerID]
	c.IsActive = false
	repo.customers[gone.CustomerID] = c

	report, err := svc.Aging(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "Active Co", report.Rows[0].Customer)
	require.True(t, report.Totals.Total.Equal(d("100")))

	rows, err := svc.BalanceSummary(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Active Co", rows[0].Customer)
}

func TestBalanceSummaryOmitsZeroBalances(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)

	open := seedInvoice(t, svc, repo, "Open Co", "2024-06-01", "300")
	_, err := svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: open.ID, Amount: d("100")})
	require.NoError(t, err)

	settled := seedInvoice(t, svc, repo, "Zero Co", "2024-06-01", "40")
	_, err = svc.RecordReceipt(context.Background(), ReceiptInput{InvoiceID: settled.ID, Amount: d("40")})
	require.NoError(t, err)

	rows, err := svc.BalanceSummary(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Open Co", rows[0].Customer)
	require.True(t, rows[0].Balance.Equal(d("200")))
}
