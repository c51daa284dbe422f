package ap

import (
	"context"
	"errors"
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
	suppliers map[int64]Supplier
	bills     map[int64]Bill
	payments  []BillPayment
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: make(map[int64]Supplier), bills: make(map[int64]Bill)}
}

func (m *memoryRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memoryRepo) ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error) {
	var out []Supplier
	for _, s := range m.suppliers {
		if includeInactive || s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	if s, ok := m.suppliers[id]; ok {
		return s, nil
	}
	return Supplier{}, ErrSupplierNotFound
}

func (m *memoryRepo) CreateSupplier(ctx context.Context, in CreateSupplierInput) (Supplier, error) {
	s := Supplier{ID: m.id(), Name: in.Name, IsActive: true}
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *memoryRepo) ListBills(ctx context.Context, supplierID *int64) ([]Bill, error) {
	var out []Bill
	for _, b := range m.bills {
		if supplierID == nil || b.SupplierID == *supplierID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetBill(ctx context.Context, id int64) (Bill, error) {
	if b, ok := m.bills[id]; ok {
		return b, nil
	}
	return Bill{}, ErrBillNotFound
}

func (m *memoryRepo) CreateBill(ctx context.Context, in CreateBillInput) (Bill, error) {
	for _, b := range m.bills {
		if b.Number == in.Number {
			return Bill{}, ErrDuplicateNumber
		}
	}
	b := Bill{
		ID:         m.id(),
		Number:     in.Number,
		SupplierID: in.SupplierID,
		Date:       in.Date,
		DueDate:    in.DueDate,
		Total:      in.Total,
		Paid:       decimal.Zero,
		Status:     BillOpen,
		Memo:       in.Memo,
	}
	m.bills[b.ID] = b
	return b, nil
}

func (m *memoryRepo) ApplyPayment(ctx context.Context, in BillPaymentInput, newPaid decimal.Decimal, newStatus BillStatus) (BillPayment, error) {
	bill, ok := m.bills[in.BillID]
	if !ok {
		return BillPayment{}, ErrBillNotFound
	}
	bill.Paid = newPaid
	bill.Status = newStatus
	m.bills[in.BillID] = bill
	p := BillPayment{ID: m.id(), BillID: in.BillID, Amount: in.Amount, Date: in.Date, Method: in.Method, Note: in.Note}
	m.payments = append(m.payments, p)
	return p, nil
}

func (m *memoryRepo) ListPayments(ctx context.Context, billID int64) ([]BillPayment, error) {
	var out []BillPayment
	for _, p := range m.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeLedger struct {
	posts []ledger.PairedInput
	fail  error
}

func (f *fakeLedger) PostPaired(ctx context.Context, input ledger.PairedInput) (ledger.Journal, error) {
	if f.fail != nil {
		return ledger.Journal{}, f.fail
	}
	f.posts = append(f.posts, input)
	return ledger.Journal{ID: int64(len(f.posts))}, nil
}

type fakeRoles struct{}

func (fakeRoles) FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error) {
	switch role {
	case ledger.RoleBank:
		return ledger.Account{ID: 10, Code: "1000", Name: "Checking"}, nil
	case ledger.RolePayable:
		return ledger.Account{ID: 20, Code: "2000", Name: "Accounts Payable"}, nil
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func newTestService(repo *memoryRepo) (*Service, *fakeLedger) {
	posts := &fakeLedger{}
	svc := NewService(repo, posts, fakeRoles{}, nil)
	svc.now = func() time.Time { return day("2024-06-30") }
	return svc, posts
}

func seedBill(t *testing.T, svc *Service, supplier, date, total string) Bill {
	t.Helper()
	s, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{Name: supplier})
	require.NoError(t, err)
	bill, err := svc.CreateBill(context.Background(), CreateBillInput{
		Number:     supplier + "-" + date,
		SupplierID: s.ID,
		Date:       day(date),
		Total:      d(total),
	})
	require.NoError(t, err)
	return bill
}

func TestPayBillPostsDebitPayableCreditBank(t *testing.T) {
	repo := newMemoryRepo()
	svc, posts := newTestService(repo)
	bill := seedBill(t, svc, "Paper Co", "2024-06-01", "250")

	payment, err := svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("250")})
	require.NoError(t, err)
	require.True(t, payment.Amount.Equal(d("250")))

	got, _ := repo.GetBill(context.Background(), bill.ID)
	require.Equal(t, BillPaid, got.Status)

	require.Len(t, posts.posts, 1)
	require.Equal(t, int64(20), posts.posts[0].DebitAccountID)
	require.Equal(t, int64(10), posts.posts[0].CreditAccountID)
	require.Equal(t, "AP", posts.posts[0].SourceModule)
}

func TestPayBillSurvivesPostingFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc, posts := newTestService(repo)
	posts.fail = errors.New("ledger down")
	bill := seedBill(t, svc, "Paper Co", "2024-06-01", "100")

	payment, err := svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("100")})

	var postErr *LedgerPostError
	require.ErrorAs(t, err, &postErr)
	require.True(t, payment.Amount.Equal(d("100")))

	// The payment itself stuck.
	got, _ := repo.GetBill(context.Background(), bill.ID)
	require.Equal(t, BillPaid, got.Status)
}

func TestPayBillGuards(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	bill := seedBill(t, svc, "Paper Co", "2024-06-01", "100")

	_, err := svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("120")})
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.PayBill(context.Background(), BillPaymentInput{BillID: 999, Amount: d("10")})
	require.ErrorIs(t, err, ErrBillNotFound)

	_, err = svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("100")})
	require.NoError(t, err)
	_, err = svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("1")})
	require.ErrorIs(t, err, ErrBillClosed)
}

func TestAPAgingBoundaries(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	cutoff := day("2024-06-30")

	seedBill(t, svc, "Thirty", "2024-05-31", "300")
	seedBill(t, svc, "ThirtyOne", "2024-05-30", "400")

	report, err := svc.Aging(context.Background(), cutoff)
	require.NoError(t, err)

	byName := map[string]AgingRow{}
	for _, row := range report.Rows {
		byName[row.Supplier] = row
	}
	require.True(t, byName["Thirty"].Days1to30.Equal(d("300")))
	require.True(t, byName["ThirtyOne"].Days31to60.Equal(d("400")))
	require.True(t, report.Totals.Total.Equal(d("700")))
}

func TestAPAgingExcludesInactiveSuppliers(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	cutoff := day("2024-06-30")

	seedBill(t, svc, "Active Vendor", "2024-06-01", "300")
	gone := seedBill(t, svc, "Gone Vendor", "2024-06-01", "450")

	// Deactivate the second supplier; its open bill drops out of the
	// aging and the balance summary.
	s := repo.suppliers[gone.SupplierID]
	s.IsActive = false
	repo.suppliers[gone.SupplierID] = s

	report, err := svc.Aging(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "Active Vendor", report.Rows[0].Supplier)
	require.True(t, report.Totals.Total.Equal(d("300")))

	rows, err := svc.BalanceSummary(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Active Vendor", rows[0].Supplier)
}

func TestVendorBalanceSummary(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)

	bill := seedBill(t, svc, "Open Vendor", "2024-06-01", "500")
	_, err := svc.PayBill(context.Background(), BillPaymentInput{BillID: bill.ID, Amount: d("200")})
	require.NoError(t, err)

	settled := seedBill(t, svc, "Settled Vendor", "2024-06-01", "80")
	_, err = svc.PayBill(context.Background(), BillPaymentInput{BillID: settled.ID, Amount: d("80")})
	require.NoError(t, err)

	rows, err := svc.BalanceSummary(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Open Vendor", rows[0].Supplier)
	require.True(t, rows[0].Balance.Equal(d("300")))
}
