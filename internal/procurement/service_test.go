package procurement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/ledger"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type memoryRepo struct {
	orders map[int64]PurchaseOrder
	lines  map[int64][]POLine
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]PurchaseOrder), lines: make(map[int64][]POLine)}
}

func (m *memoryRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memoryRepo) ListPOs(ctx context.Context, supplierID *int64) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range m.orders {
		if supplierID == nil || po.SupplierID == *supplierID {
			out = append(out, po)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	if po, ok := m.orders[id]; ok {
		return po, nil
	}
	return PurchaseOrder{}, ErrPONotFound
}

func (m *memoryRepo) ListLines(ctx context.Context, poID int64) ([]POLine, error) {
	return m.lines[poID], nil
}

func (m *memoryRepo) CreatePO(ctx context.Context, in CreatePOInput, total decimal.Decimal) (PurchaseOrder, error) {
	po := PurchaseOrder{
		ID: m.id(), Number: in.Number, SupplierID: in.SupplierID, Status: StatusDraft,
		OrderDate: in.OrderDate, ExpectedDate: in.ExpectedDate,
		Total: total, PaidAmount: decimal.Zero, Memo: in.Memo,
	}
	m.orders[po.ID] = po
	for _, l := range in.Lines {
		m.lines[po.ID] = append(m.lines[po.ID], POLine{
			ID: m.id(), POID: po.ID, ItemID: l.ItemID, Description: l.Description,
			Qty: l.Qty, ReceivedQty: decimal.Zero, UnitCost: l.UnitCost,
		})
	}
	return po, nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id int64, status POStatus) error {
	po, ok := m.orders[id]
	if !ok {
		return ErrPONotFound
	}
	po.Status = status
	m.orders[id] = po
	return nil
}

func (m *memoryRepo) ApplyReceipt(ctx context.Context, poID int64, lines []ReceiveLineInput, status POStatus) error {
	for _, rl := range lines {
		found := false
		for i, l := range m.lines[poID] {
			if l.ID == rl.LineID {
				m.lines[poID][i].ReceivedQty = l.ReceivedQty.Add(rl.Qty)
				found = true
				break
			}
		}
		if !found {
			return ErrLineNotFound
		}
	}
	return m.UpdateStatus(ctx, poID, status)
}

func (m *memoryRepo) ApplyPayment(ctx context.Context, poID int64, amount decimal.Decimal, at time.Time) error {
	po, ok := m.orders[poID]
	if !ok {
		return ErrPONotFound
	}
	po.PaidAmount = po.PaidAmount.Add(amount)
	m.orders[poID] = po
	return nil
}

type fakeStock struct {
	movements []inventory.MovementInput
	fail      error
}

func (f *fakeStock) Receive(ctx context.Context, in inventory.MovementInput) (inventory.Movement, error) {
	if f.fail != nil {
		return inventory.Movement{}, f.fail
	}
	f.movements = append(f.movements, in)
	return inventory.Movement{ItemID: in.ItemID, Qty: in.Qty, UnitCost: in.UnitCost}, nil
}

type fakeLedger struct {
	posts []ledger.PairedInput
}

func (f *fakeLedger) PostPaired(ctx context.Context, in ledger.PairedInput) (ledger.Journal, error) {
	f.posts = append(f.posts, in)
	return ledger.Journal{ID: int64(len(f.posts))}, nil
}

type fakeRoles struct{}

func (fakeRoles) FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error) {
	switch role {
	case ledger.RoleInventory:
		return ledger.Account{ID: 30}, nil
	case ledger.RoleBank:
		return ledger.Account{ID: 10}, nil
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func newTestService(repo *memoryRepo, stock *fakeStock, lp *fakeLedger) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var stockPort InventoryPort
	if stock != nil {
		stockPort = stock
	}
	var ledgerPort LedgerPort
	var roles RolePort
	if lp != nil {
		ledgerPort = lp
		roles = fakeRoles{}
	}
	return NewService(repo, stockPort, ledgerPort, roles, logger)
}

func createOpenOrder(t *testing.T, svc *Service) (PurchaseOrder, []POLine) {
	t.Helper()
	po, err := svc.CreatePO(context.Background(), CreatePOInput{
		SupplierID: 1,
		Number:     "PO-1001",
		Lines: []CreatePOLineInput{
			{ItemID: 7, Description: "Widget", Qty: d("10"), UnitCost: d("5.00")},
			{ItemID: 8, Description: "Gadget", Qty: d("4"), UnitCost: d("12.50")},
		},
	})
	require.NoError(t, err)
	po, err = svc.Open(context.Background(), po.ID)
	require.NoError(t, err)
	_, lines, err := svc.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	return po, lines
}

func TestCreatePOTotalsLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil, nil)

	po, lines := createOpenOrder(t, svc)
	require.Equal(t, StatusOpen, po.Status)
	require.True(t, po.Total.Equal(d("100.00")), "10*5 + 4*12.50, got %s", po.Total)
	require.Len(t, lines, 2)
}

func TestCreatePORejectsEmptyAndBadLines(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil, nil)

	_, err := svc.CreatePO(context.Background(), CreatePOInput{SupplierID: 1})
	require.ErrorIs(t, err, ErrNoLines)

	_, err = svc.CreatePO(context.Background(), CreatePOInput{
		SupplierID: 1,
		Lines:      []CreatePOLineInput{{ItemID: 7, Qty: d("0"), UnitCost: d("5")}},
	})
	require.Error(t, err)
}

func TestReceivePostsInventoryAndAdvancesStatus(t *testing.T) {
	repo := newMemoryRepo()
	stock := &fakeStock{}
	svc := newTestService(repo, stock, nil)
	po, lines := createOpenOrder(t, svc)

	po, err := svc.Receive(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, Qty: d("6")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, po.Status)
	require.Len(t, stock.movements, 1)
	require.Equal(t, int64(7), stock.movements[0].ItemID)
	require.True(t, stock.movements[0].Qty.Equal(d("6")))
	require.True(t, stock.movements[0].UnitCost.Equal(d("5.00")), "inbound posts at ordered cost")
	require.Equal(t, "PO", stock.movements[0].RefModule)

	po, err = svc.Receive(context.Background(), ReceiveInput{
		POID: po.ID,
		Lines: []ReceiveLineInput{
			{LineID: lines[0].ID, Qty: d("4")},
			{LineID: lines[1].ID, Qty: d("4")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, po.Status)
	require.Len(t, stock.movements, 3)

	po, err = svc.Close(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, po.Status)
}

func TestReceiveRejectsOverReceipt(t *testing.T) {
	repo := newMemoryRepo()
	stock := &fakeStock{}
	svc := newTestService(repo, stock, nil)
	po, lines := createOpenOrder(t, svc)

	_, err := svc.Receive(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, Qty: d("11")}},
	})
	require.ErrorIs(t, err, ErrOverReceipt)
	require.Empty(t, stock.movements)

	// Duplicated line entries count toward the same ordered quantity.
	_, err = svc.Receive(context.Background(), ReceiveInput{
		POID: po.ID,
		Lines: []ReceiveLineInput{
			{LineID: lines[0].ID, Qty: d("6")},
			{LineID: lines[0].ID, Qty: d("6")},
		},
	})
	require.ErrorIs(t, err, ErrOverReceipt)
}

func TestReceiveRequiresOpenOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil, nil)
	po, err := svc.CreatePO(context.Background(), CreatePOInput{
		SupplierID: 1,
		Lines:      []CreatePOLineInput{{ItemID: 7, Qty: d("1"), UnitCost: d("5")}},
	})
	require.NoError(t, err)
	lines, err := repo.ListLines(context.Background(), po.ID)
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), ReceiveInput{
		POID:  po.ID,
		Lines: []ReceiveLineInput{{LineID: lines[0].ID, Qty: d("1")}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRecordPaymentPostsPairedJournal(t *testing.T) {
	repo := newMemoryRepo()
	lp := &fakeLedger{}
	svc := newTestService(repo, nil, lp)
	po, _ := createOpenOrder(t, svc)

	po, err := svc.RecordPayment(context.Background(), PaymentInput{
		POID: po.ID, Amount: d("60.00"), ActorID: 3,
	})
	require.NoError(t, err)
	require.True(t, po.PaidAmount.Equal(d("60.00")))
	require.True(t, po.Outstanding().Equal(d("40.00")))

	require.Len(t, lp.posts, 1)
	post := lp.posts[0]
	require.Equal(t, int64(30), post.DebitAccountID, "debits the inventory account")
	require.Equal(t, int64(10), post.CreditAccountID, "credits the bank account")
	require.True(t, post.Amount.Equal(d("60.00")))
	require.Equal(t, "PO", post.SourceModule)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{POID: po.ID, Amount: d("50.00")})
	require.ErrorIs(t, err, ErrOverpayment)
}

func TestRecordPaymentRejectsDraftAndCancelled(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil, nil)
	po, err := svc.CreatePO(context.Background(), CreatePOInput{
		SupplierID: 1,
		Lines:      []CreatePOLineInput{{ItemID: 7, Qty: d("1"), UnitCost: d("5")}},
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{POID: po.ID, Amount: d("5")})
	require.ErrorIs(t, err, ErrInvalidState)

	po, err = svc.Cancel(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, po.Status)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{POID: po.ID, Amount: d("5")})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestTransitionGuards(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil, nil)
	po, _ := createOpenOrder(t, svc)

	// An open order with outstanding receipts cannot close.
	_, err := svc.Close(context.Background(), po.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	// Opening twice is a no-op state error.
	_, err = svc.Open(context.Background(), po.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Open(context.Background(), 999)
	require.ErrorIs(t, err, ErrPONotFound)
}
