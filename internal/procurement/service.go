package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/ledger"
)

// RepositoryPort defines data access for purchase orders.
type RepositoryPort interface {
	ListPOs(ctx context.Context, supplierID *int64) ([]PurchaseOrder, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	ListLines(ctx context.Context, poID int64) ([]POLine, error)
	CreatePO(ctx context.Context, in CreatePOInput, total decimal.Decimal) (PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id int64, status POStatus) error
	ApplyReceipt(ctx context.Context, poID int64, lines []ReceiveLineInput, status POStatus) error
	ApplyPayment(ctx context.Context, poID int64, amount decimal.Decimal, at time.Time) error
}

// InventoryPort posts inbound stock for received lines.
type InventoryPort interface {
	Receive(ctx context.Context, in inventory.MovementInput) (inventory.Movement, error)
}

// LedgerPort posts payment journals to the general ledger.
type LedgerPort interface {
	PostPaired(ctx context.Context, input ledger.PairedInput) (ledger.Journal, error)
}

// RolePort locates the accounts a payment posts against.
type RolePort interface {
	FindAccountByRole(ctx context.Context, role ledger.ReportingRole) (ledger.Account, error)
}

// Service drives the purchase-order workflow.
type Service struct {
	repo     RepositoryPort
	stock    InventoryPort
	ledger   LedgerPort
	accounts RolePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. stock, ledger and accounts may be nil;
// receiving and payment then skip the respective posting.
func NewService(repo RepositoryPort, stock InventoryPort, ledgerPort LedgerPort, accounts RolePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, ledger: ledgerPort, accounts: accounts, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListPOs returns orders, optionally for one supplier.
func (s *Service) ListPOs(ctx context.Context, supplierID *int64) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx, supplierID)
}

// GetPO fetches an order with its lines.
func (s *Service) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POLine, error) {
	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

// CreatePO validates lines, totals them, and records a draft order.
func (s *Service) CreatePO(ctx context.Context, in CreatePOInput) (PurchaseOrder, error) {
	if in.SupplierID == 0 {
		return PurchaseOrder{}, errors.New("procurement: supplier required")
	}
	if len(in.Lines) == 0 {
		return PurchaseOrder{}, ErrNoLines
	}
	total := decimal.Zero
	for _, l := range in.Lines {
		if !l.Qty.IsPositive() {
			return PurchaseOrder{}, errors.New("procurement: line quantity must be positive")
		}
		if l.UnitCost.IsNegative() {
			return PurchaseOrder{}, errors.New("procurement: line unit cost must not be negative")
		}
		total = total.Add(l.Qty.Mul(l.UnitCost))
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = s.now()
	}
	if in.Number == "" {
		in.Number = fmt.Sprintf("PO-%d", s.now().UnixNano())
	}
	return s.repo.CreatePO(ctx, in, total)
}

// Open releases a draft order for receiving.
func (s *Service) Open(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, id, StatusOpen, StatusDraft)
}

// Close finishes an order. Only fully received orders can close.
func (s *Service) Close(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, id, StatusClosed, StatusReceived)
}

// Cancel voids an order that has not received stock yet.
func (s *Service) Cancel(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, id, StatusCancelled, StatusDraft, StatusOpen)
}

func (s *Service) transition(ctx context.Context, id int64, to POStatus, from ...POStatus) (PurchaseOrder, error) {
	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	allowed := false
	for _, f := range from {
		if po.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return PurchaseOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidState, po.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = to
	return po, nil
}

// Receive records received quantities against an open order, posts the
// inbound inventory movements at the ordered unit cost, and advances
// the order to PARTIAL or RECEIVED.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return PurchaseOrder{}, errors.New("procurement: nothing to receive")
	}
	po, err := s.repo.GetPO(ctx, in.POID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusOpen && po.Status != StatusPartial {
		return PurchaseOrder{}, fmt.Errorf("%w: cannot receive against %s order", ErrInvalidState, po.Status)
	}
	lines, err := s.repo.ListLines(ctx, in.POID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	byID := make(map[int64]POLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}

	received := make(map[int64]decimal.Decimal, len(in.Lines))
	for _, rl := range in.Lines {
		line, ok := byID[rl.LineID]
		if !ok {
			return PurchaseOrder{}, ErrLineNotFound
		}
		if !rl.Qty.IsPositive() {
			return PurchaseOrder{}, inventory.ErrInvalidQuantity
		}
		total := received[line.ID].Add(rl.Qty)
		if line.ReceivedQty.Add(total).GreaterThan(line.Qty) {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d", ErrOverReceipt, line.ID)
		}
		received[line.ID] = total
	}

	fullyReceived := true
	for _, l := range lines {
		after := l.ReceivedQty.Add(received[l.ID])
		if after.LessThan(l.Qty) {
			fullyReceived = false
			break
		}
	}
	status := StatusPartial
	if fullyReceived {
		status = StatusReceived
	}
	if err := s.repo.ApplyReceipt(ctx, in.POID, in.Lines, status); err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = status

	if s.stock != nil {
		for _, rl := range in.Lines {
			line := byID[rl.LineID]
			if line.ItemID == 0 {
				continue
			}
			_, err := s.stock.Receive(ctx, inventory.MovementInput{
				ItemID:    line.ItemID,
				Qty:       rl.Qty,
				UnitCost:  line.UnitCost,
				Note:      receiptNote(po.Number, in.Note),
				RefModule: "PO",
				RefID:     strconv.FormatInt(po.ID, 10),
				ActorID:   in.ActorID,
			})
			if err != nil {
				s.logger.Warn("received quantity recorded without stock movement",
					"po_id", po.ID, "line_id", line.ID, "item_id", line.ItemID, "error", err)
			}
		}
	}
	return po, nil
}

func receiptNote(number, note string) string {
	if note != "" {
		return note
	}
	return "Receipt for " + number
}

// RecordPayment applies a payment to a released order and posts debit
// inventory / credit bank through the ledger. Drafts and cancelled
// orders cannot be paid; payments cannot exceed the order total.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (PurchaseOrder, error) {
	if !in.Amount.IsPositive() {
		return PurchaseOrder{}, errors.New("procurement: amount must be positive")
	}
	po, err := s.repo.GetPO(ctx, in.POID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status == StatusDraft || po.Status == StatusCancelled {
		return PurchaseOrder{}, fmt.Errorf("%w: cannot pay %s order", ErrInvalidState, po.Status)
	}
	if in.Amount.GreaterThan(po.Outstanding()) {
		return PurchaseOrder{}, ErrOverpayment
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if err := s.repo.ApplyPayment(ctx, po.ID, in.Amount, s.now()); err != nil {
		return PurchaseOrder{}, err
	}
	po.PaidAmount = po.PaidAmount.Add(in.Amount)

	if s.ledger != nil && s.accounts != nil {
		if err := s.postPayment(ctx, po, in); err != nil {
			s.logger.Warn("purchase order payment recorded without journal",
				"po_id", po.ID, "amount", in.Amount.StringFixed(2), "error", err)
		}
	}
	return po, nil
}

func (s *Service) postPayment(ctx context.Context, po PurchaseOrder, in PaymentInput) error {
	inventoryAcct, err := s.accounts.FindAccountByRole(ctx, ledger.RoleInventory)
	if err != nil {
		return err
	}
	bank, err := s.accounts.FindAccountByRole(ctx, ledger.RoleBank)
	if err != nil {
		return err
	}
	memo := in.Memo
	if memo == "" {
		memo = "Payment for " + po.Number
	}
	_, err = s.ledger.PostPaired(ctx, ledger.PairedInput{
		Date:            in.Date,
		Amount:          in.Amount,
		DebitAccountID:  inventoryAcct.ID,
		CreditAccountID: bank.ID,
		Memo:            memo,
		SourceModule:    "PO",
		SourceID:        uuid.New(),
		ActorID:         in.ActorID,
	})
	return err
}
