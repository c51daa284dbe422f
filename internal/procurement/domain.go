// Package procurement manages the purchase-order lifecycle: draft
// orders with item lines, receiving against inventory, and payment
// posting against the general ledger.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// POStatus is the purchase-order workflow state.
type POStatus string

const (
	StatusDraft     POStatus = "DRAFT"
	StatusOpen      POStatus = "OPEN"
	StatusPartial   POStatus = "PARTIAL"
	StatusReceived  POStatus = "RECEIVED"
	StatusClosed    POStatus = "CLOSED"
	StatusCancelled POStatus = "CANCELLED"
)

var (
	ErrPONotFound   = errors.New("procurement: purchase order not found")
	ErrLineNotFound = errors.New("procurement: purchase order line not found")
	ErrInvalidState = errors.New("procurement: operation not allowed in current status")
	ErrOverReceipt  = errors.New("procurement: received quantity exceeds ordered quantity")
	ErrOverpayment  = errors.New("procurement: payment exceeds outstanding amount")
	ErrNoLines      = errors.New("procurement: purchase order needs at least one line")
)

// PurchaseOrder is the order header. Total is the sum of line totals;
// PaidAmount accumulates recorded payments.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	SupplierID   int64           `json:"supplier_id"`
	Status       POStatus        `json:"status"`
	OrderDate    time.Time       `json:"order_date"`
	ExpectedDate *time.Time      `json:"expected_date,omitempty"`
	Total        decimal.Decimal `json:"total"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Memo         string          `json:"memo,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Outstanding is the unpaid remainder.
func (po PurchaseOrder) Outstanding() decimal.Decimal {
	return po.Total.Sub(po.PaidAmount)
}

// POLine is one ordered item with receiving progress.
type POLine struct {
	ID          int64           `json:"id"`
	POID        int64           `json:"po_id"`
	ItemID      int64           `json:"item_id"`
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// LineTotal is ordered quantity times unit cost.
func (l POLine) LineTotal() decimal.Decimal {
	return l.Qty.Mul(l.UnitCost)
}

// Remaining is the quantity still expected.
func (l POLine) Remaining() decimal.Decimal {
	return l.Qty.Sub(l.ReceivedQty)
}

// CreatePOLineInput is one line of a new order.
type CreatePOLineInput struct {
	ItemID      int64
	Description string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
}

// CreatePOInput carries a new purchase order.
type CreatePOInput struct {
	SupplierID   int64
	Number       string
	OrderDate    time.Time
	ExpectedDate *time.Time
	Memo         string
	Lines        []CreatePOLineInput
	ActorID      int64
}

// ReceiveLineInput is one received quantity against an order line.
type ReceiveLineInput struct {
	LineID int64
	Qty    decimal.Decimal
}

// ReceiveInput carries a receiving event.
type ReceiveInput struct {
	POID    int64
	Lines   []ReceiveLineInput
	Note    string
	ActorID int64
}

// PaymentInput carries a payment against an order.
type PaymentInput struct {
	POID    int64
	Amount  decimal.Decimal
	Date    time.Time
	Memo    string
	ActorID int64
}
