// Package ap tracks suppliers, bills, and bill payments, and builds
// the payables aging report.
package ap

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus enumerates bill lifecycle states.
type BillStatus string

const (
	BillOpen BillStatus = "OPEN"
	BillPaid BillStatus = "PAID"
	BillVoid BillStatus = "VOID"
)

var (
	ErrSupplierNotFound = errors.New("ap: supplier not found")
	ErrBillNotFound     = errors.New("ap: bill not found")
	ErrBillClosed       = errors.New("ap: bill is not open")
	ErrOverpayment      = errors.New("ap: payment exceeds outstanding balance")
	ErrDuplicateNumber  = errors.New("ap: bill number already exists")
)

// Supplier is a party we owe.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bill is a payable.
type Bill struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	SupplierID int64           `json:"supplier_id"`
	Date       time.Time       `json:"date"`
	DueDate    time.Time       `json:"due_date"`
	Total      decimal.Decimal `json:"total"`
	Paid       decimal.Decimal `json:"paid"`
	Status     BillStatus      `json:"status"`
	Memo       string          `json:"memo,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Outstanding returns the unpaid remainder. Void bills owe nothing.
func (b Bill) Outstanding() decimal.Decimal {
	if b.Status == BillVoid {
		return decimal.Zero
	}
	return b.Total.Sub(b.Paid)
}

// BillPayment is a payment made against a bill.
type BillPayment struct {
	ID        int64           `json:"id"`
	BillID    int64           `json:"bill_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    string          `json:"method,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSupplierInput carries a new supplier.
type CreateSupplierInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// CreateBillInput carries a new bill.
type CreateBillInput struct {
	Number     string
	SupplierID int64
	Date       time.Time
	DueDate    time.Time
	Total      decimal.Decimal
	Memo       string
}

// BillPaymentInput records a payment against a bill.
type BillPaymentInput struct {
	BillID  int64
	Amount  decimal.Decimal
	Date    time.Time
	Method  string
	Note    string
	ActorID int64
}
