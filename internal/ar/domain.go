// Package ar tracks customers, invoices, and receipts, and builds the
// receivables aging report.
package ar

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceOpen InvoiceStatus = "OPEN"
	InvoicePaid InvoiceStatus = "PAID"
	InvoiceVoid InvoiceStatus = "VOID"
)

var (
	ErrCustomerNotFound = errors.New("ar: customer not found")
	ErrInvoiceNotFound  = errors.New("ar: invoice not found")
	ErrInvoiceClosed    = errors.New("ar: invoice is not open")
	ErrOverpayment      = errors.New("ar: receipt exceeds outstanding balance")
	ErrDuplicateNumber  = errors.New("ar: invoice number already exists")
)

// Customer is a billing party.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Invoice is a receivable. Paid accumulates receipts; the invoice
// flips to PAID once Paid covers Total.
type Invoice struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	CustomerID int64           `json:"customer_id"`
	Date       time.Time       `json:"date"`
	DueDate    time.Time       `json:"due_date"`
	Total      decimal.Decimal `json:"total"`
	Paid       decimal.Decimal `json:"paid"`
	Status     InvoiceStatus   `json:"status"`
	Memo       string          `json:"memo,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Outstanding returns the unpaid remainder. Void invoices owe nothing.
func (i Invoice) Outstanding() decimal.Decimal {
	if i.Status == InvoiceVoid {
		return decimal.Zero
	}
	return i.Total.Sub(i.Paid)
}

// Receipt is a payment received against an invoice.
type Receipt struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    string          `json:"method,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateCustomerInput carries a new customer.
type CreateCustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// CreateInvoiceInput carries a new invoice.
type CreateInvoiceInput struct {
	Number     string
	CustomerID int64
	Date       time.Time
	DueDate    time.Time
	Total      decimal.Decimal
	Memo       string
}

// ReceiptInput records a payment against an invoice.
type ReceiptInput struct {
	InvoiceID int64
	Amount    decimal.Decimal
	Date      time.Time
	Method    string
	Note      string
	ActorID   int64
}
