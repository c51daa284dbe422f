package ar

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for receivables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, phone, address, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCustomers returns customers, active ones unless includeInactive.
func (r *Repository) ListCustomers(ctx context.Context, includeInactive bool) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ar: list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("ar: scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCustomer fetches one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrCustomerNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("ar: get customer: %w", err)
	}
	return c, nil
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, now(), now())
		RETURNING `+customerColumns,
		in.Name, in.Email, in.Phone, in.Address)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, fmt.Errorf("ar: create customer: %w", err)
	}
	return c, nil
}

const invoiceColumns = `id, number, customer_id, date, due_date, total, paid, status, memo, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(&i.ID, &i.Number, &i.CustomerID, &i.Date, &i.DueDate, &i.Total, &i.Paid, &i.Status, &i.Memo, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// ListInvoices returns invoices, optionally filtered to one customer.
func (r *Repository) ListInvoices(ctx context.Context, customerID *int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM ar_invoices
		WHERE $1::bigint IS NULL OR customer_id = $1
		ORDER BY date, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("ar: list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("ar: scan invoice: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// GetInvoice fetches one invoice.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE id = $1`, id)
	i, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("ar: get invoice: %w", err)
	}
	return i, nil
}

// CreateInvoice inserts an open invoice.
func (r *Repository) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ar_invoices (number, customer_id, date, due_date, total, paid, status, memo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, now(), now())
		RETURNING `+invoiceColumns,
		in.Number, in.CustomerID, in.Date, in.DueDate, in.Total, InvoiceOpen, in.Memo)
	i, err := scanInvoice(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Invoice{}, ErrDuplicateNumber
		}
		return Invoice{}, fmt.Errorf("ar: create invoice: %w", err)
	}
	return i, nil
}

// ApplyReceipt inserts a receipt and bumps the invoice's paid total
// and status in one transaction.
func (r *Repository) ApplyReceipt(ctx context.Context, in ReceiptInput, newPaid decimal.Decimal, newStatus InvoiceStatus) (Receipt, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Receipt{}, fmt.Errorf("ar: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var receipt Receipt
	err = tx.QueryRow(ctx, `
		INSERT INTO ar_receipts (invoice_id, amount, date, method, note, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, invoice_id, amount, date, method, note, created_at`,
		in.InvoiceID, in.Amount, in.Date, in.Method, in.Note,
	).Scan(&receipt.ID, &receipt.InvoiceID, &receipt.Amount, &receipt.Date, &receipt.Method, &receipt.Note, &receipt.CreatedAt)
	if err != nil {
		return Receipt{}, fmt.Errorf("ar: insert receipt: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ar_invoices SET paid = $2, status = $3, updated_at = now()
		WHERE id = $1`, in.InvoiceID, newPaid, newStatus)
	if err != nil {
		return Receipt{}, fmt.Errorf("ar: update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Receipt{}, ErrInvoiceNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, fmt.Errorf("ar: commit: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns receipts for an invoice in order.
func (r *Repository) ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, amount, date, method, note, created_at
		FROM ar_receipts
		WHERE invoice_id = $1
		ORDER BY date, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ar: list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var rec Receipt
		if err := rows.Scan(&rec.ID, &rec.InvoiceID, &rec.Amount, &rec.Date, &rec.Method, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ar: scan receipt: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
