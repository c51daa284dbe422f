package ap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for payables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, name, email, phone, address, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ListSuppliers returns suppliers, active ones unless includeInactive.
func (r *Repository) ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ap: list suppliers: %w", err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("ap: scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSupplier fetches one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
	s, err := scanSupplier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("ap: get supplier: %w", err)
	}
	return s, nil
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, in CreateSupplierInput) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, email, phone, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, now(), now())
		RETURNING `+supplierColumns,
		in.Name, in.Email, in.Phone, in.Address)
	s, err := scanSupplier(row)
	if err != nil {
		return Supplier{}, fmt.Errorf("ap: create supplier: %w", err)
	}
	return s, nil
}

const billColumns = `id, number, supplier_id, date, due_date, total, paid, status, memo, created_at, updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.Number, &b.SupplierID, &b.Date, &b.DueDate, &b.Total, &b.Paid, &b.Status, &b.Memo, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// ListBills returns bills, optionally filtered to one supplier.
func (r *Repository) ListBills(ctx context.Context, supplierID *int64) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM ap_bills
		WHERE $1::bigint IS NULL OR supplier_id = $1
		ORDER BY date, id`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("ap: list bills: %w", err)
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("ap: scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBill fetches one bill.
func (r *Repository) GetBill(ctx context.Context, id int64) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM ap_bills WHERE id = $1`, id)
	b, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrBillNotFound
	}
	if err != nil {
		return Bill{}, fmt.Errorf("ap: get bill: %w", err)
	}
	return b, nil
}

// CreateBill inserts an open bill.
func (r *Repository) CreateBill(ctx context.Context, in CreateBillInput) (Bill, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ap_bills (number, supplier_id, date, due_date, total, paid, status, memo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, now(), now())
		RETURNING `+billColumns,
		in.Number, in.SupplierID, in.Date, in.DueDate, in.Total, BillOpen, in.Memo)
	b, err := scanBill(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Bill{}, ErrDuplicateNumber
		}
		return Bill{}, fmt.Errorf("ap: create bill: %w", err)
	}
	return b, nil
}

// ApplyPayment inserts a bill payment and bumps the bill's paid total
// and status in one transaction.
func (r *Repository) ApplyPayment(ctx context.Context, in BillPaymentInput, newPaid decimal.Decimal, newStatus BillStatus) (BillPayment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return BillPayment{}, fmt.Errorf("ap: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var payment BillPayment
	err = tx.QueryRow(ctx, `
		INSERT INTO ap_bill_payments (bill_id, amount, date, method, note, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, bill_id, amount, date, method, note, created_at`,
		in.BillID, in.Amount, in.Date, in.Method, in.Note,
	).Scan(&payment.ID, &payment.BillID, &payment.Amount, &payment.Date, &payment.Method, &payment.Note, &payment.CreatedAt)
	if err != nil {
		return BillPayment{}, fmt.Errorf("ap: insert payment: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ap_bills SET paid = $2, status = $3, updated_at = now()
		WHERE id = $1`, in.BillID, newPaid, newStatus)
	if err != nil {
		return BillPayment{}, fmt.Errorf("ap: update bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return BillPayment{}, ErrBillNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return BillPayment{}, fmt.Errorf("ap: commit: %w", err)
	}
	return payment, nil
}

// ListPayments returns payments for a bill in order.
func (r *Repository) ListPayments(ctx context.Context, billID int64) ([]BillPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, bill_id, amount, date, method, note, created_at
		FROM ap_bill_payments
		WHERE bill_id = $1
		ORDER BY date, id`, billID)
	if err != nil {
		return nil, fmt.Errorf("ap: list payments: %w", err)
	}
	defer rows.Close()

	var out []BillPayment
	for rows.Next() {
		var p BillPayment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Date, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ap: scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
