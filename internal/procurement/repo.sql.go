package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository persists purchase orders and their lines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const poColumns = `id, number, supplier_id, status, order_date, expected_date, total, paid_amount, memo, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.OrderDate, &po.ExpectedDate, &po.Total, &po.PaidAmount, &po.Memo, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

// ListPOs returns orders for one supplier or all, newest first.
func (r *Repository) ListPOs(ctx context.Context, supplierID *int64) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders
WHERE $1::bigint IS NULL OR supplier_id=$1 ORDER BY order_date DESC, id DESC`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// GetPO fetches one order header.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrPONotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

// ListLines returns an order's lines in insertion order.
func (r *Repository) ListLines(ctx context.Context, poID int64) ([]POLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, item_id, description, qty, received_qty, unit_cost
FROM purchase_order_lines WHERE po_id=$1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []POLine
	for rows.Next() {
		var l POLine
		if err := rows.Scan(&l.ID, &l.POID, &l.ItemID, &l.Description, &l.Qty, &l.ReceivedQty, &l.UnitCost); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreatePO inserts the header and all lines in one transaction.
func (r *Repository) CreatePO(ctx context.Context, in CreatePOInput, total decimal.Decimal) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, supplier_id, status, order_date, expected_date, total, paid_amount, memo)
VALUES ($1,$2,$3,$4,$5,$6,0,$7) RETURNING `+poColumns,
			in.Number, in.SupplierID, StatusDraft, in.OrderDate, in.ExpectedDate, total, in.Memo)
		var err error
		po, err = scanPO(row)
		if err != nil {
			return err
		}
		for _, l := range in.Lines {
			_, err := tx.Exec(ctx, `INSERT INTO purchase_order_lines (po_id, item_id, description, qty, received_qty, unit_cost)
VALUES ($1,$2,$3,$4,0,$5)`, po.ID, l.ItemID, l.Description, l.Qty, l.UnitCost)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return PurchaseOrder{}, errors.New("procurement: order number already exists")
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

// UpdateStatus moves the order to a new workflow state.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status POStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPONotFound
	}
	return nil
}

// ApplyReceipt bumps received quantities on the given lines and moves
// the order status, all in one transaction.
func (r *Repository) ApplyReceipt(ctx context.Context, poID int64, lines []ReceiveLineInput, status POStatus) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, l := range lines {
			cmd, err := tx.Exec(ctx, `UPDATE purchase_order_lines SET received_qty = received_qty + $3
WHERE id=$1 AND po_id=$2`, l.LineID, poID, l.Qty)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 0 {
				return ErrLineNotFound
			}
		}
		_, err := tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, poID, status)
		return err
	})
}

// ApplyPayment accumulates the paid amount.
func (r *Repository) ApplyPayment(ctx context.Context, poID int64, amount decimal.Decimal, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET paid_amount = paid_amount + $2, updated_at=$3 WHERE id=$1`, poID, amount, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPONotFound
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
