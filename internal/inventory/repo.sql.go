package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists the item catalog and movement log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, sku, name, description, cost, price, qty_on_hand, is_active, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Description, &it.Cost, &it.Price, &it.QtyOnHand, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// ListItems returns catalog entries ordered by SKU.
func (r *Repository) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sku`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem fetches one item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// CreateItem inserts a catalog entry.
func (r *Repository) CreateItem(ctx context.Context, in CreateItemInput) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO inventory_items (sku, name, description, cost, price, qty_on_hand, is_active)
VALUES ($1,$2,$3,$4,$5,$6,TRUE) RETURNING `+itemColumns,
		in.SKU, in.Name, in.Description, in.Cost, in.Price, in.QtyOnHand)
	it, err := scanItem(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Item{}, ErrDuplicateSKU
		}
		return Item{}, err
	}
	return it, nil
}

// ListMovements returns an item's movement log, newest first.
func (r *Repository) ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, kind, qty, unit_cost, balance_qty, balance_cost, note, ref_module, ref_id, created_at
FROM inventory_movements WHERE item_id=$1 ORDER BY id DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Kind, &m.Qty, &m.UnitCost, &m.BalanceQty, &m.BalanceCost, &m.Note, &m.RefModule, &m.RefID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TxRepository exposes the transactional operations movements need.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	UpdateItemStock(ctx context.Context, id int64, qty, cost decimal.Decimal) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *txRepository) UpdateItemStock(ctx context.Context, id int64, qty, cost decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE inventory_items SET qty_on_hand=$2, cost=$3, updated_at=NOW() WHERE id=$1`, id, qty, cost)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (item_id, kind, qty, unit_cost, balance_qty, balance_cost, note, ref_module, ref_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		m.ItemID, m.Kind, m.Qty, m.UnitCost, m.BalanceQty, m.BalanceCost, m.Note, m.RefModule, m.RefID, m.CreatedAt).Scan(&id)
	return id, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
