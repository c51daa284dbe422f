// Package inventory keeps the item catalog and quantity on hand, with
// a moving-average unit cost maintained on every inbound movement.
package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind classifies stock movements.
type MovementKind string

const (
	MovementReceipt    MovementKind = "RECEIPT"
	MovementAdjustment MovementKind = "ADJUSTMENT"
	MovementSale       MovementKind = "SALE"
)

var (
	ErrItemNotFound    = errors.New("inventory: item not found")
	ErrDuplicateSKU    = errors.New("inventory: sku already exists")
	ErrNegativeStock   = errors.New("inventory: movement would drive stock negative")
	ErrInvalidQuantity = errors.New("inventory: quantity must be nonzero")
)

// Item is a catalog entry. Cost is the moving-average unit cost,
// recomputed on every inbound movement; outbound movements relieve
// stock at the existing average.
type Item struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	QtyOnHand   decimal.Decimal `json:"qty_on_hand"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StockValue returns quantity times average cost.
func (i Item) StockValue() decimal.Decimal {
	return i.QtyOnHand.Mul(i.Cost)
}

// Movement is one stock change with the running balance after it.
type Movement struct {
	ID          int64           `json:"id"`
	ItemID      int64           `json:"item_id"`
	Kind        MovementKind    `json:"kind"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	BalanceQty  decimal.Decimal `json:"balance_qty"`
	BalanceCost decimal.Decimal `json:"balance_cost"`
	Note        string          `json:"note,omitempty"`
	RefModule   string          `json:"ref_module,omitempty"`
	RefID       string          `json:"ref_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateItemInput carries a new catalog entry.
type CreateItemInput struct {
	SKU         string
	Name        string
	Description string
	Cost        decimal.Decimal
	Price       decimal.Decimal
	QtyOnHand   decimal.Decimal
}

// MovementInput carries a stock change. Qty is signed: positive
// receives stock, negative relieves it.
type MovementInput struct {
	ItemID    int64
	Kind      MovementKind
	Qty       decimal.Decimal
	UnitCost  decimal.Decimal
	Note      string
	RefModule string
	RefID     string
	ActorID   int64
}
