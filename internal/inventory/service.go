package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store abstracts the repository surface the service depends on.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context, includeInactive bool) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, in CreateItemInput) (Item, error)
	ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error)
}

// Service maintains the item catalog and applies stock movements with
// moving-average costing.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the inventory service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateItem registers a catalog entry. An opening quantity records an
// initial adjustment movement at the submitted cost.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (Item, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" {
		return Item{}, errors.New("inventory: sku is required")
	}
	if in.Name == "" {
		return Item{}, errors.New("inventory: name is required")
	}
	if in.Cost.IsNegative() || in.Price.IsNegative() || in.QtyOnHand.IsNegative() {
		return Item{}, errors.New("inventory: cost, price and quantity must not be negative")
	}
	item, err := s.store.CreateItem(ctx, in)
	if err != nil {
		return Item{}, err
	}
	if item.QtyOnHand.IsPositive() {
		err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			_, err := tx.InsertMovement(ctx, Movement{
				ItemID:      item.ID,
				Kind:        MovementAdjustment,
				Qty:         item.QtyOnHand,
				UnitCost:    item.Cost,
				BalanceQty:  item.QtyOnHand,
				BalanceCost: item.Cost,
				Note:        "Opening stock",
				CreatedAt:   s.now(),
			})
			return err
		})
		if err != nil {
			s.logger.Warn("opening stock movement not recorded", "item_id", item.ID, "error", err)
		}
	}
	return item, nil
}

// ListItems returns the catalog.
func (s *Service) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	return s.store.ListItems(ctx, includeInactive)
}

// GetItem fetches one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.store.GetItem(ctx, id)
}

// ListMovements returns an item's movement log, newest first.
func (s *Service) ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.ListMovements(ctx, itemID, limit)
}

// Receive records inbound stock at a given unit cost and folds it into
// the moving average. Quantity must be positive.
func (s *Service) Receive(ctx context.Context, in MovementInput) (Movement, error) {
	if !in.Qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() {
		return Movement{}, errors.New("inventory: unit cost must not be negative")
	}
	if in.Kind == "" {
		in.Kind = MovementReceipt
	}
	return s.postMovement(ctx, in, false)
}

// Adjust records a signed stock correction. Positive quantities behave
// like receipts at the submitted unit cost; negative quantities relieve
// stock at the current average and must not drive it below zero.
func (s *Service) Adjust(ctx context.Context, in MovementInput) (Movement, error) {
	if in.Qty.IsZero() {
		return Movement{}, ErrInvalidQuantity
	}
	if in.Kind == "" {
		in.Kind = MovementAdjustment
	}
	return s.postMovement(ctx, in, false)
}

// postMovement applies a movement under a row lock and writes the new
// balance. Inbound recomputes the average cost; outbound relieves at
// the existing average and keeps it, resetting to zero when stock runs
// out.
func (s *Service) postMovement(ctx context.Context, in MovementInput, allowNegative bool) (Movement, error) {
	var posted Movement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		newQty := item.QtyOnHand.Add(in.Qty)
		if newQty.IsNegative() && !allowNegative {
			return ErrNegativeStock
		}
		unitCost := in.UnitCost
		newAvg := item.Cost
		if in.Qty.IsPositive() {
			totalCost := item.QtyOnHand.Mul(item.Cost).Add(in.Qty.Mul(unitCost))
			if newQty.IsPositive() {
				newAvg = totalCost.DivRound(newQty, 4)
			}
		} else {
			unitCost = item.Cost
			if !newQty.IsPositive() {
				newAvg = decimal.Zero
			}
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newQty, newAvg); err != nil {
			return err
		}
		posted = Movement{
			ItemID:      item.ID,
			Kind:        in.Kind,
			Qty:         in.Qty,
			UnitCost:    unitCost,
			BalanceQty:  newQty,
			BalanceCost: newAvg,
			Note:        in.Note,
			RefModule:   in.RefModule,
			RefID:       in.RefID,
			CreatedAt:   s.now(),
		}
		id, err := tx.InsertMovement(ctx, posted)
		if err != nil {
			return err
		}
		posted.ID = id
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	s.logger.Info("inventory movement posted",
		"item_id", posted.ItemID,
		"kind", posted.Kind,
		"qty", posted.Qty.String(),
		"balance_qty", posted.BalanceQty.String(),
	)
	return posted, nil
}
