package service

import (
	"context"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

func (s *OrderService) ListStock(ctx context.Context) ([]domain.IngredientStock, error) {
	items, err := fetch(ctx, s.opts.StoreTimeout, "stock.list", s.repo.StockRepo.List)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.IngredientStock{}
	}
	return items, nil
}

// AdjustStock applies a restock (positive delta) or a write-off (negative delta).
// The quantity on hand never drops below zero.
func (s *OrderService) AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (domain.IngredientStock, error) {
	if delta.IsZero() {
		return domain.IngredientStock{}, domain.InvalidOrderRequest("delta must not be zero")
	}
	st, err := fetch(ctx, s.opts.StoreTimeout, "stock.adjust", func(ctx context.Context) (domain.IngredientStock, error) {
		return s.repo.StockRepo.Adjust(ctx, id, delta)
	})
	if err != nil {
		s.logFailure(ctx, "stock_adjust_failed", err, map[string]any{"ingredient_id": id, "delta": delta.String()})
		return domain.IngredientStock{}, err
	}
	s.log.Ctx(ctx).Info("stock_adjusted", map[string]any{
		"ingredient_id": id, "delta": delta.String(), "on_hand": st.QuantityOnHand.String(),
	})
	return st, nil
}
