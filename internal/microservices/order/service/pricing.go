package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// validateRequest checks the shape of a request before anything is fetched.
func validateRequest(req domain.CreateOrderRequest) error {
	switch req.Kind {
	case domain.KindLocal:
		if strings.TrimSpace(req.TableID) == "" {
			return domain.InvalidOrderKind(req.Kind, "local orders need a table")
		}
	case domain.KindDelivery:
		if strings.TrimSpace(req.DeliveryAddress) == "" && req.CustomerID == "" {
			return domain.InvalidOrderKind(req.Kind, "delivery orders need an address")
		}
	default:
		return domain.InvalidOrderKind(req.Kind, "kind must be local or delivery")
	}
	if len(req.Items) == 0 {
		return domain.InvalidOrderRequest("order has no items")
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.MenuItemID) == "" {
			return domain.InvalidOrderRequest(fmt.Sprintf("item %d has no menu item id", i))
		}
		if it.Quantity < 1 {
			return domain.InvalidOrderRequest(fmt.Sprintf("item %d quantity must be at least 1", i))
		}
	}
	if req.SeatNumber < 0 {
		return domain.InvalidOrderRequest("seat number cannot be negative")
	}
	return nil
}

func (s *OrderService) loadMenu(ctx context.Context, items []domain.CreateOrderItem) (map[string]domain.MenuItem, error) {
	menu := make(map[string]domain.MenuItem, len(items))
	for _, it := range items {
		if _, ok := menu[it.MenuItemID]; ok {
			continue
		}
		m, err := fetch(ctx, s.opts.StoreTimeout, "menu.get", func(ctx context.Context) (domain.MenuItem, error) {
			return s.repo.CatalogRepo.GetMenuItem(ctx, it.MenuItemID)
		})
		if err != nil {
			return nil, err
		}
		menu[it.MenuItemID] = m
	}
	return menu, nil
}

// priceOrder turns a validated request into an order draft: line items carry the unit price
// read now, the total is their exact sum and Consumption is the consolidated stock requirement.
func priceOrder(req domain.CreateOrderRequest, menu map[string]domain.MenuItem) (domain.Order, error) {
	o := domain.Order{
		Kind:        req.Kind,
		CustomerID:  req.CustomerID,
		StaffID:     req.StaffID,
		Items:       make([]domain.LineItem, 0, len(req.Items)),
		Total:       decimal.Zero,
		Consumption: domain.Requirements{},
	}
	switch req.Kind {
	case domain.KindLocal:
		o.TableID = strings.TrimSpace(req.TableID)
		o.SeatNumber = req.SeatNumber
	case domain.KindDelivery:
		o.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
		if o.DeliveryAddress == "" {
			return domain.Order{}, domain.InvalidOrderKind(req.Kind, "delivery orders need an address")
		}
	}

	for _, it := range req.Items {
		m, ok := menu[it.MenuItemID]
		if !ok {
			return domain.Order{}, domain.MenuItemNotFound(it.MenuItemID)
		}
		if !m.Available {
			return domain.Order{}, domain.MenuItemUnavailable(it.MenuItemID)
		}
		line := domain.LineItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   it.Quantity,
			UnitPrice:  m.UnitPrice,
			Notes:      it.Notes,
		}
		o.Items = append(o.Items, line)
		o.Total = o.Total.Add(line.Subtotal())
		consolidate(o.Consumption, m, it.Quantity)
	}
	return o, nil
}

func customerAddress(c domain.Customer) string {
	parts := make([]string, 0, 6)
	street := strings.TrimSpace(strings.Join([]string{c.Street, c.Number}, ", "))
	for _, p := range []string{street, c.Complement, c.District, c.City, c.State, c.ZipCode} {
		p = strings.Trim(strings.TrimSpace(p), ",")
		if p != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " - ")
}

func consolidate(into domain.Requirements, m domain.MenuItem, qty int) {
	n := decimal.NewFromInt(int64(qty))
	for _, ing := range m.Ingredients {
		into.Add(ing.IngredientID, ing.QuantityPerUnit.Mul(n))
	}
}
