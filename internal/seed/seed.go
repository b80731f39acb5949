// Package seed loads a demo catalog, floor plan and customer base.
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

type Options struct {
	Tables    int
	Customers int
	Seed      int64 // same seed, same customers
}

type Summary struct {
	Ingredients int `json:"ingredients"`
	MenuItems   int `json:"menu_items"`
	Tables      int `json:"tables"`
	Customers   int `json:"customers"`
}

type ingredient struct {
	id, name, unit string
	onHand, cost   string
}

var ingredients = []ingredient{
	{"dough", "Pizza dough", "kg", "40", "6.50"},
	{"tomato", "Tomato", "kg", "60", "7.90"},
	{"mozzarella", "Mozzarella", "kg", "25", "42.00"},
	{"basil", "Basil", "kg", "2", "55.00"},
	{"olive-oil", "Olive oil", "l", "10", "38.00"},
	{"bread", "Italian bread", "unit", "80", "1.20"},
	{"lettuce", "Romaine lettuce", "kg", "15", "9.00"},
	{"chicken", "Chicken breast", "kg", "20", "24.00"},
	{"beef", "Ground beef", "kg", "20", "39.00"},
	{"bun", "Burger bun", "unit", "60", "1.50"},
	{"potato", "Potato", "kg", "50", "4.80"},
}

type recipe map[string]string

type menuItem struct {
	id, name, category, price string
	uses                      recipe
}

var menu = []menuItem{
	{"margherita", "Pizza Margherita", "pizzas", "42.50", recipe{"dough": "0.35", "tomato": "0.2", "mozzarella": "0.25", "basil": "0.01", "olive-oil": "0.02"}},
	{"napoletana", "Pizza Napoletana", "pizzas", "48.00", recipe{"dough": "0.35", "tomato": "0.3", "mozzarella": "0.2", "olive-oil": "0.03"}},
	{"bruschetta", "Bruschetta", "starters", "12.00", recipe{"bread": "2", "tomato": "0.1", "basil": "0.005", "olive-oil": "0.01"}},
	{"caesar", "Caesar salad", "salads", "29.90", recipe{"lettuce": "0.2", "chicken": "0.15", "bread": "0.5", "olive-oil": "0.02"}},
	{"burger", "House burger", "mains", "36.00", recipe{"beef": "0.18", "bun": "1", "tomato": "0.05", "lettuce": "0.03"}},
	{"fries", "French fries", "sides", "15.00", recipe{"potato": "0.3", "olive-oil": "0.05"}},
	{"chicken-plate", "Grilled chicken", "mains", "39.90", recipe{"chicken": "0.25", "potato": "0.2", "lettuce": "0.05"}},
}

var zones = []string{"main", "patio", "bar"}

// Run upserts the demo data through the order repositories. Re-running it restores stock
// levels and recipes but leaves table occupancy alone.
func Run(ctx context.Context, repo *repository.Repository, log *logger.Logger, opts Options) (Summary, error) {
	var sum Summary
	for _, ing := range ingredients {
		err := repo.StockRepo.Upsert(ctx, domain.IngredientStock{
			ID: ing.id, Name: ing.name, Unit: ing.unit,
			QuantityOnHand: decimal.RequireFromString(ing.onHand),
			UnitCost:       decimal.RequireFromString(ing.cost),
		})
		if err != nil {
			return sum, err
		}
		sum.Ingredients++
	}

	for _, m := range menu {
		item := domain.MenuItem{
			ID: m.id, Name: m.name, CategoryID: m.category, Available: true,
			UnitPrice: decimal.RequireFromString(m.price),
		}
		for _, ing := range ingredients {
			if qty, ok := m.uses[ing.id]; ok {
				item.Ingredients = append(item.Ingredients, domain.IngredientRequirement{
					IngredientID: ing.id, QuantityPerUnit: decimal.RequireFromString(qty), Unit: ing.unit,
				})
			}
		}
		if err := repo.CatalogRepo.UpsertMenuItem(ctx, item); err != nil {
			return sum, err
		}
		sum.MenuItems++
	}

	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))
	for i := 1; i <= opts.Tables; i++ {
		capacity := fake.IntBetween(2, 8)
		t := domain.Table{
			ID:       fmt.Sprintf("t%d", i),
			Number:   i,
			Capacity: capacity,
			Zone:     zones[(i-1)%len(zones)],
		}
		for s := 1; s <= capacity; s++ {
			t.Seats = append(t.Seats, domain.Seat{Number: s})
		}
		if err := repo.TableRepo.Upsert(ctx, t); err != nil {
			return sum, err
		}
		sum.Tables++
	}

	for i := 1; i <= opts.Customers; i++ {
		addr := fake.Address()
		c := domain.Customer{
			ID:       fmt.Sprintf("cust-%04d", i),
			Name:     fake.Person().Name(),
			Street:   addr.StreetName(),
			Number:   addr.BuildingNumber(),
			District: addr.CityPrefix() + " " + addr.CitySuffix(),
			City:     addr.City(),
			State:    addr.StateAbbr(),
			ZipCode:  addr.PostCode(),
		}
		if fake.Bool() {
			c.Complement = addr.SecondaryAddress()
		}
		if err := repo.CatalogRepo.UpsertCustomer(ctx, c); err != nil {
			return sum, err
		}
		sum.Customers++
	}

	log.Info("seed_completed", map[string]any{
		"ingredients": sum.Ingredients, "menu_items": sum.MenuItems, "tables": sum.Tables, "customers": sum.Customers,
	})
	return sum, nil
}
