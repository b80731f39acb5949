package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository/memory"
)

func TestRunLoadsConsistentCatalog(t *testing.T) {
	repo := memory.New().Repository()
	ctx := context.Background()

	sum, err := Run(ctx, repo, logger.Discard(), Options{Tables: 6, Customers: 4, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, Summary{Ingredients: len(ingredients), MenuItems: len(menu), Tables: 6, Customers: 4}, sum)

	for _, m := range menu {
		item, err := repo.CatalogRepo.GetMenuItem(ctx, m.id)
		require.NoError(t, err)
		require.Len(t, item.Ingredients, len(m.uses), m.id)
		for _, ing := range item.Ingredients {
			_, err := repo.StockRepo.Get(ctx, ing.IngredientID)
			require.NoError(t, err, "%s uses unknown ingredient %s", m.id, ing.IngredientID)
		}
	}

	tb, err := repo.TableRepo.Get(ctx, "t6")
	require.NoError(t, err)
	assert.Equal(t, domain.TableFree, tb.Status)
	assert.Len(t, tb.Seats, tb.Capacity)

	c, err := repo.CatalogRepo.GetCustomer(ctx, "cust-0004")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Name)
	assert.NotEmpty(t, c.City)
}

func TestRunIsDeterministicForASeed(t *testing.T) {
	ctx := context.Background()
	a, b := memory.New().Repository(), memory.New().Repository()
	_, err := Run(ctx, a, logger.Discard(), Options{Customers: 3, Seed: 42})
	require.NoError(t, err)
	_, err = Run(ctx, b, logger.Discard(), Options{Customers: 3, Seed: 42})
	require.NoError(t, err)

	ca, err := a.CatalogRepo.GetCustomer(ctx, "cust-0002")
	require.NoError(t, err)
	cb, err := b.CatalogRepo.GetCustomer(ctx, "cust-0002")
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}
