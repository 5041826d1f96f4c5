package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-copilot-api/pkg/storage"
)

func fixedSeedService(t *testing.T) (*SeedService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := NewSeedService(store, quietLogger())
	fixed := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return fixed }
	return svc, store
}

func TestGenerateOrdersIsDeterministic(t *testing.T) {
	svc, _ := fixedSeedService(t)

	first := svc.GenerateOrders(12, 42)
	second := svc.GenerateOrders(12, 42)
	assert.Equal(t, first, second)

	different := svc.GenerateOrders(12, 7)
	assert.NotEqual(t, first, different)
}

func TestGenerateOrdersShape(t *testing.T) {
	svc, _ := fixedSeedService(t)

	orders := svc.GenerateOrders(12, 42)
	// one order per month, hospital and product
	assert.Len(t, orders, 12*5*2)

	seen := make(map[string]bool)
	for _, o := range orders {
		assert.GreaterOrEqual(t, o.Quantity, 50)
		assert.NotEmpty(t, o.OrderID)
		assert.False(t, seen[o.OrderID], "duplicate order id %s", o.OrderID)
		seen[o.OrderID] = true
		assert.Greater(t, o.TotalAmount, 0.0)
		assert.True(t, o.OrderDate.Before(svc.nowFn()))
	}
}

func TestGenerateOrdersScalesByHospitalFactor(t *testing.T) {
	svc, _ := fixedSeedService(t)

	orders := svc.GenerateOrders(12, 42)
	totals := make(map[string]int)
	for _, o := range orders {
		totals[o.Hospital] += o.Quantity
	}
	// the 1.4x hospital buys more than the 0.9x hospital over a year
	assert.Greater(t,
		totals["Complejo Asistencial Dr. Sótero del Río"],
		totals["Hospital Barros Luco-Trudeau"])
}

func TestSeedWritesCatalogAndOrders(t *testing.T) {
	svc, store := fixedSeedService(t)
	ctx := context.Background()

	count, err := svc.Seed(ctx, 12, 42)
	require.NoError(t, err)
	assert.Equal(t, 120, count)

	catalog, err := store.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 4)

	hospitals, err := store.ListHospitals(ctx)
	require.NoError(t, err)
	assert.Len(t, hospitals, 5)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"APOSITOS", "GUANTES_MEDICOS"}, products)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, store := fixedSeedService(t)
	ctx := context.Background()

	_, err := svc.Seed(ctx, 12, 42)
	require.NoError(t, err)
	_, err = svc.Seed(ctx, 12, 42)
	require.NoError(t, err)

	records, err := store.QueryHistoricalRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 120)
}
