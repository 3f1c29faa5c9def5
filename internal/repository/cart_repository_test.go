package repository

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func lineDetails(price string) domain.LineDetails {
	return domain.LineDetails{
		ProductName: "Desk Lamp",
		Price:       domain.MustMoney(price),
		Image:       "https://img.example/lamp.png",
		VendorID:    primitive.NewObjectID(),
		VendorName:  "Lights Inc",
	}
}

func newCartRepo(t *testing.T) CartRepository {
	return NewMongoCartRepository(setupTestDB(t))
}

func TestGetCart_NotFound(t *testing.T) {
	repo := newCartRepo(t)

	cart, err := repo.Get(context.Background(), primitive.NewObjectID())

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestFindOrCreate_IsIdempotent(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()

	first, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, buyer, first.BuyerID)
	assert.Empty(t, first.Items)
	assert.Equal(t, 0, first.TotalItems)
	assert.True(t, first.TotalAmount.IsZero())
	assert.False(t, first.CreatedAt.IsZero())

	second, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreate_ConcurrentCallsShareOneCart(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()

	const n = 10
	ids := make([]primitive.ObjectID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := repo.FindOrCreate(ctx, buyer)
			errs[i] = err
			if cart != nil {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestUpsertLine_WithoutCart(t *testing.T) {
	repo := newCartRepo(t)

	_, err := repo.UpsertLine(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), lineDetails("10"))

	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartLifecycle(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()
	details := lineDetails("100")

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)

	cart, err := repo.UpsertLine(ctx, buyer, product, details)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "Desk Lamp", cart.Items[0].ProductName)
	assert.True(t, cart.TotalAmount.Equal(domain.MustMoney("100")))

	cart, err = repo.UpsertLine(ctx, buyer, product, details)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.TotalItems)
	assert.True(t, cart.TotalAmount.Equal(domain.MustMoney("200")))

	res, err := repo.AdjustQuantity(ctx, buyer, product, -1)
	require.NoError(t, err)
	assert.Equal(t, domain.LineUpdated, res.Outcome)
	assert.Equal(t, 1, res.Cart.Items[0].Quantity)
	assert.True(t, res.Cart.TotalAmount.Equal(domain.MustMoney("100")))

	cart, err = repo.RemoveLine(ctx, buyer, product)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
	assert.True(t, cart.TotalAmount.IsZero())
	assert.True(t, cart.Consistent())
}

func TestUpsertLine_KeepsAddTimePrice(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("19.99"))
	require.NoError(t, err)

	// Catalog price moved since the first add.
	cart, err := repo.UpsertLine(ctx, buyer, product, lineDetails("25.00"))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].Price.Equal(domain.MustMoney("19.99")))
	assert.True(t, cart.TotalAmount.Equal(domain.MustMoney("39.98")))
	assert.True(t, cart.Consistent())
}

func TestUpsertLine_ConcurrentAddsOfNewProduct(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()
	details := lineDetails("7.25")

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertLine(ctx, buyer, product, details)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := repo.Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, n, cart.Items[0].Quantity)
	assert.Equal(t, n, cart.TotalItems)
	assert.True(t, cart.TotalAmount.Equal(domain.MustMoney("181.25")))
	assert.True(t, cart.Consistent())
}

func TestUpsertLine_ConcurrentAddsAcrossProducts(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)

	products := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	prices := []string{"1.10", "2.20", "3.30"}

	var wg sync.WaitGroup
	for i := range products {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.UpsertLine(ctx, buyer, products[i], lineDetails(prices[i]))
				assert.NoError(t, err)
			}(i)
		}
	}
	wg.Wait()

	cart, err := repo.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 3)
	assert.Equal(t, 12, cart.TotalItems)
	assert.True(t, cart.TotalAmount.Equal(domain.MustMoney("26.40")))
	assert.True(t, cart.Consistent())
}

func TestAdjustQuantity_RemovalBoundary(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	keep := primitive.NewObjectID()
	drop := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, keep, lineDetails("5"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = repo.UpsertLine(ctx, buyer, drop, lineDetails("12.50"))
		require.NoError(t, err)
	}

	res, err := repo.AdjustQuantity(ctx, buyer, drop, -3)
	require.NoError(t, err)

	assert.Equal(t, domain.LineRemoved, res.Outcome)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, keep, res.Cart.Items[0].ProductID)
	assert.Equal(t, 1, res.Cart.TotalItems)
	assert.True(t, res.Cart.TotalAmount.Equal(domain.MustMoney("5")))
}

func TestAdjustQuantity_OvershootRemovesWholeLine(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("40"))
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("40"))
	require.NoError(t, err)

	res, err := repo.AdjustQuantity(ctx, buyer, product, -10)
	require.NoError(t, err)

	assert.Equal(t, domain.LineRemoved, res.Outcome)
	assert.Empty(t, res.Cart.Items)
	assert.Equal(t, 0, res.Cart.TotalItems)
	assert.True(t, res.Cart.TotalAmount.IsZero())
}

func TestAdjustQuantity_Increase(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("0.10"))
	require.NoError(t, err)

	res, err := repo.AdjustQuantity(ctx, buyer, product, 2)
	require.NoError(t, err)

	assert.Equal(t, domain.LineUpdated, res.Outcome)
	assert.Equal(t, 3, res.Cart.Items[0].Quantity)
	assert.True(t, res.Cart.TotalAmount.Equal(domain.MustMoney("0.30")))
	assert.True(t, res.Cart.Consistent())
}

func TestAdjustQuantity_LargeIncreaseKeepsLine(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("1"))
	require.NoError(t, err)

	res, err := repo.AdjustQuantity(ctx, buyer, product, domain.MaxQuantityDelta)
	require.NoError(t, err)
	assert.Equal(t, domain.LineUpdated, res.Outcome)
	assert.Equal(t, 1+domain.MaxQuantityDelta, res.Cart.Items[0].Quantity)
	assert.True(t, res.Cart.Consistent())

	_, err = repo.AdjustQuantity(ctx, buyer, product, math.MaxInt)
	require.Error(t, err)
	_, err = repo.AdjustQuantity(ctx, buyer, product, math.MinInt)
	require.Error(t, err)

	cart, err := repo.Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1+domain.MaxQuantityDelta, cart.Items[0].Quantity)
}

func TestAdjustQuantity_NotFound(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()

	_, err := repo.AdjustQuantity(ctx, buyer, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)

	_, err = repo.AdjustQuantity(ctx, buyer, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = repo.RemoveLine(ctx, buyer, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestAdjustQuantity_ConcurrentDecrementsNeverLeaveZeroLine(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()
	product := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = repo.UpsertLine(ctx, buyer, product, lineDetails("9"))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Losers see the line gone, or run out of retries under contention.
			_, _ = repo.AdjustQuantity(ctx, buyer, product, -2)
		}()
	}
	wg.Wait()

	cart, err := repo.Get(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, cart.Consistent())
	for _, line := range cart.Items {
		assert.GreaterOrEqual(t, line.Quantity, 1)
	}
}

func TestClear_IsIdempotent(t *testing.T) {
	repo := newCartRepo(t)
	ctx := context.Background()
	buyer := primitive.NewObjectID()

	_, err := repo.FindOrCreate(ctx, buyer)
	require.NoError(t, err)
	_, err = repo.UpsertLine(ctx, buyer, primitive.NewObjectID(), lineDetails("3"))
	require.NoError(t, err)

	first, err := repo.Clear(ctx, buyer)
	require.NoError(t, err)
	second, err := repo.Clear(ctx, buyer)
	require.NoError(t, err)

	for _, cart := range []*domain.Cart{first, second} {
		assert.Empty(t, cart.Items)
		assert.Equal(t, 0, cart.TotalItems)
		assert.True(t, cart.TotalAmount.IsZero())
	}
	assert.Equal(t, first.ID, second.ID)
}

func TestContextCancellation(t *testing.T) {
	repo := newCartRepo(t)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.Get(ctx, primitive.NewObjectID())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
