//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/abstore/internal/domain/auth"
	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/order"
	"github.com/xenking/abstore/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "abstore",
				"POSTGRES_PASSWORD": "abstore",
				"POSTGRES_DB":       "abstore",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(context.Background()) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://abstore:abstore@%s:%s/abstore?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}

	return m.Run()
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newCoupon(code string, limit *int) *coupon.Coupon {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &coupon.Coupon{
		ID:            uuid.NewString(),
		Code:          code,
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: d("10"),
		MinOrderValue: decimal.Zero,
		UsageLimit:    limit,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func uniqueCode(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

func TestCouponRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	c := newCoupon(uniqueCode("CRUD"), nil)
	c.MaxDiscount = decimal.NullDecimal{Decimal: d("150.50"), Valid: true}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, d("150.50").Equal(got.MaxDiscount.Decimal))
	assert.Nil(t, got.UsageLimit)

	dup := newCoupon(c.Code, nil)
	require.ErrorIs(t, repo.Create(ctx, dup), coupon.ErrDuplicateCode)

	limit := 3
	got.UsageLimit = &limit
	got.Active = false
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.UsageLimit)
	assert.Equal(t, 3, *updated.UsageLimit)
	assert.False(t, updated.Active)

	require.NoError(t, repo.Delete(ctx, c.ID))
	require.ErrorIs(t, repo.Delete(ctx, c.ID), coupon.ErrNotFound)
	_, err = repo.FindByID(ctx, c.ID)
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestCouponRepository_FindByCodeIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	c := newCoupon(uniqueCode("CASE"), nil)
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByCode(ctx, "case"+c.Code[4:])
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestCouponRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	c := newCoupon(uniqueCode("UPS"), nil)
	require.NoError(t, repo.Upsert(ctx, c))

	replacement := newCoupon(c.Code, nil)
	replacement.DiscountValue = d("25")
	require.NoError(t, repo.Upsert(ctx, replacement))

	got, err := repo.FindByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID, "upsert keeps the stored id")
	assert.True(t, d("25").Equal(got.DiscountValue))

	codes, err := repo.ListCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, c.Code)
}

func placeOrder(t *testing.T, svc *order.Service, code string) (*order.Order, error) {
	t.Helper()
	return svc.PlaceOrder(context.Background(), order.PlaceOrderRequest{
		Items: []order.LineItem{{ProductID: "p1", Name: "Widget", Price: d("5000"), Quantity: 2}},
		ShippingAddress: order.ShippingAddress{
			FullName: "Ada Lovelace", Address: "1 Main St", City: "London", PostalCode: "N1", Country: "UK",
		},
		PaymentMethod: "PayPal",
		CouponCode:    code,
	})
}

func newOrderService(t *testing.T) *order.Service {
	t.Helper()
	svc, err := order.NewService(NewStore(testPool), NewOrderRepository(testPool))
	require.NoError(t, err)
	return svc
}

func TestStore_PlaceOrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(testPool)
	orders := NewOrderRepository(testPool)
	svc := newOrderService(t)

	c := newCoupon(uniqueCode("RT"), nil)
	require.NoError(t, coupons.Create(ctx, c))

	placed, err := placeOrder(t, svc, " "+c.Code+" ")
	require.NoError(t, err)

	got, err := orders.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, d("10000").Equal(got.Pricing.ItemsPrice))
	assert.True(t, d("1000").Equal(got.Pricing.DiscountAmount))
	assert.True(t, d("2800").Equal(got.Pricing.ShippingPrice))
	assert.True(t, d("11800").Equal(got.Pricing.TotalPrice))
	assert.Equal(t, c.Code, got.Pricing.CouponCode)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Widget", got.Items[0].Name)
	assert.Equal(t, "London", got.ShippingAddress.City)

	stored, err := coupons.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)

	require.NoError(t, orders.MarkPaid(ctx, placed.ID, time.Now()))
	require.ErrorIs(t, orders.MarkPaid(ctx, "missing", time.Now()), order.ErrNotFound)

	listed, err := orders.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, listed)
}

func TestStore_RejectedCouponRollsBack(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(testPool)
	svc := newOrderService(t)

	c := newCoupon(uniqueCode("MIN"), nil)
	c.MinOrderValue = d("50000")
	require.NoError(t, coupons.Create(ctx, c))

	_, err := placeOrder(t, svc, c.Code)
	var minErr *coupon.MinOrderValueError
	require.ErrorAs(t, err, &minErr)

	stored, err := coupons.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsageCount)
}

func TestStore_ConcurrentRedemptionRespectsLimit(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(testPool)
	svc := newOrderService(t)

	limit := 1
	c := newCoupon(uniqueCode("ONCE"), &limit)
	require.NoError(t, coupons.Create(ctx, c))

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for range attempts {
		wg.Go(func() {
			_, err := placeOrder(t, svc, c.Code)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case assert.ErrorIs(t, err, coupon.ErrUsageLimitReached):
				rejected++
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, attempts-1, rejected)

	stored, err := coupons.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	id := uuid.NewString()
	require.NoError(t, repo.Upsert(ctx, []product.Product{{
		ID: id, Name: "Airpods", Description: "Wireless", Price: d("89.99"),
		Category: "Electronics", Image: "/images/airpods.jpg", CountInStock: 10,
	}}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Airpods", got.Name)
	assert.True(t, d("89.99").Equal(got.Price))

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)

	hash := auth.HashKey("pepper", "secret")
	require.NoError(t, repo.Save(ctx, auth.APIKeyInfo{
		ID: uuid.NewString(), KeyHash: hash, Name: "test", Scopes: []string{auth.ScopeAdmin},
	}))

	info, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, info.HasScope(auth.ScopeAdmin))

	_, err = repo.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
