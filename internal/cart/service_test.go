package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/internal/pricing"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
)

type stubPrices struct {
	products map[string]*models.Product
}

func (s *stubPrices) PriceFor(ctx context.Context, productRef string) (*models.Product, error) {
	product, ok := s.products[productRef]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

type lineOnlyTotals struct{}

func (lineOnlyTotals) Recompute(ctx context.Context, order *models.Order) (pricing.Totals, error) {
	totals := pricing.Totals{Currency: order.Currency}
	for _, line := range order.Lines {
		totals.SubtotalCents += line.UnitPriceCents * int64(line.Quantity)
	}
	totals.TotalCents = totals.SubtotalCents
	return totals, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite handles one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderLine{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Orders: NewRepository(db),
		Products: &stubPrices{products: map[string]*models.Product{
			"SKU-1": {ProductRef: "SKU-1", Name: "Widget", PriceCents: 1000, Currency: enums.CurrencyUSD, IsActive: true},
			"SKU-2": {ProductRef: "SKU-2", Name: "Gadget", PriceCents: 500, Currency: enums.CurrencyUSD, IsActive: true},
		}},
		Totals:   lineOnlyTotals{},
		Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, first.Status)

	second, err := svc.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.GetOrCreate(ctx, 43)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGetOrCreateConcurrentFirstCalls(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(slot int) {
			defer wg.Done()
			order, err := svc.GetOrCreate(context.Background(), 42)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			ids[slot] = order.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "all concurrent callers must observe the same cart")
	}

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Where("customer_id = ?", 42).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetDoesNotCreate(t *testing.T) {
	svc := newTestService(t, newTestDB(t))

	order, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestAddLineMergesByProduct(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	order, err := svc.AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)

	order, err = svc.AddLine(ctx, 42, "SKU-1", 3)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1, "repeat adds must merge, not duplicate")
	assert.Equal(t, 5, order.Lines[0].Quantity)
	assert.Equal(t, int64(1000), order.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(5000), order.SubtotalCents)
}

func TestAddLineKeepsFirstAddPrice(t *testing.T) {
	db := newTestDB(t)
	prices := &stubPrices{products: map[string]*models.Product{
		"SKU-1": {ProductRef: "SKU-1", Name: "Widget", PriceCents: 1000, IsActive: true},
	}}
	svc, err := NewService(ServiceParams{
		Orders:   NewRepository(db),
		Products: prices,
		Totals:   lineOnlyTotals{},
		Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddLine(ctx, 42, "SKU-1", 1)
	require.NoError(t, err)

	// Catalog price moves mid-session; the merged line keeps its economics.
	prices.products["SKU-1"].PriceCents = 9999
	order, err := svc.AddLine(ctx, 42, "SKU-1", 1)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(1000), order.Lines[0].UnitPriceCents)
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(t, newTestDB(t))

	for _, qty := range []int{0, -1} {
		_, err := svc.AddLine(context.Background(), 42, "SKU-1", qty)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestAddLineUnknownProduct(t *testing.T) {
	svc := newTestService(t, newTestDB(t))

	_, err := svc.AddLine(context.Background(), 42, "SKU-GONE", 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetLineQtyZeroRemovesLine(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	order, err := svc.AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)
	lineID := order.Lines[0].ID

	order, err = svc.SetLineQty(ctx, 42, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)
	assert.Zero(t, order.SubtotalCents)
}

func TestSetLineQtyUpdatesTotals(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	order, err := svc.AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)
	lineID := order.Lines[0].ID

	order, err = svc.SetLineQty(ctx, 42, lineID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, order.Lines[0].Quantity)
	assert.Equal(t, int64(7000), order.SubtotalCents)
	assert.Equal(t, int64(7000), order.TotalCents)
}

func TestRemoveLineUnknownLine(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	_, err := svc.AddLine(ctx, 42, "SKU-1", 1)
	require.NoError(t, err)

	_, err = svc.RemoveLine(ctx, 42, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	_, err := svc.AddLine(ctx, 42, "SKU-1", 1)
	require.NoError(t, err)
	order, err := svc.AddLine(ctx, 42, "SKU-2", 1)
	require.NoError(t, err)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, "SKU-1", order.Lines[0].ProductRef)
	assert.Equal(t, "SKU-2", order.Lines[1].ProductRef)
}

// confirmRacingRepo confirms every draft just before a line write lands,
// reproducing a confirm slipping in between the service's snapshot read and
// its UPDATE.
type confirmRacingRepo struct {
	*Repository
	db *gorm.DB
}

func (r confirmRacingRepo) confirmAllDrafts() error {
	return r.db.Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusDraft).
		Update("status", enums.OrderStatusConfirmed).Error
}

func (r confirmRacingRepo) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if err := r.confirmAllDrafts(); err != nil {
		return err
	}
	return r.Repository.UpdateLineQuantity(ctx, lineID, quantity)
}

func (r confirmRacingRepo) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	if err := r.confirmAllDrafts(); err != nil {
		return err
	}
	return r.Repository.DeleteLine(ctx, lineID)
}

func newRacingService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Orders: confirmRacingRepo{Repository: NewRepository(db), db: db},
		Products: &stubPrices{products: map[string]*models.Product{
			"SKU-1": {ProductRef: "SKU-1", Name: "Widget", PriceCents: 1000, Currency: enums.CurrencyUSD, IsActive: true},
		}},
		Totals:   lineOnlyTotals{},
		Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)
	return svc
}

func TestSetLineQtyRacingConfirmIsStateConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	order, err := newTestService(t, db).AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)
	lineID := order.Lines[0].ID

	_, err = newRacingService(t, db).SetLineQty(ctx, 42, lineID, 7)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var line models.OrderLine
	require.NoError(t, db.First(&line, "id = ?", lineID).Error)
	assert.Equal(t, 2, line.Quantity, "a confirmed order's lines must not change")
}

func TestRemoveLineRacingConfirmIsStateConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	order, err := newTestService(t, db).AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)
	lineID := order.Lines[0].ID

	_, err = newRacingService(t, db).RemoveLine(ctx, 42, lineID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.OrderLine{}).Where("id = ?", lineID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "a confirmed order's lines must not be deleted")
}

func TestAddLineMergeRacingConfirmIsStateConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := newTestService(t, db).AddLine(ctx, 42, "SKU-1", 2)
	require.NoError(t, err)

	_, err = newRacingService(t, db).AddLine(ctx, 42, "SKU-1", 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var line models.OrderLine
	require.NoError(t, db.First(&line, "product_ref = ?", "SKU-1").Error)
	assert.Equal(t, 2, line.Quantity)
}
