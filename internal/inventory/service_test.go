package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	svc, err := NewService(NewRepository(db), &testTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedItem(t *testing.T, db *gorm.DB, restaurantID uuid.UUID, name string, qty, minStock int64) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		RestaurantID: restaurantID,
		Name:         name,
		Quantity:     decimal.NewFromInt(qty),
		Unit:         enums.UnitKilogram,
		MinStock:     decimal.NewFromInt(minStock),
		IsActive:     true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return item
}

func loadQuantity(t *testing.T, db *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.Quantity
}

func TestDeductConsumesStockAndFlagsLowStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 5)

	alerts, err := svc.Deduct(ctx, []Demand{
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(6)},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected quantity 4, got %s", got)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one low-stock alert, got %d", len(alerts))
	}
	if alerts[0].Name != "beef" || !alerts[0].Remaining.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("unexpected alert: %+v", alerts[0])
	}
}

// staleFindRepo returns inflated quantities from Find, modelling a concurrent
// deduction landing between the initial read and the guarded update.
type staleFindRepo struct {
	Repository
	drift decimal.Decimal
}

func (s *staleFindRepo) WithTx(tx *gorm.DB) Repository {
	return &staleFindRepo{Repository: s.Repository.WithTx(tx), drift: s.drift}
}

func (s *staleFindRepo) Find(ctx context.Context, restaurantID uuid.UUID, name string) (*models.InventoryItem, error) {
	item, err := s.Repository.Find(ctx, restaurantID, name)
	if err != nil {
		return nil, err
	}
	item.Quantity = item.Quantity.Add(s.drift)
	return item, nil
}

func TestDeductAlertsFromCommittedQuantity(t *testing.T) {
	t.Parallel()

	_, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	seedItem(t, db, restaurantID, "beef", 10, 5)

	stale := &staleFindRepo{Repository: NewRepository(db), drift: decimal.NewFromInt(3)}
	svc, err := NewService(stale, &testTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	// the stale read reports 13; the row holds 10 and lands on 4 after the
	// deduction, which must trip the threshold of 5
	alerts, err := svc.Deduct(ctx, []Demand{
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(6)},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one low-stock alert, got %d", len(alerts))
	}
	if !alerts[0].Remaining.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected remaining 4 from the committed row, got %s", alerts[0].Remaining)
	}
}

func TestDeductInsufficientStockLeavesQuantityUntouched(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 5)

	_, err := svc.Deduct(ctx, []Demand{
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(12)},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected quantity 10, got %s", got)
	}
}

func TestDeductIsAllOrNothing(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 2)
	rice := seedItem(t, db, restaurantID, "rice", 1, 1)

	_, err := svc.Deduct(ctx, []Demand{
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(3)},
		{RestaurantID: restaurantID, Name: "rice", Quantity: decimal.NewFromInt(2)},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}

	// the beef deduction must have rolled back with the failed rice one
	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected beef quantity 10, got %s", got)
	}
	if got := loadQuantity(t, db, rice.ID); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected rice quantity 1, got %s", got)
	}
}

func TestDeductUnknownIngredient(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Deduct(context.Background(), []Demand{
		{RestaurantID: uuid.New(), Name: "saffron", Quantity: decimal.NewFromInt(1)},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeductMergesRepeatedDemands(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 2)

	// two order lines consuming the same ingredient
	if _, err := svc.Deduct(ctx, []Demand{
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(2)},
		{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(3)},
	}); err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity 5, got %s", got)
	}
}

func TestRestockReversesDeduction(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 2)

	demands := []Demand{{RestaurantID: restaurantID, Name: "beef", Quantity: decimal.NewFromInt(4)}}
	if _, err := svc.Deduct(ctx, demands); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if err := svc.Restock(ctx, demands); err != nil {
		t.Fatalf("restock: %v", err)
	}

	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected quantity 10 after round trip, got %s", got)
	}
}

func TestProvisionRejectsDuplicates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()

	if _, err := svc.Provision(ctx, ProvisionInput{
		RestaurantID: restaurantID,
		Name:         "beef",
		Quantity:     decimal.NewFromInt(10),
		Unit:         enums.UnitKilogram,
	}); err != nil {
		t.Fatalf("provision: %v", err)
	}

	_, err := svc.Provision(ctx, ProvisionInput{
		RestaurantID: restaurantID,
		Name:         "beef",
		Quantity:     decimal.NewFromInt(1),
		Unit:         enums.UnitKilogram,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureProvisionedSkipsExistingRows(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	beef := seedItem(t, db, restaurantID, "beef", 10, 5)
	productRef := uuid.NewString()

	err := svc.EnsureProvisioned(ctx, restaurantID, productRef, []models.ProductIngredient{
		{Name: "beef", Quantity: decimal.NewFromInt(1), Unit: enums.UnitKilogram},
		{Name: "rice", Quantity: decimal.NewFromInt(2), Unit: enums.UnitGram},
	})
	if err != nil {
		t.Fatalf("ensure provisioned: %v", err)
	}

	// existing row untouched
	if got := loadQuantity(t, db, beef.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected beef quantity 10, got %s", got)
	}

	var rice models.InventoryItem
	if err := db.First(&rice, "restaurant_id = ? AND name = ?", restaurantID, "rice").Error; err != nil {
		t.Fatalf("load rice: %v", err)
	}
	if !rice.Quantity.IsZero() || rice.ProductRef == nil || *rice.ProductRef != productRef {
		t.Fatalf("unexpected provisioned row: %+v", rice)
	}
	if !rice.MinStock.Equal(DefaultMinStock) {
		t.Fatalf("expected default min stock, got %s", rice.MinStock)
	}
}
