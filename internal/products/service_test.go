package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

type txRunner struct {
	db *gorm.DB
}

func (t *txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	svc     Service
	ledger  *gorm.DB
	catalog *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledgerDSN := "file:products_ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	ledger, err := gorm.Open(sqlite.Open(ledgerDSN), &gorm.Config{})
	if err != nil {
		t.Fatalf("open ledger db: %v", err)
	}
	if err := ledger.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate ledger: %v", err)
	}

	catalogDSN := "file:products_catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	catalog, err := gorm.Open(sqlite.Open(catalogDSN), &gorm.Config{})
	if err != nil {
		t.Fatalf("open catalog db: %v", err)
	}
	if err := catalog.AutoMigrate(&models.Restaurant{}, &models.Product{}); err != nil {
		t.Fatalf("migrate catalog: %v", err)
	}

	stock, err := inventory.NewService(inventory.NewRepository(ledger), &txRunner{db: ledger})
	if err != nil {
		t.Fatalf("stock engine: %v", err)
	}
	svc, err := NewService(NewRepository(catalog), stock)
	if err != nil {
		t.Fatalf("product service: %v", err)
	}
	return &fixture{svc: svc, ledger: ledger, catalog: catalog}
}

func (f *fixture) seedRestaurant(t *testing.T) uuid.UUID {
	t.Helper()
	restaurant := models.Restaurant{Name: "La Terraza", IsActive: true}
	if err := f.catalog.Create(&restaurant).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	return restaurant.ID
}

func TestCreateProvisionsLedgerRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := f.seedRestaurant(t)

	product, err := f.svc.Create(ctx, CreateInput{
		RestaurantID: restaurantID,
		Name:         "burger",
		PriceCents:   1500,
		Ingredients: models.ProductIngredients{
			{Name: "beef", Quantity: decimal.NewFromInt(2), Unit: enums.UnitKilogram},
			{Name: "bun", Quantity: decimal.NewFromInt(1), Unit: enums.UnitPiece},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !product.IsAvailable || !product.IsActive {
		t.Fatalf("new product must be active and available")
	}

	var count int64
	if err := f.ledger.Model(&models.InventoryItem{}).
		Where("restaurant_id = ? AND product_ref = ?", restaurantID, product.ID.String()).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 provisioned ledger rows, got %d", count)
	}
}

func TestCreateRejectsUnknownRestaurant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		RestaurantID: uuid.New(),
		Name:         "burger",
		PriceCents:   1500,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateTogglesAvailability(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := f.seedRestaurant(t)

	product, err := f.svc.Create(ctx, CreateInput{RestaurantID: restaurantID, Name: "burger", PriceCents: 1500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	unavailable := false
	updated, err := f.svc.Update(ctx, restaurantID, product.ID, UpdateInput{IsAvailable: &unavailable})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsAvailable {
		t.Fatalf("expected product to be unavailable")
	}

	// unavailable products stay resolvable for order validation
	if _, err := f.svc.FindActive(ctx, restaurantID, product.ID); err != nil {
		t.Fatalf("find active: %v", err)
	}
}

func TestDeactivateRetiresProductAndLedgerRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := f.seedRestaurant(t)

	product, err := f.svc.Create(ctx, CreateInput{
		RestaurantID: restaurantID,
		Name:         "burger",
		PriceCents:   1500,
		Ingredients: models.ProductIngredients{
			{Name: "beef", Quantity: decimal.NewFromInt(2), Unit: enums.UnitKilogram},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Deactivate(ctx, restaurantID, product.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := f.svc.FindActive(ctx, restaurantID, product.ID); pkgerrors.As(err) == nil {
		t.Fatalf("expected not found, got %v", err)
	}

	var item models.InventoryItem
	if err := f.ledger.First(&item, "restaurant_id = ? AND name = ?", restaurantID, "beef").Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if item.IsActive {
		t.Fatalf("expected ledger row retired")
	}

	// second deactivate conflicts
	err = f.svc.Deactivate(ctx, restaurantID, product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetScopesToRestaurant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := f.seedRestaurant(t)

	product, err := f.svc.Create(ctx, CreateInput{RestaurantID: restaurantID, Name: "burger", PriceCents: 1500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Get(ctx, uuid.New(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListAvailableOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := f.seedRestaurant(t)

	first, err := f.svc.Create(ctx, CreateInput{RestaurantID: restaurantID, Name: "burger", PriceCents: 1500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{RestaurantID: restaurantID, Name: "salad", PriceCents: 900}); err != nil {
		t.Fatalf("create: %v", err)
	}

	unavailable := false
	if _, err := f.svc.Update(ctx, restaurantID, first.ID, UpdateInput{IsAvailable: &unavailable}); err != nil {
		t.Fatalf("update: %v", err)
	}

	result, err := f.svc.List(ctx, ListParams{RestaurantID: restaurantID, AvailableOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].Name != "salad" {
		t.Fatalf("expected only salad, got %d rows", len(result.Products))
	}
}
