package orders

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/metrics"
)

type stubCatalog struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubCatalog) FindActive(_ context.Context, restaurantID, productID uuid.UUID) (*models.Product, error) {
	product, ok := s.products[productID]
	if !ok || product.RestaurantID != restaurantID || !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

type stubNotifier struct {
	alerts   []inventory.LowStockAlert
	invoices []string
}

func (s *stubNotifier) LowStock(_ context.Context, alert inventory.LowStockAlert) {
	s.alerts = append(s.alerts, alert)
}

func (s *stubNotifier) InvoiceGenerated(_ context.Context, _ *models.Order, number string) {
	s.invoices = append(s.invoices, number)
}

type txRunner struct {
	db *gorm.DB
}

func (t *txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	svc      Service
	repo     Repository
	stock    inventory.Service
	catalog  *stubCatalog
	notifier *stubNotifier
	ledger   *gorm.DB
	orders   *gorm.DB
}

func openTestDB(t *testing.T, name string, model any) *gorm.DB {
	t.Helper()
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open %s db: %v", name, err)
	}
	if err := db.AutoMigrate(model); err != nil {
		t.Fatalf("migrate %s: %v", name, err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// the ledger and catalog stores are independent databases
	ledger := openTestDB(t, "ledger", &models.InventoryItem{})
	catalogDB := openTestDB(t, "orders", &models.Order{})

	stock, err := inventory.NewService(inventory.NewRepository(ledger), &txRunner{db: ledger})
	if err != nil {
		t.Fatalf("stock engine: %v", err)
	}

	catalog := &stubCatalog{products: map[uuid.UUID]*models.Product{}}
	notifier := &stubNotifier{}
	repo := NewRepository(catalogDB)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, stock, catalog, notifier, metrics.NewSagaMetrics(nil), logg)
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	return &fixture{
		svc:      svc,
		repo:     repo,
		stock:    stock,
		catalog:  catalog,
		notifier: notifier,
		ledger:   ledger,
		orders:   catalogDB,
	}
}

func (f *fixture) seedIngredient(t *testing.T, restaurantID uuid.UUID, name string, qty, minStock int64) {
	t.Helper()
	item := models.InventoryItem{
		RestaurantID: restaurantID,
		Name:         name,
		Quantity:     decimal.NewFromInt(qty),
		Unit:         enums.UnitKilogram,
		MinStock:     decimal.NewFromInt(minStock),
		IsActive:     true,
	}
	if err := f.ledger.Create(&item).Error; err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func (f *fixture) seedProduct(t *testing.T, restaurantID uuid.UUID, name string, priceCents int, ingredients models.ProductIngredients) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         name,
		PriceCents:   priceCents,
		Ingredients:  ingredients,
		IsAvailable:  true,
		IsActive:     true,
	}
	f.catalog.products[product.ID] = product
	return product
}

func (f *fixture) ingredientQuantity(t *testing.T, restaurantID uuid.UUID, name string) decimal.Decimal {
	t.Helper()
	var item models.InventoryItem
	if err := f.ledger.First(&item, "restaurant_id = ? AND name = ?", restaurantID, name).Error; err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return item.Quantity
}

func burgerIngredients() models.ProductIngredients {
	return models.ProductIngredients{
		{Name: "beef", Quantity: decimal.NewFromInt(2), Unit: enums.UnitKilogram},
	}
}

func TestCreateDeductsStockAndSnapshotsItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 5)
	burger := f.seedProduct(t, restaurantID, "burger", 1500, burgerIngredients())

	order, err := f.svc.Create(ctx, CreateInput{
		RestaurantID: restaurantID,
		UserID:       uuid.New(),
		Items:        []CreateItemInput{{ProductID: burger.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.Status != enums.OrderStatusReceived {
		t.Fatalf("expected received, got %s", order.Status)
	}
	if order.TotalCents != 4500 {
		t.Fatalf("expected total 4500, got %d", order.TotalCents)
	}
	if len(order.Items) != 1 || order.Items[0].SubtotalCents != 4500 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if len(order.Items[0].Ingredients) != 1 {
		t.Fatalf("expected ingredient snapshot on the line")
	}

	// 3 units at 2kg each
	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected beef quantity 4, got %s", got)
	}
	if len(f.notifier.alerts) != 1 {
		t.Fatalf("expected one low-stock alert, got %d", len(f.notifier.alerts))
	}
}

func TestCreateInsufficientStockWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 3, 1)
	burger := f.seedProduct(t, restaurantID, "burger", 1500, burgerIngredients())

	_, err := f.svc.Create(ctx, CreateInput{
		RestaurantID: restaurantID,
		UserID:       uuid.New(),
		Items:        []CreateItemInput{{ProductID: burger.ID, Quantity: 2}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected beef quantity 3, got %s", got)
	}
	var count int64
	if err := f.orders.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders, got %d", count)
	}
}

type failingCreateRepo struct {
	Repository
}

func (f *failingCreateRepo) Create(context.Context, *models.Order) error {
	return fmt.Errorf("connection reset")
}

func TestCreateCompensatesWhenPersistFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	burger := f.seedProduct(t, restaurantID, "burger", 1500, burgerIngredients())

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(&failingCreateRepo{Repository: f.repo}, f.stock, f.catalog, f.notifier, metrics.NewSagaMetrics(nil), logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: restaurantID,
		UserID:       uuid.New(),
		Items:        []CreateItemInput{{ProductID: burger.ID, Quantity: 2}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}

	// the restock must have undone the deduction
	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected beef quantity 10, got %s", got)
	}
}

func TestCreateRejectsUnavailableProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	burger := f.seedProduct(t, restaurantID, "burger", 1500, burgerIngredients())
	burger.IsAvailable = false

	_, err := f.svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID,
		UserID:       uuid.New(),
		Items:        []CreateItemInput{{ProductID: burger.ID, Quantity: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) placeOrder(t *testing.T, restaurantID uuid.UUID, userID uuid.UUID) *models.Order {
	t.Helper()
	burger := f.seedProduct(t, restaurantID, "burger", 1500, burgerIngredients())
	order, err := f.svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID,
		UserID:       userID,
		Items:        []CreateItemInput{{ProductID: burger.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestUpdateStatusFollowsTheChain(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, uuid.New())

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusDelivered,
	} {
		updated, err := f.svc.UpdateStatus(ctx, order.ID, target)
		if err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected %s, got %s", target, updated.Status)
		}
	}

	// delivered is terminal
	_, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPreparing)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, uuid.New())

	_, err := f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusReady)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelRestocksIngredients(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	userID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, userID)

	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected beef quantity 8 after order, got %s", got)
	}

	cancelled, err := f.svc.Cancel(ctx, order.ID, userID, enums.RoleCustomer)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected beef quantity 10 after cancel, got %s", got)
	}
}

func TestCancelRejectsDeliveredOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	userID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, userID)

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusDelivered,
	} {
		if _, err := f.svc.UpdateStatus(ctx, order.ID, target); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	_, err := f.svc.Cancel(ctx, order.ID, userID, enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.ingredientQuantity(t, restaurantID, "beef"); !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stock must stay consumed, got %s", got)
	}
}

func TestCancelForbiddenForOtherCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, uuid.New())

	_, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateInvoiceLatchesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 10, 2)
	order := f.placeOrder(t, restaurantID, uuid.New())

	// not yet delivered
	_, err := f.svc.GenerateInvoice(ctx, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusDelivered,
	} {
		if _, err := f.svc.UpdateStatus(ctx, order.ID, target); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	invoice, err := f.svc.GenerateInvoice(ctx, order.ID)
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if !regexp.MustCompile(`^INV-[0-9A-F]{8}$`).MatchString(invoice.Number) {
		t.Fatalf("unexpected invoice number %q", invoice.Number)
	}
	hex := strings.ReplaceAll(order.ID.String(), "-", "")
	if invoice.Number != "INV-"+strings.ToUpper(hex[len(hex)-8:]) {
		t.Fatalf("invoice number %q does not match order id", invoice.Number)
	}
	if invoice.TotalCents != order.TotalCents {
		t.Fatalf("invoice total mismatch")
	}

	_, err = f.svc.GenerateInvoice(ctx, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.notifier.invoices) != 1 {
		t.Fatalf("expected one invoice event, got %d", len(f.notifier.invoices))
	}
}

func TestListByRestaurantFiltersStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	f.seedIngredient(t, restaurantID, "beef", 100, 2)

	first := f.placeOrder(t, restaurantID, uuid.New())
	f.placeOrder(t, restaurantID, uuid.New())
	if _, err := f.svc.UpdateStatus(ctx, first.ID, enums.OrderStatusPreparing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	preparing := enums.OrderStatusPreparing
	result, err := f.svc.ListByRestaurant(ctx, ListParams{RestaurantID: restaurantID, Status: &preparing})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Orders) != 1 || result.Orders[0].ID != first.ID {
		t.Fatalf("expected only the preparing order, got %d rows", len(result.Orders))
	}
}
