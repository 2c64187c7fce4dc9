package tables

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:tables_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Table{}); err != nil {
		t.Fatalf("migrate tables: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func createTable(t *testing.T, svc Service, restaurantID uuid.UUID, number int) *models.Table {
	t.Helper()
	table, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID,
		Number:       number,
		Capacity:     4,
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func TestCreateDefaultsToAvailableIndoor(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	table := createTable(t, svc, uuid.New(), 1)

	if table.Availability != enums.TableAvailable {
		t.Fatalf("expected available, got %s", table.Availability)
	}
	if table.Location != enums.TableLocationIndoor {
		t.Fatalf("expected indoor, got %s", table.Location)
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	restaurantID := uuid.New()
	createTable(t, svc, restaurantID, 7)

	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID,
		Number:       7,
		Capacity:     2,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveOnlyFromAvailable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	table := createTable(t, svc, uuid.New(), 1)

	if err := svc.Reserve(ctx, table.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// second reserve loses the guard
	err := svc.Reserve(ctx, table.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Availability != enums.TableReserved {
		t.Fatalf("expected reserved, got %s", got.Availability)
	}
}

func TestReleaseFromReservedAndOccupied(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	table := createTable(t, svc, uuid.New(), 1)

	if err := svc.Reserve(ctx, table.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(ctx, table.ID); err != nil {
		t.Fatalf("release reserved: %v", err)
	}

	if err := svc.Occupy(ctx, table.ID); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := svc.Release(ctx, table.ID); err != nil {
		t.Fatalf("release occupied: %v", err)
	}

	// already available, the release guard must refuse
	err := svc.Release(ctx, table.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransitionUnknownTable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	err := svc.Reserve(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListFiltersByAvailability(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	first := createTable(t, svc, restaurantID, 1)
	createTable(t, svc, restaurantID, 2)

	if err := svc.Reserve(ctx, first.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	reserved := enums.TableReserved
	rows, err := svc.List(ctx, ListParams{RestaurantID: restaurantID, Availability: &reserved})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != first.ID {
		t.Fatalf("expected only the reserved table, got %d rows", len(rows))
	}

	all, err := svc.List(ctx, ListParams{RestaurantID: restaurantID})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(all))
	}
}
