package reservations

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

type stubNotifier struct {
	confirmed []*models.Reservation
}

func (s *stubNotifier) ReservationConfirmed(_ context.Context, reservation *models.Reservation) {
	s.confirmed = append(s.confirmed, reservation)
}

type fixture struct {
	svc      Service
	tables   tables.Service
	notifier *stubNotifier
	db       *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Table{}, &models.Reservation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tableSvc, err := tables.NewService(tables.NewRepository(db))
	if err != nil {
		t.Fatalf("table service: %v", err)
	}
	notifier := &stubNotifier{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), tableSvc, notifier, logg)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}
	return &fixture{svc: svc, tables: tableSvc, notifier: notifier, db: db}
}

func (f *fixture) createTable(t *testing.T, restaurantID uuid.UUID, number, capacity int) *models.Table {
	t.Helper()
	table, err := f.tables.Create(context.Background(), tables.CreateInput{
		RestaurantID: restaurantID,
		Number:       number,
		Capacity:     capacity,
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func validInput(restaurantID, tableID uuid.UUID) CreateInput {
	return CreateInput{
		RestaurantID: restaurantID,
		TableID:      tableID,
		UserID:       uuid.New(),
		Date:         "2026-09-01",
		Time:         "19:30",
		GuestCount:   2,
	}
}

func TestCreateConfirmsAndReservesTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	reservation, err := f.svc.Create(ctx, validInput(restaurantID, table.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if reservation.Status != enums.ReservationStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", reservation.Status)
	}

	got, err := f.tables.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if got.Availability != enums.TableReserved {
		t.Fatalf("expected table reserved, got %s", got.Availability)
	}
	if len(f.notifier.confirmed) != 1 {
		t.Fatalf("expected one confirmation event, got %d", len(f.notifier.confirmed))
	}
}

func TestCreateRejectsReservedTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	if _, err := f.svc.Create(ctx, validInput(restaurantID, table.ID)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := f.svc.Create(ctx, validInput(restaurantID, table.ID))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "table is already reserved" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestCreateRejectsOccupiedTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)
	if err := f.tables.Occupy(ctx, table.ID); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	_, err := f.svc.Create(ctx, validInput(restaurantID, table.ID))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "table is currently occupied" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestCreateRejectsBookedSlotEvenWhenTableFreed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	input := validInput(restaurantID, table.ID)
	if _, err := f.svc.Create(ctx, input); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// staff frees the table but the booking still holds the slot
	if err := f.tables.Release(ctx, table.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	second := validInput(restaurantID, table.ID)
	_, err := f.svc.Create(ctx, second)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "table is already booked for this slot" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestCreateRejectsOverCapacity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 2)

	input := validInput(restaurantID, table.ID)
	input.GuestCount = 5
	_, err := f.svc.Create(context.Background(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateRejectsForeignRestaurantTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	table := f.createTable(t, uuid.New(), 1, 4)

	_, err := f.svc.Create(context.Background(), validInput(uuid.New(), table.ID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

type reserveFailingTables struct {
	tables.Service
}

func (r *reserveFailingTables) Reserve(context.Context, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "table is not available")
}

func TestCreateCompensatesWhenTableFlipLoses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(f.db), &reserveFailingTables{Service: f.tables}, f.notifier, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	_, err = svc.Create(ctx, validInput(restaurantID, table.ID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// the compensated row must not block the slot
	var count int64
	if err := f.db.Model(&models.Reservation{}).
		Where("table_id = ? AND status IN ?", table.ID, enums.ActiveReservationStatuses).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no active reservations, got %d", count)
	}
	if len(f.notifier.confirmed) != 0 {
		t.Fatalf("no confirmation should have been sent")
	}
}

func TestCancelReleasesTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	input := validInput(restaurantID, table.ID)
	reservation, err := f.svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, reservation.ID, input.UserID, enums.RoleCustomer)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.ReservationStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	got, err := f.tables.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if got.Availability != enums.TableAvailable {
		t.Fatalf("expected table available, got %s", got.Availability)
	}

	// the slot is bookable again
	if _, err := f.svc.Create(ctx, validInput(restaurantID, table.ID)); err != nil {
		t.Fatalf("rebook: %v", err)
	}
}

func TestCancelForbiddenForOtherCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	reservation, err := f.svc.Create(ctx, validInput(restaurantID, table.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Cancel(ctx, reservation.ID, uuid.New(), enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}

	// staff may cancel on behalf of anyone
	if _, err := f.svc.Cancel(ctx, reservation.ID, uuid.New(), enums.RoleStaff); err != nil {
		t.Fatalf("staff cancel: %v", err)
	}
}

func TestCancelTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	input := validInput(restaurantID, table.ID)
	reservation, err := f.svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, reservation.ID, input.UserID, enums.RoleCustomer); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = f.svc.Cancel(ctx, reservation.ID, input.UserID, enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

type flakyReleaseTables struct {
	tables.Service
	failures int
}

func (f *flakyReleaseTables) Release(ctx context.Context, id uuid.UUID) error {
	if f.failures > 0 {
		f.failures--
		return pkgerrors.New(pkgerrors.CodeDependency, "availability store unreachable")
	}
	return f.Service.Release(ctx, id)
}

func TestCancelRetryRepairsTableRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	flaky := &flakyReleaseTables{Service: f.tables, failures: 1}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(f.db), flaky, f.notifier, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	input := validInput(restaurantID, table.ID)
	reservation, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// the status flip lands but the transient release failure strands the table
	if _, err := svc.Cancel(ctx, reservation.ID, input.UserID, enums.RoleCustomer); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := f.tables.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if got.Availability != enums.TableReserved {
		t.Fatalf("expected table still reserved after failed release, got %s", got.Availability)
	}

	// retrying the cancel reports the row as already cancelled but retries the release
	_, err = svc.Cancel(ctx, reservation.ID, input.UserID, enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = f.tables.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if got.Availability != enums.TableAvailable {
		t.Fatalf("expected table released on cancel retry, got %s", got.Availability)
	}
}

func TestCancelRetryKeepsTableHeldByNewerReservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	first := validInput(restaurantID, table.ID)
	reservation, err := f.svc.Create(ctx, first)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, reservation.ID, first.UserID, enums.RoleCustomer); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// a newer booking takes the freed table
	second := validInput(restaurantID, table.ID)
	second.Time = "21:00"
	if _, err := f.svc.Create(ctx, second); err != nil {
		t.Fatalf("rebook: %v", err)
	}

	// retrying the old cancel must not release the newer booking's table
	_, err = f.svc.Cancel(ctx, reservation.ID, first.UserID, enums.RoleCustomer)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.tables.Get(ctx, table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if got.Availability != enums.TableReserved {
		t.Fatalf("expected table still reserved for the newer booking, got %s", got.Availability)
	}
}

func TestCreateDefaultsGuestCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	input := validInput(restaurantID, table.ID)
	input.GuestCount = 0
	reservation, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create without guest count: %v", err)
	}
	if reservation.GuestCount != 1 {
		t.Fatalf("expected guest count to default to 1, got %d", reservation.GuestCount)
	}

	input = validInput(restaurantID, table.ID)
	input.GuestCount = -2
	if _, err := f.svc.Create(context.Background(), input); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateValidatesSlotFormat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	input := validInput(restaurantID, table.ID)
	input.Date = "01/09/2026"
	if _, err := f.svc.Create(context.Background(), input); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}

	input = validInput(restaurantID, table.ID)
	input.Time = "7pm"
	if _, err := f.svc.Create(context.Background(), input); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// activeSlotIndexDDL mirrors the catalog schema's double-booking guard so the
// constraint path can be exercised against the test database.
const activeSlotIndexDDL = `CREATE UNIQUE INDEX uq_reservations_active_slot
    ON reservations (table_id, date, time)
    WHERE status IN ('pending', 'confirmed')`

type blindPrecheckRepo struct {
	Repository
}

func (b *blindPrecheckRepo) HasActive(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, nil
}

func TestActiveSlotIndexBlocksRacingInsert(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Exec(activeSlotIndexDDL).Error; err != nil {
		t.Fatalf("create index: %v", err)
	}
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	repo := NewRepository(f.db)
	seed := func(status enums.ReservationStatus) error {
		return repo.Create(ctx, &models.Reservation{
			RestaurantID: restaurantID,
			TableID:      table.ID,
			UserID:       uuid.New(),
			Date:         "2026-09-01",
			Time:         "19:30",
			GuestCount:   2,
			Status:       status,
		})
	}

	if err := seed(enums.ReservationStatusConfirmed); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := seed(enums.ReservationStatusConfirmed); !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	// cancelled rows fall outside the index predicate and never block a slot
	if err := seed(enums.ReservationStatusCancelled); err != nil {
		t.Fatalf("cancelled insert: %v", err)
	}
}

func TestCreateTranslatesIndexViolationToConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Exec(activeSlotIndexDDL).Error; err != nil {
		t.Fatalf("create index: %v", err)
	}
	restaurantID := uuid.New()
	table := f.createTable(t, restaurantID, 1, 4)

	if _, err := f.svc.Create(ctx, validInput(restaurantID, table.ID)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// staff frees the table; the live booking still holds the slot in the index
	if err := f.tables.Release(ctx, table.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	// a pre-check blind to the existing booking models two inserts racing past it
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(&blindPrecheckRepo{Repository: NewRepository(f.db)}, f.tables, f.notifier, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	_, err = svc.Create(ctx, validInput(restaurantID, table.ID))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "table is already booked for this slot" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestListByUserFiltersStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	userID := uuid.New()

	for i := 1; i <= 3; i++ {
		table := f.createTable(t, restaurantID, i, 4)
		input := validInput(restaurantID, table.ID)
		input.UserID = userID
		reservation, err := f.svc.Create(ctx, input)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 1 {
			if _, err := f.svc.Cancel(ctx, reservation.ID, userID, enums.RoleCustomer); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}
	}

	confirmed := enums.ReservationStatusConfirmed
	result, err := f.svc.ListByUser(ctx, ListParams{UserID: userID, Status: &confirmed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Reservations) != 2 {
		t.Fatalf("expected 2 confirmed reservations, got %d", len(result.Reservations))
	}
}
