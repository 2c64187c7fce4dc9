package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Notifier receives reservation lifecycle events. Dispatch must never block
// the booking path.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, reservation *models.Reservation)
}

// CreateInput books a table for a slot.
type CreateInput struct {
	RestaurantID uuid.UUID
	TableID      uuid.UUID
	UserID       uuid.UUID
	Date         string
	Time         string
	GuestCount   int
	Notes        *string
}

// ListParams filters reservations.
type ListParams struct {
	UserID       uuid.UUID
	RestaurantID uuid.UUID
	Status       *enums.ReservationStatus
	Date         string
	Limit        int
	Cursor       string
}

// ListResult wraps returned rows and the cursor for the next page.
type ListResult struct {
	Reservations []models.Reservation `json:"reservations"`
	Cursor       string               `json:"cursor"`
}

// Service books and cancels reservations. A booking couples two writes that
// cannot share a transaction: the reservation row and the table availability
// flip. The row is written first; when the table flip loses its guard the row
// is rolled to cancelled as compensation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID, actorID uuid.UUID, role enums.UserRole) (*models.Reservation, error)
	Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	ListByUser(ctx context.Context, params ListParams) (*ListResult, error)
	ListByRestaurant(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo     Repository
	tables   tables.Service
	notifier Notifier
	logg     *logger.Logger
}

// NewService wires the reservation service dependencies.
func NewService(repo Repository, tableSvc tables.Service, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if tableSvc == nil {
		return nil, fmt.Errorf("table service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tables: tableSvc, notifier: notifier, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reservation, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	table, err := s.tables.Get(ctx, input.TableID)
	if err != nil {
		return nil, err
	}
	if !table.IsActive || table.RestaurantID != input.RestaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
	}
	switch table.Availability {
	case enums.TableOccupied:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "table is currently occupied")
	case enums.TableReserved:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "table is already reserved")
	}
	// guest count is optional and defaults to a single diner
	guestCount := input.GuestCount
	if guestCount == 0 {
		guestCount = 1
	}
	if guestCount > table.Capacity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("guest count %d exceeds table capacity %d", guestCount, table.Capacity))
	}

	taken, err := s.repo.HasActive(ctx, input.TableID, input.Date, input.Time)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slot availability")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "table is already booked for this slot")
	}

	reservation := &models.Reservation{
		RestaurantID: input.RestaurantID,
		TableID:      input.TableID,
		UserID:       input.UserID,
		Date:         input.Date,
		Time:         input.Time,
		GuestCount:   guestCount,
		Status:       enums.ReservationStatusConfirmed,
		Notes:        input.Notes,
	}
	if err := s.repo.Create(ctx, reservation); err != nil {
		// the partial unique index caught a racing insert the pre-check missed
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "table is already booked for this slot")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
	}

	if err := s.tables.Reserve(ctx, input.TableID); err != nil {
		// compensate: the booking must not stand without the table flip
		if _, cancelErr := s.repo.UpdateStatus(ctx, reservation.ID,
			enums.ActiveReservationStatuses, enums.ReservationStatusCancelled); cancelErr != nil {
			s.logg.Error(ctx, "reservation compensation failed", cancelErr)
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "table is already reserved")
		}
		return nil, err
	}

	s.notifier.ReservationConfirmed(ctx, reservation)
	return reservation, nil
}

func (s *service) Cancel(ctx context.Context, reservationID, actorID uuid.UUID, role enums.UserRole) (*models.Reservation, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}

	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if role == enums.RoleCustomer && reservation.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}
	if reservation.Status == enums.ReservationStatusCancelled {
		s.repairRelease(ctx, reservation.TableID)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation is already cancelled")
	}

	ok, err := s.repo.UpdateStatus(ctx, reservation.ID,
		enums.ActiveReservationStatuses, enums.ReservationStatusCancelled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel reservation")
	}
	if !ok {
		s.repairRelease(ctx, reservation.TableID)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation is already cancelled")
	}
	reservation.Status = enums.ReservationStatusCancelled

	s.releaseTable(ctx, reservation.TableID)
	return reservation, nil
}

// repairRelease retries a table release that an earlier cancellation failed
// to apply, so a transient availability-store error cannot strand the table
// in reserved. The table is freed only when no live booking still references
// it; a newer reservation may legitimately hold it by now.
func (s *service) repairRelease(ctx context.Context, tableID uuid.UUID) {
	active, err := s.repo.HasActiveForTable(ctx, tableID)
	if err != nil {
		s.logg.Error(ctx, "check table bookings before release retry", err)
		return
	}
	if active {
		return
	}
	s.releaseTable(ctx, tableID)
}

// releaseTable frees the table after a cancellation. A Conflict means it was
// already available, which is exactly the state a retry wants.
func (s *service) releaseTable(ctx context.Context, tableID uuid.UUID) {
	if err := s.tables.Release(ctx, tableID); err != nil {
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			s.logg.Error(ctx, "table release after cancellation failed", err)
		}
	}
}

func (s *service) Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}

func (s *service) ListByUser(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}
	return listResult(rows, next), nil
}

func (s *service) ListByRestaurant(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByRestaurant(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}
	return listResult(rows, next), nil
}

func buildListParams(params ListParams) (listParams, error) {
	query := listParams{
		UserID:       params.UserID,
		RestaurantID: params.RestaurantID,
		Status:       params.Status,
		Date:         params.Date,
		Limit:        params.Limit,
	}
	if params.Status != nil && !params.Status.IsValid() {
		return listParams{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *params.Status))
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return listParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func listResult(rows []models.Reservation, next *pagination.Cursor) *ListResult {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Reservations: rows, Cursor: cursor}
}

func validateCreate(input CreateInput) error {
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.TableID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "date must use YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, input.Time); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "time must use HH:MM")
	}
	if input.GuestCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest count must not be negative")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
