package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

// Repository exposes persistence helpers for reservations.
type Repository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	HasActive(ctx context.Context, tableID uuid.UUID, date, time string) (bool, error)
	HasActiveForTable(ctx context.Context, tableID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.ReservationStatus, to enums.ReservationStatus) (bool, error)
	ListByUser(ctx context.Context, params listParams) ([]models.Reservation, *pagination.Cursor, error)
	ListByRestaurant(ctx context.Context, params listParams) ([]models.Reservation, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the catalog database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	UserID       uuid.UUID
	RestaurantID uuid.UUID
	Status       *enums.ReservationStatus
	Date         string
	Limit        int
	Cursor       *pagination.Cursor
}

func (r *repositoryImpl) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// HasActive reports whether a live booking already holds the slot. The status
// set must stay in lockstep with the partial unique index predicate; the index
// remains the authoritative guard when two inserts race past this check.
func (r *repositoryImpl) HasActive(ctx context.Context, tableID uuid.UUID, date, time string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("table_id = ? AND date = ? AND time = ? AND status IN ?", tableID, date, time, enums.ActiveReservationStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasActiveForTable reports whether any live booking, for any slot, still
// references the table. Used before retrying a table release so a repair can
// never free a table a newer reservation holds.
func (r *repositoryImpl) HasActiveForTable(ctx context.Context, tableID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("table_id = ? AND status IN ?", tableID, enums.ActiveReservationStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.ReservationStatus, to enums.ReservationStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumn("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, params listParams) ([]models.Reservation, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ?", params.UserID)
	return r.list(ctx, query, params)
}

func (r *repositoryImpl) ListByRestaurant(ctx context.Context, params listParams) ([]models.Reservation, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("restaurant_id = ?", params.RestaurantID)
	return r.list(ctx, query, params)
}

func (r *repositoryImpl) list(ctx context.Context, query *gorm.DB, params listParams) ([]models.Reservation, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Date != "" {
		query = query.Where("date = ?", params.Date)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var reservations []models.Reservation
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&reservations).Error; err != nil {
		return nil, nil, err
	}

	if len(reservations) > normalized {
		next := reservations[normalized]
		reservations = reservations[:normalized]
		return reservations, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return reservations, nil, nil
}
