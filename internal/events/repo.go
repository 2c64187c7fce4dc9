package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

// Repository exposes persistence helpers for restaurant events. Status writes
// are guarded single-row updates; a false return means the stored status
// moved under the caller.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SyncStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (bool, error)
	CancelFrom(ctx context.Context, id uuid.UUID, from []enums.EventStatus) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Event, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an event repository bound to the catalog database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	RestaurantID uuid.UUID
}

func (r *repositoryImpl) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repositoryImpl) UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SyncStatus writes a derived status back, guarded on the status it was
// derived from so racing reads cannot clobber a cancellation.
func (r *repositoryImpl) SyncStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CancelFrom(ctx context.Context, id uuid.UUID, from []enums.EventStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumn("status", enums.EventStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{}).Where("is_active = ?", true)
	if params.RestaurantID != uuid.Nil {
		query = query.Where("restaurant_id = ?", params.RestaurantID)
	}

	var events []models.Event
	if err := query.Order("start_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
