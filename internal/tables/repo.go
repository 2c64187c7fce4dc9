package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
)

// Repository exposes persistence helpers for dining tables. Availability
// transitions are guarded single-row updates; a false return means the row
// was not in the expected state.
type Repository interface {
	Create(ctx context.Context, table *models.Table) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, availability *string) ([]models.Table, error)
	Transition(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a table repository bound to the catalog database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, table *models.Table) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&table).Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repositoryImpl) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, availability *string) ([]models.Table, error) {
	query := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_active = ?", restaurantID, true).
		Order("number ASC")
	if availability != nil {
		query = query.Where("availability = ?", *availability)
	}

	var tables []models.Table
	if err := query.Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// Transition flips availability only when the current value is one of the
// expected states. Zero rows affected means a concurrent writer got there
// first.
func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Table{}).
		Where("id = ? AND is_active = ? AND availability IN ?", id, true, from).
		UpdateColumn("availability", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
