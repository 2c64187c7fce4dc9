package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

// Repository exposes persistence helpers for orders. Status moves and the
// invoice latch are guarded single-row updates; a false return means the
// row was not in the expected state.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	CancelFromActive(ctx context.Context, id uuid.UUID) (bool, error)
	MarkInvoiced(ctx context.Context, id uuid.UUID) (bool, error)
	ListByRestaurant(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error)
	ListByUser(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the catalog database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	Status       *enums.OrderStatus
	Limit        int
	Cursor       *pagination.Cursor
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus advances the order only when it still sits at the expected
// status. Zero rows affected means a concurrent writer moved it first.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CancelFromActive flips the order to cancelled only while it is still in a
// cancellable status.
func (r *repositoryImpl) CancelFromActive(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []enums.OrderStatus{enums.OrderStatusReceived, enums.OrderStatusPreparing}).
		UpdateColumn("status", enums.OrderStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkInvoiced sets the one-shot invoice latch. The predicate makes the latch
// win exactly once under concurrent invoice requests.
func (r *repositoryImpl) MarkInvoiced(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND invoice_generated = ?", id, false).
		UpdateColumn("invoice_generated", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListByRestaurant(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("restaurant_id = ?", params.RestaurantID)
	return r.list(ctx, query, params)
}

func (r *repositoryImpl) ListByUser(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", params.UserID)
	return r.list(ctx, query, params)
}

func (r *repositoryImpl) list(ctx context.Context, query *gorm.DB, params listParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}
