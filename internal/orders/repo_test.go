package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
)

func seedOrder(t *testing.T, repo Repository, restaurantID, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		RestaurantID: restaurantID,
		UserID:       userID,
		Items:        models.OrderItems{},
		TotalCents:   1200,
		Status:       status,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestUpdateStatusGuardsExpectedState(t *testing.T) {
	repo := NewRepository(openTestDB(t, "orders_repo", &models.Order{}))
	order := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusReceived)

	ok, err := repo.UpdateStatus(context.Background(), order.ID, enums.OrderStatusReceived, enums.OrderStatusPreparing)
	require.NoError(t, err)
	assert.True(t, ok)

	// the guard no longer matches once the row has moved on
	ok, err = repo.UpdateStatus(context.Background(), order.ID, enums.OrderStatusReceived, enums.OrderStatusPreparing)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPreparing, stored.Status)
}

func TestCancelFromActiveOnlyFlipsActiveOrders(t *testing.T) {
	repo := NewRepository(openTestDB(t, "orders_repo", &models.Order{}))

	active := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusPreparing)
	ok, err := repo.CancelFromActive(context.Background(), active.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	delivered := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusDelivered)
	ok, err = repo.CancelFromActive(context.Background(), delivered.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(context.Background(), delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
}

func TestMarkInvoicedWinsExactlyOnce(t *testing.T) {
	repo := NewRepository(openTestDB(t, "orders_repo", &models.Order{}))
	order := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusDelivered)

	ok, err := repo.MarkInvoiced(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkInvoiced(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListByRestaurantPagesWithCursor(t *testing.T) {
	db := openTestDB(t, "orders_repo", &models.Order{})
	repo := NewRepository(db)
	restaurantID := uuid.New()

	for i := 0; i < 3; i++ {
		order := seedOrder(t, repo, restaurantID, uuid.New(), enums.OrderStatusReceived)
		// spread created_at so the keyset ordering is deterministic
		createdAt := time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("created_at", createdAt).Error)
	}
	seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusReceived)

	first, cursor, err := repo.ListByRestaurant(context.Background(), listParams{RestaurantID: restaurantID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)

	rest, next, err := repo.ListByRestaurant(context.Background(), listParams{RestaurantID: restaurantID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)

	for _, order := range append(first, rest...) {
		assert.Equal(t, restaurantID, order.RestaurantID)
	}
}
