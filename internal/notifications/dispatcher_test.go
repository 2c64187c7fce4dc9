package notifications

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/metrics"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	attrs  []map[string]string
}

func (c *capturePublisher) PublishNotification(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	c.events = append(c.events, event)
	c.attrs = append(c.attrs, attrs)
	return "msg-1", nil
}

func (c *capturePublisher) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func newDispatcher(t *testing.T) (*Dispatcher, *capturePublisher, *gorm.DB) {
	t.Helper()
	dsn := "file:dispatcher_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate notifications: %v", err)
	}

	publisher := &capturePublisher{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	dispatcher, err := NewDispatcher(NewRepository(db), publisher, metrics.NewDispatchMetrics(nil), time.Second, logg)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher, publisher, db
}

func TestReservationConfirmedPersistsAndPublishes(t *testing.T) {
	t.Parallel()

	dispatcher, publisher, db := newDispatcher(t)
	reservation := &models.Reservation{
		ID:           uuid.New(),
		RestaurantID: uuid.New(),
		TableID:      uuid.New(),
		UserID:       uuid.New(),
		Date:         "2026-09-01",
		Time:         "19:30",
		Status:       enums.ReservationStatusConfirmed,
	}

	dispatcher.ReservationConfirmed(context.Background(), reservation)
	dispatcher.Drain()

	var row models.Notification
	if err := db.First(&row, "user_id = ?", reservation.UserID).Error; err != nil {
		t.Fatalf("load inbox row: %v", err)
	}
	if row.Kind != enums.NotificationReservationConfirmed {
		t.Fatalf("unexpected kind %s", row.Kind)
	}

	events := publisher.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Kind != enums.NotificationReservationConfirmed || *events[0].UserID != reservation.UserID {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestLowStockPublishesWithoutInboxRow(t *testing.T) {
	t.Parallel()

	dispatcher, publisher, db := newDispatcher(t)
	alert := inventory.LowStockAlert{
		RestaurantID: uuid.New(),
		ItemID:       uuid.New(),
		Name:         "beef",
		Remaining:    decimal.NewFromInt(4),
		MinStock:     decimal.NewFromInt(5),
	}

	dispatcher.LowStock(context.Background(), alert)
	dispatcher.Drain()

	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("low stock must not create inbox rows, got %d", count)
	}

	events := publisher.snapshot()
	if len(events) != 1 || events[0].Kind != enums.NotificationLowStock {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestInvoiceGeneratedPublishesNumber(t *testing.T) {
	t.Parallel()

	dispatcher, publisher, _ := newDispatcher(t)
	order := &models.Order{
		ID:           uuid.New(),
		RestaurantID: uuid.New(),
		UserID:       uuid.New(),
		TotalCents:   4500,
		Status:       enums.OrderStatusDelivered,
	}

	dispatcher.InvoiceGenerated(context.Background(), order, "INV-ABCDEF12")
	dispatcher.Drain()

	events := publisher.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Kind != enums.NotificationInvoiceGenerated {
		t.Fatalf("unexpected kind %s", events[0].Kind)
	}
}
