package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/metrics"
)

// Publisher pushes notification events onto the broker.
type Publisher interface {
	PublishNotification(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Event is the wire payload published for every notification. The worker
// consumes it to send outbound email.
type Event struct {
	Kind           enums.NotificationKind `json:"kind"`
	NotificationID *uuid.UUID             `json:"notificationId,omitempty"`
	UserID         *uuid.UUID             `json:"userId,omitempty"`
	RestaurantID   *uuid.UUID             `json:"restaurantId,omitempty"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	OccurredAt     time.Time              `json:"occurredAt"`
}

// Dispatcher fans notification events out to the inbox table and the broker.
// It sits behind the order and reservation paths and must never fail them:
// every error is swallowed into logs and metrics. Publishes run detached from
// the request context with their own timeout.
type Dispatcher struct {
	repo      Repository
	publisher Publisher
	metrics   *metrics.DispatchMetrics
	timeout   time.Duration
	logg      *logger.Logger

	wg sync.WaitGroup
}

// NewDispatcher wires the dispatcher dependencies.
func NewDispatcher(repo Repository, publisher Publisher, m *metrics.DispatchMetrics, timeout time.Duration, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{repo: repo, publisher: publisher, metrics: m, timeout: timeout, logg: logg}, nil
}

// LowStock publishes a stock warning for the kitchen. There is no inbox row
// because the alert targets the restaurant, not a user.
func (d *Dispatcher) LowStock(ctx context.Context, alert inventory.LowStockAlert) {
	restaurantID := alert.RestaurantID
	event := Event{
		Kind:         enums.NotificationLowStock,
		RestaurantID: &restaurantID,
		Title:        "Low stock",
		Message: fmt.Sprintf("ingredient %q is down to %s (minimum %s)",
			alert.Name, alert.Remaining, alert.MinStock),
		OccurredAt: time.Now().UTC(),
	}
	d.publish(ctx, event)
}

// ReservationConfirmed records an inbox row for the guest and publishes the
// confirmation event.
func (d *Dispatcher) ReservationConfirmed(ctx context.Context, reservation *models.Reservation) {
	if reservation == nil {
		return
	}
	notification := &models.Notification{
		UserID:       reservation.UserID,
		RestaurantID: &reservation.RestaurantID,
		Kind:         enums.NotificationReservationConfirmed,
		Title:        "Reservation confirmed",
		Message:      fmt.Sprintf("your table is booked for %s at %s", reservation.Date, reservation.Time),
	}
	d.persistAndPublish(ctx, notification)
}

// InvoiceGenerated records an inbox row for the diner and publishes the
// invoice event.
func (d *Dispatcher) InvoiceGenerated(ctx context.Context, order *models.Order, invoiceNumber string) {
	if order == nil {
		return
	}
	notification := &models.Notification{
		UserID:       order.UserID,
		RestaurantID: &order.RestaurantID,
		Kind:         enums.NotificationInvoiceGenerated,
		Title:        "Invoice ready",
		Message:      fmt.Sprintf("invoice %s for %d cents is ready", invoiceNumber, order.TotalCents),
	}
	d.persistAndPublish(ctx, notification)
}

// Drain waits for in-flight publishes, bounded by the dispatch timeout.
func (d *Dispatcher) Drain() {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d.timeout):
	}
}

func (d *Dispatcher) persistAndPublish(ctx context.Context, notification *models.Notification) {
	if err := d.repo.Create(ctx, notification); err != nil {
		d.logg.Error(ctx, "persist notification failed", err)
		d.metrics.IncFailure(notification.Kind.String())
		return
	}

	userID := notification.UserID
	event := Event{
		Kind:           notification.Kind,
		NotificationID: &notification.ID,
		UserID:         &userID,
		RestaurantID:   notification.RestaurantID,
		Title:          notification.Title,
		Message:        notification.Message,
		OccurredAt:     time.Now().UTC(),
	}
	d.publish(ctx, event)
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(ctx, "encode notification event failed", err)
		d.metrics.IncFailure(event.Kind.String())
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// detached from the request so a response never waits on the broker
		publishCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		start := time.Now()
		_, err := d.publisher.PublishNotification(publishCtx, data, map[string]string{
			"kind": event.Kind.String(),
		})
		d.metrics.ObserveDuration(event.Kind.String(), time.Since(start))
		if err != nil {
			d.metrics.IncFailure(event.Kind.String())
			d.logg.Error(publishCtx, "publish notification event failed", err)
			return
		}
		d.metrics.IncSuccess(event.Kind.String())
	}()
}
