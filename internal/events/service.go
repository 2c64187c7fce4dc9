package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

// CreateInput schedules a new restaurant event.
type CreateInput struct {
	RestaurantID uuid.UUID
	Name         string
	Description  *string
	StartAt      time.Time
	EndAt        time.Time
	Capacity     *int
	PriceCents   int
}

// UpdateInput patches an existing event. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
	Capacity    *int
	PriceCents  *int
}

// ListParams filters events. RestaurantID narrows to one restaurant; Status
// filters on the derived status, not the stored one.
type ListParams struct {
	RestaurantID uuid.UUID
	Status       *enums.EventStatus
}

// cancellableStatuses are the phases an event can still be called off from.
var cancellableStatuses = []enums.EventStatus{
	enums.EventStatusScheduled,
	enums.EventStatusOngoing,
}

// Service manages restaurant events. The stored status is only a cache: every
// read derives the phase from the event window and writes it back when it
// drifted, so listings stay truthful without a background job.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Event, error)
	Get(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	List(ctx context.Context, params ListParams) ([]models.Event, error)
	Update(ctx context.Context, restaurantID, eventID uuid.UUID, input UpdateInput) (*models.Event, error)
	Cancel(ctx context.Context, restaurantID, eventID uuid.UUID) (*models.Event, error)
	Delete(ctx context.Context, restaurantID, eventID uuid.UUID) error
}

type service struct {
	repo   Repository
	tables tables.Service
	clock  func() time.Time
}

// NewService wires the event service dependencies.
func NewService(repo Repository, tableSvc tables.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if tableSvc == nil {
		return nil, fmt.Errorf("table service required")
	}
	return &service{repo: repo, tables: tableSvc, clock: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Event, error) {
	if input.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name required")
	}
	if err := validateWindow(input.StartAt, input.EndAt); err != nil {
		return nil, err
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if err := s.validateCapacity(ctx, input.RestaurantID, input.Capacity); err != nil {
		return nil, err
	}

	event := &models.Event{
		RestaurantID: input.RestaurantID,
		Name:         input.Name,
		Description:  input.Description,
		StartAt:      input.StartAt.UTC(),
		EndAt:        input.EndAt.UTC(),
		Capacity:     input.Capacity,
		PriceCents:   input.PriceCents,
		Status:       deriveStatus(input.StartAt, input.EndAt, s.clock()),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create event")
	}
	return event, nil
}

func (s *service) Get(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.activeEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.refreshStatus(ctx, event)
	return event, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Event, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *params.Status))
	}

	rows, err := s.repo.List(ctx, listParams{RestaurantID: params.RestaurantID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}

	events := make([]models.Event, 0, len(rows))
	for i := range rows {
		s.refreshStatus(ctx, &rows[i])
		if params.Status != nil && rows[i].Status != *params.Status {
			continue
		}
		events = append(events, rows[i])
	}
	return events, nil
}

func (s *service) Update(ctx context.Context, restaurantID, eventID uuid.UUID, input UpdateInput) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, restaurantID, eventID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name required")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.StartAt != nil || input.EndAt != nil {
		startAt, endAt := event.StartAt, event.EndAt
		if input.StartAt != nil {
			startAt = input.StartAt.UTC()
			updates["start_at"] = startAt
		}
		if input.EndAt != nil {
			endAt = input.EndAt.UTC()
			updates["end_at"] = endAt
		}
		if err := validateWindow(startAt, endAt); err != nil {
			return nil, err
		}
	}
	if input.Capacity != nil {
		if err := s.validateCapacity(ctx, event.RestaurantID, input.Capacity); err != nil {
			return nil, err
		}
		updates["capacity"] = *input.Capacity
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if len(updates) == 0 {
		s.refreshStatus(ctx, event)
		return event, nil
	}

	if err := s.repo.UpdateColumns(ctx, event.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update event")
	}
	updated, err := s.repo.FindByID(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload event")
	}
	s.refreshStatus(ctx, updated)
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, restaurantID, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, restaurantID, eventID)
	if err != nil {
		return nil, err
	}
	s.refreshStatus(ctx, event)
	if event.Status == enums.EventStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event has already completed")
	}

	ok, err := s.repo.CancelFrom(ctx, event.ID, cancellableStatuses)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel event")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "event is already cancelled")
	}
	event.Status = enums.EventStatusCancelled
	return event, nil
}

func (s *service) Delete(ctx context.Context, restaurantID, eventID uuid.UUID) error {
	event, err := s.ownedEvent(ctx, restaurantID, eventID)
	if err != nil {
		return err
	}
	ok, err := s.repo.Deactivate(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete event")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "event already deleted")
	}
	return nil
}

// refreshStatus derives the phase from the event window and writes it back
// best effort. Cancelled is sticky; a lost guard means another reader or a
// cancellation got there first, and their value stands.
func (s *service) refreshStatus(ctx context.Context, event *models.Event) {
	if event.Status == enums.EventStatusCancelled {
		return
	}
	derived := deriveStatus(event.StartAt, event.EndAt, s.clock())
	if derived == event.Status {
		return
	}
	if ok, err := s.repo.SyncStatus(ctx, event.ID, event.Status, derived); err != nil || !ok {
		return
	}
	event.Status = derived
}

func (s *service) activeEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	if !event.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return event, nil
}

func (s *service) ownedEvent(ctx context.Context, restaurantID, eventID uuid.UUID) (*models.Event, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	event, err := s.activeEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.RestaurantID != restaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return event, nil
}

// validateCapacity rejects events larger than the restaurant's seated floor.
func (s *service) validateCapacity(ctx context.Context, restaurantID uuid.UUID, capacity *int) error {
	if capacity == nil {
		return nil
	}
	if *capacity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}

	rows, err := s.tables.List(ctx, tables.ListParams{RestaurantID: restaurantID})
	if err != nil {
		return err
	}
	total := 0
	for _, table := range rows {
		if table.IsActive {
			total += table.Capacity
		}
	}
	if total > 0 && *capacity > total {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("event capacity %d exceeds restaurant seating of %d", *capacity, total))
	}
	return nil
}

func validateWindow(startAt, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end times required")
	}
	if !endAt.After(startAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}
	return nil
}

func deriveStatus(startAt, endAt, now time.Time) enums.EventStatus {
	switch {
	case now.Before(startAt):
		return enums.EventStatusScheduled
	case now.After(endAt):
		return enums.EventStatusCompleted
	default:
		return enums.EventStatusOngoing
	}
}
