package tables

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

// CreateInput registers a new dining table.
type CreateInput struct {
	RestaurantID uuid.UUID
	Number       int
	Capacity     int
	Location     enums.TableLocation
}

// ListParams filters tables for a restaurant.
type ListParams struct {
	RestaurantID uuid.UUID
	Availability *enums.TableAvailability
}

// Service manages dining tables and their availability state. Reserve,
// Release and Occupy are compare-and-set transitions; a Conflict error means
// the table was not in a state the transition accepts.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Table, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Table, error)
	List(ctx context.Context, params ListParams) ([]models.Table, error)
	Reserve(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error
	Occupy(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires the table service dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("table repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Table, error) {
	if input.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.Number <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table number must be positive")
	}
	if input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	if input.Location != "" && !input.Location.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid location %q", input.Location))
	}

	table := &models.Table{
		RestaurantID: input.RestaurantID,
		Number:       input.Number,
		Capacity:     input.Capacity,
		Location:     input.Location,
		Availability: enums.TableAvailable,
		IsActive:     true,
	}
	if table.Location == "" {
		table.Location = enums.TableLocationIndoor
	}

	if err := s.repo.Create(ctx, table); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("table %d already exists", input.Number))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create table")
	}
	return table, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	table, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load table")
	}
	return table, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Table, error) {
	if params.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	var availability *string
	if params.Availability != nil {
		if !params.Availability.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid availability %q", *params.Availability))
		}
		value := params.Availability.String()
		availability = &value
	}

	rows, err := s.repo.ListByRestaurant(ctx, params.RestaurantID, availability)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tables")
	}
	return rows, nil
}

func (s *service) Reserve(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]string{enums.TableAvailable.String()},
		enums.TableReserved,
		"table is not available")
}

func (s *service) Release(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]string{enums.TableReserved.String(), enums.TableOccupied.String()},
		enums.TableAvailable,
		"table is already available")
}

func (s *service) Occupy(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		[]string{enums.TableAvailable.String()},
		enums.TableOccupied,
		"table is not available")
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from []string, to enums.TableAvailability, conflictMsg string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	ok, err := s.repo.Transition(ctx, id, from, to.String())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update table availability")
	}
	if ok {
		return nil
	}

	// distinguish a missing table from a lost race
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load table")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, conflictMsg)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
