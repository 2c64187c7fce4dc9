package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/responses"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/validators"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

type createTableRequest struct {
	Number   int    `json:"number" validate:"required,min=1"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Location string `json:"location" validate:"omitempty"`
}

func CreateTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "table service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createTableRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := tables.CreateInput{
			RestaurantID: a.RestaurantID,
			Number:       body.Number,
			Capacity:     body.Capacity,
		}
		if raw := strings.TrimSpace(body.Location); raw != "" {
			location, err := enums.ParseTableLocation(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location"))
				return
			}
			input.Location = location
		}

		table, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, table)
	}
}

func GetTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "table service unavailable"))
			return
		}
		table, err := scopedTable(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, table)
	}
}

func ListTables(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "table service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := tables.ListParams{RestaurantID: a.RestaurantID}
		if raw := strings.TrimSpace(r.URL.Query().Get("availability")); raw != "" {
			availability, err := enums.ParseTableAvailability(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability filter"))
				return
			}
			params.Availability = &availability
		}

		rows, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"tables": rows})
	}
}

// ReleaseTable frees a table after the party leaves or a hold is lifted.
func ReleaseTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return tableTransition(svc, logg, svc.Release)
}

// OccupyTable seats a walk-in party at an available table.
func OccupyTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return tableTransition(svc, logg, svc.Occupy)
}

func tableTransition(svc tables.Service, logg *logger.Logger, flip func(ctx context.Context, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "table service unavailable"))
			return
		}
		table, err := scopedTable(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := flip(r.Context(), table.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refreshed, err := svc.Get(r.Context(), table.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refreshed)
	}
}

// scopedTable loads the table and hides rows outside the caller's restaurant.
func scopedTable(r *http.Request, svc tables.Service) (*models.Table, error) {
	a, err := requireRestaurant(r)
	if err != nil {
		return nil, err
	}
	tableID, err := parsePathUUID(r, chi.URLParam(r, "tableID"), "table id")
	if err != nil {
		return nil, err
	}
	table, err := svc.Get(r.Context(), tableID)
	if err != nil {
		return nil, err
	}
	if table.RestaurantID != a.RestaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
	}
	return table, nil
}
