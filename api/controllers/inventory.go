package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/responses"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/validators"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

type createInventoryItemRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=120"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Unit        string          `json:"unit" validate:"required"`
	CostPerUnit decimal.Decimal `json:"costPerUnit" validate:"required"`
	MinStock    *decimal.Decimal `json:"minStock"`
}

type adjustInventoryItemRequest struct {
	Quantity    *decimal.Decimal `json:"quantity"`
	MinStock    *decimal.Decimal `json:"minStock"`
	CostPerUnit *decimal.Decimal `json:"costPerUnit"`
	Unit        *string          `json:"unit"`
}

func CreateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createInventoryItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := enums.ParseInventoryUnit(strings.TrimSpace(body.Unit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}

		item, err := svc.Provision(r.Context(), inventory.ProvisionInput{
			RestaurantID: a.RestaurantID,
			Name:         strings.TrimSpace(body.Name),
			Quantity:     body.Quantity,
			Unit:         unit,
			CostPerUnit:  body.CostPerUnit,
			MinStock:     body.MinStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func AdjustInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parsePathUUID(r, chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustInventoryItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.AdjustInput{
			Quantity:    body.Quantity,
			MinStock:    body.MinStock,
			CostPerUnit: body.CostPerUnit,
		}
		if body.Unit != nil {
			unit, err := enums.ParseInventoryUnit(strings.TrimSpace(*body.Unit))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
				return
			}
			input.Unit = &unit
		}

		item, err := svc.Adjust(r.Context(), a.RestaurantID, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func GetInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parsePathUUID(r, chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), a.RestaurantID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), inventory.ListParams{
			RestaurantID: a.RestaurantID,
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
			ActiveOnly:   r.URL.Query().Get("activeOnly") == "true",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeactivateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parsePathUUID(r, chi.URLParam(r, "itemID"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), a.RestaurantID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
