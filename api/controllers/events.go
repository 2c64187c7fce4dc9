package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/responses"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/validators"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/events"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

type createEventRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	StartAt     string  `json:"startAt" validate:"required"`
	EndAt       string  `json:"endAt" validate:"required"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=1"`
	PriceCents  int     `json:"priceCents" validate:"omitempty,min=0"`
}

type updateEventRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	StartAt     *string `json:"startAt"`
	EndAt       *string `json:"endAt"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=1"`
	PriceCents  *int    `json:"priceCents" validate:"omitempty,min=0"`
}

func CreateEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		startAt, err := parseEventTime(body.StartAt, "startAt")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		endAt, err := parseEventTime(body.EndAt, "endAt")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Create(r.Context(), events.CreateInput{
			RestaurantID: a.RestaurantID,
			Name:         strings.TrimSpace(body.Name),
			Description:  body.Description,
			StartAt:      startAt,
			EndAt:        endAt,
			Capacity:     body.Capacity,
			PriceCents:   body.PriceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

func GetEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		eventID, err := parsePathUUID(r, chi.URLParam(r, "eventID"), "event id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Get(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

func ListEvents(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		params := events.ListParams{}
		if raw := strings.TrimSpace(r.URL.Query().Get("restaurantId")); raw != "" {
			restaurantID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid restaurant id"))
				return
			}
			params.RestaurantID = restaurantID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseEventStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		rows, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": rows})
	}
}

func UpdateEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := parsePathUUID(r, chi.URLParam(r, "eventID"), "event id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := events.UpdateInput{
			Name:        body.Name,
			Description: body.Description,
			Capacity:    body.Capacity,
			PriceCents:  body.PriceCents,
		}
		if body.StartAt != nil {
			startAt, err := parseEventTime(*body.StartAt, "startAt")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.StartAt = &startAt
		}
		if body.EndAt != nil {
			endAt, err := parseEventTime(*body.EndAt, "endAt")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.EndAt = &endAt
		}

		event, err := svc.Update(r.Context(), a.RestaurantID, eventID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

func CancelEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := parsePathUUID(r, chi.URLParam(r, "eventID"), "event id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Cancel(r.Context(), a.RestaurantID, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

func DeleteEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}
		a, err := requireRestaurant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := parsePathUUID(r, chi.URLParam(r, "eventID"), "event id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), a.RestaurantID, eventID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "deleted"})
	}
}

func parseEventTime(raw, field string) (time.Time, error) {
	value, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be an RFC 3339 timestamp")
	}
	return value, nil
}
