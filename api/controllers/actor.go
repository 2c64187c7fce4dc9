package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/middleware"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
)

// actor is the authenticated caller resolved from request context.
type actor struct {
	UserID       uuid.UUID
	Role         enums.UserRole
	RestaurantID uuid.UUID
}

func actorFromRequest(r *http.Request) (actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	a := actor{UserID: userID, Role: role}
	if rid := middleware.RestaurantIDFromContext(r.Context()); rid != "" {
		parsed, err := uuid.Parse(rid)
		if err != nil {
			return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid restaurant id")
		}
		a.RestaurantID = parsed
	}
	return a, nil
}

// requireRestaurant resolves the actor and insists on restaurant scope.
func requireRestaurant(r *http.Request) (actor, error) {
	a, err := actorFromRequest(r)
	if err != nil {
		return actor{}, err
	}
	if a.RestaurantID == uuid.Nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "restaurant context missing")
	}
	return a, nil
}

func parsePathUUID(r *http.Request, value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}
