package middleware

import (
	"net/http"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/responses"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

// RestaurantContext rejects requests whose token carries no restaurant scope.
// Staff and admin routes sit behind it; customer routes do not.
func RestaurantContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RestaurantIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "restaurant context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
