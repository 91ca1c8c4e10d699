package auth

import (
	"context"
	"net/http"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

// RequireDriver validates the JWT and checks that the token belongs to the
// driver named in the path, so one driver cannot act on another's route.
func RequireDriver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if claims.Role != "DRIVER" {
			http.Error(w, "forbidden: not a driver", http.StatusForbidden)
			return
		}

		if driverID := r.PathValue("driver_id"); driverID != "" && driverID != claims.UserID {
			http.Error(w, "forbidden: token does not match driver", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func FromContext(r *http.Request) *Claims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
