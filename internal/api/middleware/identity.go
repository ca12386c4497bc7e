package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/amaumene/streambox/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

var userKey contextKey

// IdentityResolver yields the user that requests act on
type IdentityResolver interface {
	ResolveDemoUser(ctx context.Context) (*models.User, error)
}

// Identity resolves the demo user once per request and stores it in the
// request context.
func Identity(resolver IdentityResolver, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.ResolveDemoUser(r.Context())
			if err != nil {
				logger.WithError(err).Error("Failed to resolve demo user")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"message": "Failed to resolve user"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by Identity
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
