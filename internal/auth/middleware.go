package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
)

type contextKey int

const (
	userIDKey contextKey = iota
	roleKey
)

// WithAuth extracts the Bearer token, validates it, and injects the
// caller's user id and role into the request context — the same shape as
// the teacher's withAuth middleware in internal/api/service.go.
func (a *Authenticator) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			apierrors.HandleError(w, apierrors.NewAuth("missing authorization header"))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			apierrors.HandleError(w, apierrors.NewAuth("malformed authorization header"))
			return
		}

		userID, role, err := a.ValidateToken(token)
		if err != nil {
			apierrors.HandleError(w, apierrors.NewAuth("invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, roleKey, role)
		next(w, r.WithContext(ctx))
	}
}

// UserIDFromContext returns the caller's user id, set by WithAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RoleFromContext returns the caller's role, set by WithAuth.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}
