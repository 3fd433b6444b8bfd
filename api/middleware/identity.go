package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/api/responses"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
)

// Identity is resolved upstream by the gateway, which forwards the verified
// subject in headers. The middleware only parses and stashes it.
const (
	userIDHeader     = "X-User-Id"
	employeeIDHeader = "X-Employee-Id"
)

type contextKey string

const (
	userIDKey     contextKey = "userID"
	employeeIDKey contextKey = "employeeID"
)

// RequireUser rejects requests without a parseable user identity.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := uuid.Parse(r.Header.Get(userIDHeader))
			if err != nil || userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEmployee rejects requests without a parseable employee identity.
func RequireEmployee(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			employeeID, err := uuid.Parse(r.Header.Get(employeeIDHeader))
			if err != nil || employeeID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "employee identity missing"))
				return
			}
			ctx := WithEmployeeID(r.Context(), employeeID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID stashes the user id on the context.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// WithEmployeeID stashes the employee id on the context.
func WithEmployeeID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, employeeIDKey, id)
}

// UserID returns the authenticated user id, if present.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// EmployeeID returns the authenticated employee id, if present.
func EmployeeID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(employeeIDKey).(uuid.UUID)
	return id, ok
}
