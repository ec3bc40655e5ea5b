package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	sloghttp "github.com/samber/slog-http"

	"github.com/erazemk/soseska/internal/auth"
	"github.com/erazemk/soseska/internal/lending"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	userKey   contextKey = "user"
)

// AuthMiddleware validates the bearer JWT, rejects revoked tokens and loads
// the current user record into the context. Role, apartment and status are
// taken from that record so changes apply without a new login.
func AuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			claims, err := auth.ValidateToken(secret, tokenStr)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
			if err != nil {
				internalError(w, r, "checking token revocation", err)
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			user, err := store.GetUser(r.Context(), db, claims.UserID)
			if err != nil {
				internalError(w, r, "loading authenticated user", err)
				return
			}
			if user == nil || user.DeletedAt != nil {
				jsonError(w, http.StatusUnauthorized, "account no longer exists")
				return
			}

			sloghttp.AddCustomAttributes(r, slog.Int64("user", user.ID))

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that admits only the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !slices.Contains(roles, user.Role) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireApproved admits only users whose account has been approved.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if user.Status != model.UserStatusApproved {
			jsonError(w, http.StatusForbidden, "account not approved")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// CurrentUser returns the authenticated user from the context.
func CurrentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey).(*model.User)
	return user
}

// actor converts the authenticated user into a lending actor.
func actor(u *model.User) lending.Actor {
	return lending.Actor{UserID: u.ID, Role: u.Role, ApartmentID: u.ApartmentID}
}

// canSeeApartment reports whether u may read data scoped to apartmentID.
func canSeeApartment(u *model.User, apartmentID int64) bool {
	if u.Role == model.RoleSuperAdmin {
		return true
	}
	return u.ApartmentID != nil && *u.ApartmentID == apartmentID
}
