package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"
	"rental-backend/pkg/utils"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// UserLookup is the slice of the user repository the middleware needs
type UserLookup interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token, reloads the account and puts its Principal in the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.RequireRole()(next)
}

// RequireRole authenticates and then checks the account has one of the allowed roles.
// With no roles any authenticated account passes.
func (m *AuthMiddleware) RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				utils.ErrorMessage(w, apperrors.KindUnauthorized, "authorization header required")
				return
			}

			claims, err := m.jwtManager.ValidateToken(token)
			if err != nil {
				utils.ErrorMessage(w, apperrors.KindUnauthorized, "invalid or expired token")
				return
			}

			// Check database for current user status (for immediate permission updates)
			user, err := m.users.Get(r.Context(), claims.UserID)
			if errors.Is(err, apperrors.NotFound) {
				utils.ErrorMessage(w, apperrors.KindUnauthorized, "user not found")
				return
			}
			if err != nil {
				utils.Error(w, err)
				return
			}
			if !user.IsActive {
				utils.ErrorMessage(w, apperrors.KindForbidden, "account suspended")
				return
			}

			if len(allowedRoles) > 0 && !hasRole(user.Role, allowedRoles) {
				utils.ErrorMessage(w, apperrors.KindForbidden, "insufficient permissions")
				return
			}

			// database role wins over the token's
			p := claims.Principal
			p.Role = user.Role
			ctx := WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is a middleware that ensures the user has admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)(next)
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// bearerToken reads "Authorization: Bearer <token>". Websocket handshakes cannot set headers
// from a browser, so they may pass ?token= instead.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, true
		}
	}
	return "", false
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the caller set by Authenticate
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(auth.Principal)
	return p, ok
}
