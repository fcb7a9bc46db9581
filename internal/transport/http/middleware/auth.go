package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-service/internal/core/domain"
)

const principalKey = "principal"

// PrincipalResolver turns a raw bearer token into the caller identity.
// Implementations return the anonymous principal instead of failing.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, rawToken string) domain.Principal
}

// OptionalAuth attaches a principal to every request. Missing or invalid
// tokens produce the guest principal and the request continues.
func OptionalAuth(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := domain.AnonymousPrincipal()
		if raw := bearerToken(c); raw != "" {
			principal = resolver.ResolvePrincipal(c.Request.Context(), raw)
		}

		c.Set(principalKey, principal)
		if principal.Authenticated() {
			GetRequestContext(c).UserID = principal.ID
		}

		c.Next()
	}
}

// RequireRole admits principals holding one of roles. Guests get 401,
// authenticated callers with another role get 403.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if !principal.Authenticated() {
			abortWithError(c, http.StatusUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !principal.HasAnyRole(roles...) {
			abortWithError(c, http.StatusForbidden, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal set by OptionalAuth, or a guest.
func GetPrincipal(c *gin.Context) domain.Principal {
	if val, exists := c.Get(principalKey); exists {
		if principal, ok := val.(domain.Principal); ok {
			return principal
		}
	}
	return domain.AnonymousPrincipal()
}

// bearerToken reads the Authorization header first and the token query
// parameter second.
func bearerToken(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(c.Query("token"))
}
