package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the JWT bearer token and stores the caller's
// claims in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.validator.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		c.Set(handler.ContextClaims, claims)
		c.Next()
	}
}

// RequirePermission checks the static role table for the given action
// and resource at clinic scope. Cross-tenant access is enforced
// separately by tenant resolution, not here.
func (m *AuthMiddleware) RequirePermission(action rbac.Action, resource rbac.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handler.ClaimsFromContext(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
			return
		}

		if !rbac.Can(claims.Role, action, resource, rbac.ScopeClinic) {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
			return
		}

		c.Next()
	}
}

// RequireRole restricts a route to specific roles regardless of the
// permission table.
func (m *AuthMiddleware) RequireRole(roles ...rbac.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handler.ClaimsFromContext(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
	}
}
