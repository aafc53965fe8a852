package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/audit"
	"github.com/medbook/booking-api/internal/tenant"
	"github.com/medbook/booking-api/pkg/errors"
)

// PermissionFunc builds a route guard for an action on a resource. The
// router supplies the middleware implementation so handler packages
// stay free of middleware imports.
type PermissionFunc func(action rbac.Action, resource rbac.Resource) gin.HandlerFunc

// Context keys populated by the middleware chain.
const (
	ContextClaims   = "claims"
	ContextClinicID = "clinic_id"
)

// ClaimsFromContext returns the authenticated caller's claims, or nil
// when authentication did not run.
func ClaimsFromContext(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*model.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// ClinicIDFromContext returns the resolved tenant id.
func ClinicIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextClinicID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// ResolveClinicID returns the effective clinic for the request. When
// the body carries an explicit clinic id it is re-resolved against the
// caller's claims; otherwise the id resolved by the middleware is used.
// On failure the error response is written and false returned.
func ResolveClinicID(c *gin.Context, explicit string) (uuid.UUID, bool) {
	if explicit == "" {
		if id, ok := ClinicIDFromContext(c); ok {
			return id, true
		}
	}
	id, appErr := tenant.Resolve(ClaimsFromContext(c), explicit)
	if appErr != nil {
		c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
		return uuid.Nil, false
	}
	return id, true
}

// ActorFromContext builds the audit identity for the current request.
func ActorFromContext(c *gin.Context) audit.Actor {
	actor := audit.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := ClaimsFromContext(c); claims != nil {
		actor.UserID = claims.UserID
	}
	return actor
}

// WriteError renders an error with its proper status. Unknown error
// types become opaque 500s.
func WriteError(c *gin.Context, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
		return
	}
	c.Error(err)
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}
