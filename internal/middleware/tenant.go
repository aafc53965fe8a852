package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/tenant"
)

// ResolveTenant resolves the tenant for the request from the clinic_id
// query parameter (or clinicId path parameter) and the caller's claims,
// and stores it in the context. Must run after Authenticate. Requests
// that carry a clinic id in the body re-resolve in the handler with the
// same rules.
func ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handler.ClaimsFromContext(c)

		explicit := c.Query("clinic_id")
		if explicit == "" {
			explicit = c.Param("clinicId")
		}

		clinicID, appErr := tenant.Resolve(claims, explicit)
		if appErr != nil {
			// Without an explicit id there may still be one in the
			// request body; handlers that need a tenant and never get
			// one respond 400 themselves.
			if explicit == "" {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(appErr.StatusCode(), handler.NewErrorResponse(appErr.Message))
			return
		}

		c.Set(handler.ContextClinicID, clinicID)
		c.Next()
	}
}
