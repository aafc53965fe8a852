// Package tenant resolves which clinic a request operates on.
package tenant

import (
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/pkg/errors"
)

// Resolve determines the effective clinic for a caller.
//
// Super admins may address any clinic but must say which one; everyone
// else is pinned to the clinic in their token. An explicit id that does
// not match the caller's clinic is rejected, never silently corrected.
func Resolve(claims *model.TokenClaims, explicit string) (uuid.UUID, *errors.AppError) {
	if claims == nil {
		return uuid.Nil, errors.Unauthorized("", nil)
	}

	var explicitID *uuid.UUID
	if explicit != "" {
		id, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, errors.BadRequest("invalid clinic ID", err)
		}
		explicitID = &id
	}

	if claims.Role == rbac.RoleSuperAdmin {
		if explicitID != nil {
			return *explicitID, nil
		}
		if claims.ClinicID != nil {
			return *claims.ClinicID, nil
		}
		return uuid.Nil, errors.BadRequest("clinic ID required", nil)
	}

	if claims.ClinicID == nil {
		return uuid.Nil, errors.BadRequest("clinic ID required", nil)
	}
	if explicitID != nil && *explicitID != *claims.ClinicID {
		return uuid.Nil, errors.Forbidden("access to this clinic is denied", nil)
	}
	return *claims.ClinicID, nil
}
