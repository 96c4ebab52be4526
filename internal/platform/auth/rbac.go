package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin     = "admin"
	RoleClinician = "clinician"
	RolePatient   = "patient"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, required := range roles {
				if HasRole(ctx, required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// HasRole reports whether the principal holds role, or is an admin.
func HasRole(ctx context.Context, role string) bool {
	for _, has := range RolesFromContext(ctx) {
		if has == role || has == RoleAdmin {
			return true
		}
	}
	return false
}

// CanAccessPatient reports whether the principal may read or write records of
// patientID. Clinicians and admins see every patient of their clinic; a
// patient sees only the records linked by the patient_id claim.
func CanAccessPatient(ctx context.Context, patientID uuid.UUID) bool {
	if HasRole(ctx, RoleClinician) {
		return true
	}
	if !HasRole(ctx, RolePatient) {
		return false
	}
	own, err := uuid.Parse(PatientIDFromContext(ctx))
	return err == nil && own == patientID
}

// RequirePatientAccess guards routes carrying a :patient_id parameter.
func RequirePatientAccess(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pid, err := uuid.Parse(c.Param(param))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			if !CanAccessPatient(c.Request().Context(), pid) {
				return echo.NewHTTPError(http.StatusForbidden, "access to patient denied")
			}
			return next(c)
		}
	}
}
