package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/backtolife/recovery/internal/platform/auth"
)

// AuditEntry records one access to patient data.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	UserRoles  []string
	ClinicID   string
	PatientID  string
	Resource   string
	Action     string
	Method     string
	Path       string
	IPAddress  string
	StatusCode int
}

// AuditRecorder persists audit entries beyond the log stream.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/ after it completes. A recorder,
// when given, also receives the entry.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				PatientID:  extractPatientID(c),
				Resource:   extractResource(req.URL.Path),
				Action:     httpMethodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.ClinicID, _ = c.Get("clinic_id").(string)

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("clinic_id", entry.ClinicID).
				Str("patient_id", entry.PatientID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("patient_data_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource returns the first path segment after /api/v1/, or the
// segment after the patient id for /api/v1/patients/:id/<resource>.
func extractResource(path string) string {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) >= 3 && segments[0] == "patients" {
		return segments[2]
	}
	if segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// extractPatientID reads the :patient_id route parameter, falling back to a
// UUID in /api/v1/patients/<id>.
func extractPatientID(c echo.Context) string {
	if pid := c.Param("patient_id"); pid != "" {
		return pid
	}
	rest, ok := strings.CutPrefix(c.Request().URL.Path, "/api/v1/patients/")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(rest, "/")
	if _, err := uuid.Parse(first); err == nil {
		return first
	}
	return ""
}
