package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
	"github.com/backtolife/recovery/internal/platform/auth"
	"github.com/backtolife/recovery/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the assessment endpoints. Extra middleware (for
// example idempotency) applies to the write endpoints only.
func (h *Handler) RegisterRoutes(api *echo.Group, write ...echo.MiddlewareFunc) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RolePatient))
	readGroup.GET("/assessments/:id", h.GetAssessment)
	readGroup.GET("/assessments/:id/score", h.GetScore)
	readGroup.POST("/score/preview", h.PreviewScore)

	patients := readGroup.Group("/patients/:patient_id", auth.RequirePatientAccess("patient_id"))
	patients.GET("/assessments", h.ListAssessments)
	patients.GET("/history", h.GetHistory)
	patients.GET("/schedule", h.GetSchedule)
	patients.GET("/dashboard", h.GetDashboard)

	writeGroup := api.Group("", append([]echo.MiddlewareFunc{auth.RequireRole(auth.RoleClinician, auth.RolePatient)}, write...)...)
	writeGroup.POST("/assessments", h.SubmitAssessment)
}

func (h *Handler) SubmitAssessment(c echo.Context) error {
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if !auth.CanAccessPatient(ctx, a.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "access to patient denied")
	}
	// Milestone and verified progress are clinician judgements.
	if (a.RecoveryMilestone || a.ClinicalProgressVerified) && !auth.HasRole(ctx, auth.RoleClinician) {
		return echo.NewHTTPError(http.StatusForbidden, "clinician role required to assert recovery milestone or verified progress")
	}
	a.ClinicianID = nil
	if auth.HasRole(ctx, auth.RoleClinician) {
		if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
			a.ClinicianID = &id
		}
	}
	if err := h.svc.Submit(ctx, &a); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	if !auth.CanAccessPatient(c.Request().Context(), a.PatientID) {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetScore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, id)
	if err != nil {
		return errorResponse(c, err)
	}
	if !auth.CanAccessPatient(ctx, a.PatientID) {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	view, err := h.svc.Score(ctx, id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	pid, err := h.patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func (h *Handler) GetHistory(c echo.Context) error {
	pid, err := h.patientParam(c)
	if err != nil {
		return err
	}
	views, err := h.svc.History(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": pid, "history": views})
}

func (h *Handler) GetSchedule(c echo.Context) error {
	pid, err := h.patientParam(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.Schedule(c.Request().Context(), pid)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": pid, "checkpoints": rows})
}

func (h *Handler) GetDashboard(c echo.Context) error {
	pid, err := h.patientParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), pid)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) PreviewScore(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Preview(req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// patientParam parses :patient_id. Access is checked by RequirePatientAccess
// on the route group.
func (h *Handler) patientParam(c echo.Context) (uuid.UUID, error) {
	pid, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	return pid, nil
}

type unableResponse struct {
	Status ScoreStatus `json:"status"`
	Reason string      `json:"reason"`
}

type invalidResponse struct {
	Message  string   `json:"message"`
	Region   string   `json:"region,omitempty"`
	Problems []string `json:"problems"`
}

// errorResponse maps service errors onto HTTP responses. Conditions under
// which no score or schedule can be derived render unable_to_calculate.
func errorResponse(c echo.Context, err error) error {
	var invalid *scoring.InvalidAnswersError
	switch {
	case errors.As(err, &invalid):
		return c.JSON(http.StatusUnprocessableEntity, invalidResponse{
			Message:  scoring.ErrInvalidRegionAnswers.Error(),
			Region:   string(invalid.Region),
			Problems: invalid.Problems,
		})
	case errors.Is(err, ErrInvalidAssessment):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	case errors.Is(err, ErrCheckpointCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, scoring.ErrMissingBaseline), errors.Is(err, schedule.ErrNoIntake):
		return c.JSON(http.StatusConflict, unableResponse{Status: ScoreStatusUnableToCalculate, Reason: err.Error()})
	case errors.Is(err, schedule.ErrSchedulerUnavailable):
		return c.JSON(http.StatusServiceUnavailable, unableResponse{Status: ScoreStatusUnableToCalculate, Reason: schedule.ErrSchedulerUnavailable.Error()})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
