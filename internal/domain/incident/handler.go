package incident

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/appctx"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/backend"
	"github.com/carehub/carehub/internal/platform/validate"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/incident-reports", appctx.RequireGroupHome())

	read := g.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleSupervisor))
	read.GET("", h.ListReports)
	read.GET("/:id", h.GetReport)
	read.GET("/:id/form", h.GetForm)

	staff := g.Group("", auth.RequireRole(auth.RoleStaff))
	staff.POST("", h.CreateReport)
	staff.PATCH("/:id/staff-section", h.UpdateStaffSection)

	review := g.Group("", auth.RequireRole(auth.RoleSupervisor))
	review.PATCH("/:id/review", h.SubmitReview)
	review.POST("/:id/review/check", h.CheckReview)
}

type createReportRequest struct {
	ResidentID          int64              `json:"resident_id" validate:"required,gt=0"`
	IncidentType        IncidentType       `json:"incident_type" validate:"required"`
	SeverityLevel       SeverityLevel      `json:"severity_level" validate:"required"`
	OccurredAt          time.Time          `json:"occurred_at" validate:"required"`
	Location            string             `json:"location" validate:"max=200"`
	Description         string             `json:"description" validate:"required,notblank"`
	PreIncidentContext  string             `json:"pre_incident_context"`
	PostIncidentContext string             `json:"post_incident_context"`
	FallDetails         *FallDetails       `json:"fall_details"`
	MedicationDetails   *MedicationDetails `json:"medication_details"`
	Witnesses           []Witness          `json:"witnesses" validate:"max=20"`
	Notifications       Notifications      `json:"notifications"`
}

type staffSectionRequest struct {
	IncidentType        *IncidentType      `json:"incident_type"`
	SeverityLevel       *SeverityLevel     `json:"severity_level"`
	OccurredAt          *time.Time         `json:"occurred_at"`
	Location            *string            `json:"location" validate:"omitempty,max=200"`
	Description         *string            `json:"description" validate:"omitempty,notblank"`
	PreIncidentContext  *string            `json:"pre_incident_context"`
	PostIncidentContext *string            `json:"post_incident_context"`
	FallDetails         *FallDetails       `json:"fall_details"`
	MedicationDetails   *MedicationDetails `json:"medication_details"`
	Witnesses           *[]Witness         `json:"witnesses"`
	Notifications       *Notifications     `json:"notifications"`
	StaffSignature      *string            `json:"staff_signature"`
	Version             int                `json:"version" validate:"gte=0"`
}

type reviewRequest struct {
	WorkflowStatus       *WorkflowStatus `json:"workflow_status"`
	SupervisorReviewedAt *time.Time      `json:"supervisor_reviewed_at"`
	SupervisorNotes      *string         `json:"supervisor_notes"`
	CorrectiveActions    *string         `json:"corrective_actions"`
	FollowUpRequired     *bool           `json:"follow_up_required"`
	Version              int             `json:"version" validate:"gte=0"`
}

func (r reviewRequest) patch() ReviewPatch {
	return ReviewPatch{
		WorkflowStatus:       r.WorkflowStatus,
		SupervisorReviewedAt: r.SupervisorReviewedAt,
		SupervisorNotes:      r.SupervisorNotes,
		CorrectiveActions:    r.CorrectiveActions,
		FollowUpRequired:     r.FollowUpRequired,
		Version:              r.Version,
	}
}

func session(c echo.Context) (appctx.AppContext, Actor) {
	a, _ := appctx.From(c.Request().Context())
	return a, Actor{StaffID: a.User.ID, Roles: a.User.Roles}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateReport(c echo.Context) error {
	var req createReportRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, actor := session(c)
	r, err := h.svc.Create(c.Request().Context(), a.GroupHomeID, actor, CreateInput{
		ResidentID:          req.ResidentID,
		IncidentType:        req.IncidentType,
		SeverityLevel:       req.SeverityLevel,
		OccurredAt:          req.OccurredAt,
		Location:            req.Location,
		Description:         req.Description,
		PreIncidentContext:  req.PreIncidentContext,
		PostIncidentContext: req.PostIncidentContext,
		FallDetails:         req.FallDetails,
		MedicationDetails:   req.MedicationDetails,
		Witnesses:           req.Witnesses,
		Notifications:       req.Notifications,
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, _ := session(c)
	r, err := h.svc.Get(c.Request().Context(), a.GroupHomeID, id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListReports(c echo.Context) error {
	a, _ := session(c)
	pg := pagination.FromContext(c)
	f := ListFilter{GroupHomeID: a.GroupHomeID}

	if v := c.QueryParam("status"); v != "" {
		s := WorkflowStatus(v)
		f.Status = &s
	}
	for param, dst := range map[string]**int64{"resident_id": &f.ResidentID, "staff_id": &f.StaffID} {
		if v := c.QueryParam(param); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			*dst = &id
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []*IncidentReport{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetForm(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, actor := session(c)
	f, err := h.svc.Form(c.Request().Context(), a.GroupHomeID, actor, id, c.QueryParam("as"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) UpdateStaffSection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req staffSectionRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, actor := session(c)
	r, err := h.svc.UpdateStaffSection(c.Request().Context(), a.GroupHomeID, actor, id, StaffPatch{
		Details: Details{
			IncidentType:        req.IncidentType,
			SeverityLevel:       req.SeverityLevel,
			OccurredAt:          req.OccurredAt,
			Location:            req.Location,
			Description:         req.Description,
			PreIncidentContext:  req.PreIncidentContext,
			PostIncidentContext: req.PostIncidentContext,
		},
		FallDetails:       req.FallDetails,
		MedicationDetails: req.MedicationDetails,
		Witnesses:         req.Witnesses,
		Notifications:     req.Notifications,
		Signature:         req.StaffSignature,
		Version:           req.Version,
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) SubmitReview(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, actor := session(c)
	r, err := h.svc.SubmitReview(c.Request().Context(), a.GroupHomeID, actor, id, req.patch())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// CheckReview reports the gate state for a proposed review without saving.
func (h *Handler) CheckReview(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, actor := session(c)
	g, err := h.svc.CheckReview(c.Request().Context(), a.GroupHomeID, actor, id, req.patch())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) httpError(err error) error {
	var gate *GateError
	switch {
	case errors.As(err, &gate):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "Please complete all required supervisor fields before saving.",
			"missing": gate.Missing,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "incident report not found")
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbiddenSection):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrTransitionNotAllowed), errors.Is(err, ErrClosed), errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case backend.IsUpstream(err):
		h.logger.Error().Err(err).Msg("backend call failed")
		return echo.NewHTTPError(http.StatusBadGateway, "upstream records service failed")
	default:
		h.logger.Error().Err(err).Msg("incident request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
