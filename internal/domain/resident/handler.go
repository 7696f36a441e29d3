package resident

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/appctx"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/backend"
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
	read := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleSupervisor))
	read.GET("/group-homes", h.ListGroupHomes)
	read.GET("/group-homes/:id", h.GetGroupHome)

	home := appctx.RequireGroupHome()
	read.GET("/residents", h.ListResidents, home)
	read.GET("/residents/:id", h.GetResident, home)
}

func includeInactive(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	return v
}

func (h *Handler) ListGroupHomes(c echo.Context) error {
	homes, err := h.svc.ListGroupHomes(c.Request().Context(), includeInactive(c))
	if err != nil {
		return h.httpError(err)
	}
	if homes == nil {
		homes = []*GroupHome{}
	}
	return c.JSON(http.StatusOK, homes)
}

func (h *Handler) GetGroupHome(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	g, err := h.svc.GetGroupHome(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, g)
}

// ListResidents lists residents of the selected group home.
func (h *Handler) ListResidents(c echo.Context) error {
	a, _ := appctx.From(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{GroupHomeID: a.GroupHomeID, IncludeInactive: includeInactive(c)}
	items, total, err := h.svc.ListResidents(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []*Resident{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetResident(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, _ := appctx.From(c.Request().Context())
	r, err := h.svc.GetResident(c.Request().Context(), a.GroupHomeID, id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case backend.IsUpstream(err):
		h.logger.Error().Err(err).Msg("backend call failed")
		return echo.NewHTTPError(http.StatusBadGateway, "upstream records service failed")
	default:
		h.logger.Error().Err(err).Msg("resident request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
