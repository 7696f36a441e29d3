package cashcount

import (
	"errors"
	"fmt"
	"io"
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

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxRawRows caps the body accepted by POST /finance/rows.
const maxRawRows = 2 << 20

type Handler struct {
	svc    *Service
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	home := appctx.RequireGroupHome()

	read := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleSupervisor))
	read.GET("/cash-counts", h.ListCounts, home)
	read.GET("/cash-counts/:id", h.GetCount, home)
	read.GET("/finance/rows", h.GetFinanceRows, home)
	read.POST("/finance/rows", h.DeriveFinanceRows)

	write := api.Group("", auth.RequireRole(auth.RoleStaff))
	write.POST("/cash-counts", h.CreateCount, home)

	review := api.Group("", auth.RequireRole(auth.RoleSupervisor))
	review.GET("/finance/rows.xlsx", h.ExportFinanceRows, home)
}

type createCountRequest struct {
	ResidentID   int64      `json:"resident_id" validate:"required,gt=0"`
	BalanceCents *int64     `json:"balance_cents" validate:"required_without=Balance"`
	Balance      string     `json:"balance" validate:"required_without=BalanceCents"`
	CountedAt    *time.Time `json:"counted_at"`
	Note         *string    `json:"note" validate:"omitempty,notblank,max=500"`
}

func (h *Handler) CreateCount(c echo.Context) error {
	var req createCountRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, _ := appctx.From(c.Request().Context())

	in := RecordInput{ResidentID: req.ResidentID, Note: req.Note}
	if req.BalanceCents != nil {
		in.BalanceCents = *req.BalanceCents
	} else {
		cents, err := ParseCAD(req.Balance)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		in.BalanceCents = cents
	}
	if req.CountedAt != nil {
		in.CountedAt = *req.CountedAt
	}

	cc, err := h.svc.RecordCount(c.Request().Context(), a.GroupHomeID, a.User.ID, in, h.now())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, cc)
}

func (h *Handler) GetCount(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, _ := appctx.From(c.Request().Context())
	cc, err := h.svc.Get(c.Request().Context(), a.GroupHomeID, id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, cc)
}

func (h *Handler) ListCounts(c echo.Context) error {
	a, _ := appctx.From(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{GroupHomeID: a.GroupHomeID}

	if v := c.QueryParam("resident_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid resident_id")
		}
		f.ResidentID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.QueryParam(param); v != "" {
			t, err := parseDateParam(v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			*dst = &t
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []*CashCount{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetFinanceRows(c echo.Context) error {
	a, _ := appctx.From(c.Request().Context())
	rows, err := h.svc.FinanceRows(c.Request().Context(), a.GroupHomeID, a.User.ID, h.now())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

// DeriveFinanceRows runs the engine over rows posted by the caller. A body
// that is not a JSON array produces an empty list; an oversized body is 413.
func (h *Handler) DeriveFinanceRows(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRawRows+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read body")
	}
	if len(raw) > maxRawRows {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("rows body exceeds %d bytes", maxRawRows))
	}
	staffID := int64(0)
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
		staffID = p.StaffID
	}
	return c.JSON(http.StatusOK, DeriveRows(raw, staffID, h.now()))
}

func (h *Handler) ExportFinanceRows(c echo.Context) error {
	a, _ := appctx.From(c.Request().Context())
	now := h.now()
	data, err := h.svc.ExportWorkbook(c.Request().Context(), a.GroupHomeID, a.User.ID, now)
	if err != nil {
		return h.httpError(err)
	}
	name := fmt.Sprintf("finance-%d-%s.xlsx", a.GroupHomeID, Today(now))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

func (h *Handler) httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "cash count not found")
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrResidentNotInHome):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case backend.IsUpstream(err), errors.Is(err, backend.ErrNotFound):
		h.logger.Error().Err(err).Msg("backend call failed")
		return echo.NewHTTPError(http.StatusBadGateway, "upstream records service failed")
	default:
		h.logger.Error().Err(err).Msg("cash count request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// parseDateParam accepts RFC 3339 or a bare date, which is midnight in the
// reference zone.
func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dayLayout, v, Edmonton)
}
