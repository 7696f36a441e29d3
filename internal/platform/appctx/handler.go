package appctx

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/validate"
)

// HomeLookup reports whether a group home exists and is active.
type HomeLookup interface {
	HomeExists(ctx context.Context, id int64) (bool, error)
}

type Handler struct {
	store  *Store
	homes  HomeLookup
	logger zerolog.Logger
}

func NewHandler(store *Store, homes HomeLookup, logger zerolog.Logger) *Handler {
	return &Handler{store: store, homes: homes, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/session", h.GetSession)
	api.PUT("/session/group-home", h.SelectGroupHome)
}

// GetSession returns the current AppContext and refreshes the stored profile.
func (h *Handler) GetSession(c echo.Context) error {
	a, ok := From(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	if err := h.store.SaveUser(c.Request().Context(), a); err != nil {
		h.logger.Warn().Err(err).Int64("staff_id", a.User.ID).Msg("persist profile")
	}
	return c.JSON(http.StatusOK, a)
}

type selectHomeRequest struct {
	GroupHomeID int64 `json:"group_home_id" validate:"required,gt=0"`
}

func (h *Handler) SelectGroupHome(c echo.Context) error {
	a, ok := From(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	var req selectHomeRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	exists, err := h.homes.HomeExists(ctx, req.GroupHomeID)
	if err != nil {
		h.logger.Error().Err(err).Int64("group_home_id", req.GroupHomeID).Msg("verify group home")
		return echo.NewHTTPError(http.StatusBadGateway, "could not verify group home")
	}
	if !exists {
		return echo.NewHTTPError(http.StatusNotFound, "group home not found")
	}

	if err := h.store.SelectGroupHome(ctx, a.User.ID, req.GroupHomeID); err != nil {
		h.logger.Error().Err(err).Int64("staff_id", a.User.ID).Msg("store group home selection")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save group home selection")
	}
	a.GroupHomeID = req.GroupHomeID
	return c.JSON(http.StatusOK, a)
}
