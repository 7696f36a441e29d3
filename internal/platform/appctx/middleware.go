package appctx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
)

// GroupHomeHeader overrides the stored selection for a single request.
const GroupHomeHeader = "X-Group-Home-ID"

// Middleware builds the AppContext from the authenticated principal, the
// X-Group-Home-ID header and the stored selection, in that order. Names
// missing from the token are filled from the stored profile.
func Middleware(store *Store, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			p, ok := auth.PrincipalFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated staff member")
			}

			a := AppContext{User: userFromPrincipal(p)}
			if a.User.FirstName == "" && a.User.LastName == "" {
				if u, err := store.LoadUser(ctx, p.StaffID); err == nil {
					a.User.FirstName, a.User.LastName = u.FirstName, u.LastName
				} else if !errors.Is(err, ErrMiss) {
					logger.Warn().Err(err).Int64("staff_id", p.StaffID).Msg("load stored profile")
				}
			}

			if h := c.Request().Header.Get(GroupHomeHeader); h != "" {
				id, err := strconv.ParseInt(h, 10, 64)
				if err != nil || id <= 0 {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid "+GroupHomeHeader)
				}
				a.GroupHomeID = id
			} else {
				id, err := store.SelectedGroupHome(ctx, p.StaffID)
				if err != nil {
					logger.Warn().Err(err).Int64("staff_id", p.StaffID).Msg("load group home selection")
				}
				a.GroupHomeID = id
			}

			c.SetRequest(c.Request().WithContext(With(ctx, a)))
			return next(c)
		}
	}
}

// RequireGroupHome rejects requests that have no group home in scope.
func RequireGroupHome() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := From(c.Request().Context())
			if !ok || !a.HasHome() {
				return echo.NewHTTPError(http.StatusPreconditionRequired, "select a group home first")
			}
			return next(c)
		}
	}
}
