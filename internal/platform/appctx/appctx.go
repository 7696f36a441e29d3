// Package appctx carries the acting user and the selected group home through
// a request. The user profile outlives sessions; the home selection does not.
package appctx

import (
	"context"

	"github.com/carehub/carehub/internal/platform/auth"
)

type ctxKey struct{}

// User is the persisted part of the application context.
type User struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// AppContext is built per request. GroupHomeID is zero when no home has been
// selected.
type AppContext struct {
	User        User  `json:"user"`
	GroupHomeID int64 `json:"group_home_id,omitempty"`
}

// Persisted returns the subset that may be written to long-lived storage.
func (a AppContext) Persisted() User {
	u := a.User
	u.Roles = append([]string(nil), a.User.Roles...)
	return u
}

func (a AppContext) HasHome() bool { return a.GroupHomeID > 0 }

// Principal converts the user back to an auth principal.
func (a AppContext) Principal() auth.Principal {
	return auth.Principal{
		StaffID:   a.User.ID,
		FirstName: a.User.FirstName,
		LastName:  a.User.LastName,
		Roles:     a.User.Roles,
	}
}

func userFromPrincipal(p auth.Principal) User {
	return User{ID: p.StaffID, FirstName: p.FirstName, LastName: p.LastName, Roles: p.Roles}
}

func With(ctx context.Context, a AppContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// From returns the AppContext stored by the middleware.
func From(ctx context.Context) (AppContext, bool) {
	a, ok := ctx.Value(ctxKey{}).(AppContext)
	return a, ok
}
