package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tdm/core/user"
	sessionsvc "github.com/trezcool/tdm/services/session"
)

const ctxIdentityKey = "identity"

var (
	anyRole       []string // any signed in user
	staffRoles    = user.StaffRoles
	lessonReaders = []string{user.RoleAdmin, user.RoleEmployee, user.RoleTeacher}
)

type guard struct {
	sessions *sessionsvc.Manager
}

// requireRead protects pages: callers without a session, or without one of roles, are sent back
// to the login page.
func (g guard) requireRead(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, ok := g.sessions.Read(ctx.Request())
			if !ok || !allowed(id, roles) {
				return ctx.Redirect(http.StatusFound, "/")
			}
			ctx.Set(ctxIdentityKey, id)
			return next(ctx)
		}
	}
}

// requireMutation protects actions: 401 without a session, 403 without one of roles.
func (g guard) requireMutation(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, ok := g.sessions.Read(ctx.Request())
			if !ok {
				return errUnauthenticated
			}
			ctx.Set(ctxIdentityKey, id)
			if !allowed(id, roles) {
				return errForbidden
			}
			return next(ctx)
		}
	}
}

func allowed(id user.Identity, roles []string) bool {
	return len(roles) == 0 || id.HasRole(roles...)
}

func contextIdentity(ctx echo.Context) (user.Identity, bool) {
	id, ok := ctx.Get(ctxIdentityKey).(user.Identity)
	return id, ok
}

// mustIdentity returns the identity set by the guard of the current route.
func mustIdentity(ctx echo.Context) user.Identity {
	id, _ := contextIdentity(ctx)
	return id
}
