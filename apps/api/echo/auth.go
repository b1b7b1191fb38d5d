package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/user"
	sessionsvc "github.com/trezcool/tdm/services/session"
)

const (
	passwordResetSentText = "Si el correo electrónico pertenece a una cuenta, recibirás un mensaje con las " +
		"instrucciones para restablecer tu contraseña."
	passwordResetDoneText = "Tu contraseña ha sido restablecida"
)

type authApi struct {
	engine   *form.Engine
	sessions *sessionsvc.Manager
	svc      user.Service
	logger   core.Logger
}

func registerAuthAPI(app *echo.Echo, g guard, engine *form.Engine, sessions *sessionsvc.Manager, svc user.Service, logger core.Logger) {
	api := authApi{engine: engine, sessions: sessions, svc: svc, logger: logger}

	app.GET("/", api.loginPage)
	app.POST("/", api.login)
	app.POST("/logout", api.logout)
	app.GET("/home", api.home, g.requireRead(anyRole...))

	// TODO: rate limit `/password-reset` & `/password-reset/confirm`
	app.GET("/password-reset", api.passwordResetPage)
	app.POST("/password-reset", api.requestPasswordReset)
	app.POST("/password-reset/confirm", api.confirmPasswordReset)
}

// Handlers

func (api *authApi) loginPage(ctx echo.Context) error {
	if _, ok := api.sessions.Read(ctx.Request()); ok {
		return ctx.Redirect(http.StatusFound, "/home")
	}
	return ctx.Render(http.StatusOK, "login.html", page{Title: "Iniciar sesión"})
}

func (api *authApi) login(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, user.LoginSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		return respond(ctx, "login.html", page{Title: "Iniciar sesión", Reply: sub.Reply()}, sub.Reply())
	}

	id, err := api.svc.Authenticate(ctx.Request().Context(), sub.Value)
	if err != nil {
		if errors.Cause(err) == user.ErrAuthenticationFailed {
			reply := sub.Reply(form.WithFieldError("password", user.ErrAuthenticationFailed.Error()))
			return respond(ctx, "login.html", page{Title: "Iniciar sesión", Reply: reply}, reply)
		}
		return errors.Wrap(err, "authenticating")
	}

	if err = api.sessions.Create(ctx.Response(), ctx.Request(), id); err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.Redirect(http.StatusFound, "/home")
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.sessions.Destroy(ctx.Response(), ctx.Request()); err != nil {
		return errors.Wrap(err, "destroying session")
	}
	return ctx.Redirect(http.StatusFound, "/")
}

func (api *authApi) home(ctx echo.Context) error {
	id := mustIdentity(ctx)
	return respond(ctx, "home.html", page{Title: "Inicio", Identity: id}, id)
}

func (api *authApi) passwordResetPage(ctx echo.Context) error {
	p := page{Title: "Restablecer contraseña", Data: ctx.QueryParam("token")}
	return ctx.Render(http.StatusOK, "password_reset.html", p)
}

func (api *authApi) requestPasswordReset(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, user.PasswordResetRequestSchema(), data)
	if err != nil {
		return err
	}

	reply := sub.Reply()
	if sub.OK() {
		err = api.svc.RequestPasswordReset(ctx.Request().Context(), sub.Value)
		if !(err == nil || errors.Cause(err) == user.ErrNotFound || errors.Cause(err) == user.ErrCredentialNotFound) {
			// do not return errors to attackers
			api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
		}
		reply = sub.Reply(form.WithResult(passwordResetSentText))
	}
	return respond(ctx, "password_reset.html", page{Title: "Restablecer contraseña", Reply: reply}, reply)
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, user.ResetPasswordSchema(), data)
	if err != nil {
		return err
	}

	if sub.OK() {
		err = api.svc.ResetPassword(ctx.Request().Context(), sub.Value)
		if vErr, ok := core.AsValidationError(err); ok {
			sub.Fail(vErr)
		} else if err != nil {
			return errors.Wrap(err, "resetting password")
		}
	}

	reply := sub.Reply()
	if sub.OK() {
		reply = sub.Reply(form.WithResult(passwordResetDoneText))
	}
	p := page{Title: "Restablecer contraseña", Reply: reply, Data: reply.Value("token")}
	return respond(ctx, "password_reset.html", p, reply)
}
