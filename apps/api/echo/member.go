package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/optimistic"
	"github.com/trezcool/tdm/core/user"
)

var memberLabels = map[string]struct{ kind, noun, title string }{
	user.RoleStudent: {kind: "Student", noun: "students", title: "Alumnos"},
	user.RoleTeacher: {kind: "Teacher", noun: "teachers", title: "Profesores"},
}

// memberApi manages the users of one role (students or teachers).
type memberApi struct {
	role        string
	engine      *form.Engine
	svc         user.Service
	instruments instrument.Service
	edits       *optimistic.Controller[editKey, user.User]
}

type membersPage struct {
	Role        string
	Members     []user.User
	Instruments []instrument.Instrument
}

func registerMemberAPI(g *echo.Group, gd guard, engine *form.Engine, role string, svc user.Service, instruments instrument.Service) {
	api := memberApi{
		role:        role,
		engine:      engine,
		svc:         svc,
		instruments: instruments,
		edits:       optimistic.NewController[editKey, user.User](),
	}

	g.GET("", api.query, gd.requireRead(staffRoles...))

	mg := g.Group("", gd.requireMutation(staffRoles...))
	mg.POST("", api.create)
	mg.POST("/edit", api.update)
	mg.POST("/delete", api.destroyMultiple)
}

func (api *memberApi) members(ctx echo.Context) ([]user.User, error) {
	var ord Ordering
	ord.Bind(ctx)
	filter := user.QueryFilter{Role: api.role, Search: ctx.QueryParam("search")}
	members, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings)
	return members, errors.Wrapf(err, "querying %s", memberLabels[api.role].noun)
}

func (api *memberApi) render(ctx echo.Context, reply form.Reply, action *actionReply, body interface{}) error {
	if wantsJSON(ctx) {
		return respond(ctx, "", page{}, body)
	}
	data := membersPage{Role: api.role}
	var err error
	if data.Members, err = api.members(ctx); err != nil {
		return err
	}
	if data.Instruments, err = api.instruments.Query(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "querying instruments")
	}
	p := page{Title: memberLabels[api.role].title, Reply: reply, Action: action, Data: data}
	return respond(ctx, "members.html", p, body)
}

// Handlers

func (api *memberApi) query(ctx echo.Context) error {
	if wantsJSON(ctx) {
		members, err := api.members(ctx)
		if err != nil {
			return err
		}
		return respond(ctx, "", page{}, members)
	}
	return api.render(ctx, form.Reply{}, nil, nil)
}

func (api *memberApi) create(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.NewUserSchema(api.role), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		return api.render(ctx, sub.Reply(), nil, sub.Reply())
	}

	usr, err := api.svc.Create(ctx.Request().Context(), sub.Value)
	if err != nil {
		vErr, ok := core.AsValidationError(err)
		if !ok {
			return errors.Wrapf(err, "creating %s", api.role)
		}
		sub.Fail(vErr)
		return api.render(ctx, sub.Reply(), nil, sub.Reply())
	}
	reply := sub.Reply(form.WithResult(usr.ID))
	return api.render(ctx, reply, nil, reply)
}

func (api *memberApi) update(ctx echo.Context) error {
	kind := memberLabels[api.role].kind

	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.UpdateUserSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	uu := sub.Value
	current, err := api.svc.GetByID(ctx.Request().Context(), uu.ID)
	if err == nil && current.Role != api.role {
		err = user.ErrNotFound
	}
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			reply := notFoundReply(kind, uu.ID)
			return api.render(ctx, form.Reply{}, &reply, reply)
		}
		return errors.Wrapf(err, "finding %s", api.role)
	}

	pending := current
	if uu.Name != "" {
		pending.Name = uu.Name
	}
	if uu.Lastname != "" {
		pending.Lastname = uu.Lastname
	}
	if uu.Email != "" {
		pending.Email = core.CleanString(uu.Email, true /* lower */)
	}
	display, err := editRecord(api.edits, uu.ID, current, pending, func() (user.User, error) {
		return api.svc.Update(ctx.Request().Context(), api.role, uu)
	})
	if err != nil {
		reply, ok := failedEditReply(kind, uu.ID, err, user.ErrNotFound, display)
		if !ok {
			return errors.Wrapf(err, "updating %s", api.role)
		}
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	reply := actionReply{
		Msg:     fmt.Sprintf("%s %d updated", kind, display.ID),
		Result:  display.ID,
		Display: display,
	}
	return api.render(ctx, form.Reply{}, &reply, reply)
}

func (api *memberApi) destroyMultiple(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, user.DeleteSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	ids, err := api.svc.Delete(ctx.Request().Context(), api.role, sub.Value...)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", memberLabels[api.role].noun)
	}
	reply := deletedReply(memberLabels[api.role].noun, ids)
	return api.render(ctx, form.Reply{}, &reply, reply)
}
