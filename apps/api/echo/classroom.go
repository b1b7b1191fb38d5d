package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/optimistic"
)

type classroomApi struct {
	engine      *form.Engine
	svc         classroom.Service
	instruments instrument.Service
	edits       *optimistic.Controller[editKey, classroom.Classroom]
}

type classroomsPage struct {
	Classrooms  []classroom.Classroom
	Instruments []instrument.Instrument
}

func registerClassroomAPI(g *echo.Group, gd guard, engine *form.Engine, svc classroom.Service, instruments instrument.Service) {
	api := classroomApi{
		engine:      engine,
		svc:         svc,
		instruments: instruments,
		edits:       optimistic.NewController[editKey, classroom.Classroom](),
	}

	g.GET("", api.query, gd.requireRead(staffRoles...))

	mg := g.Group("", gd.requireMutation(staffRoles...))
	mg.POST("", api.create)
	mg.POST("/edit", api.update)
	mg.POST("/delete", api.destroyMultiple)
	mg.POST("/instruments", api.setInstruments)
}

func (api *classroomApi) render(ctx echo.Context, reply form.Reply, action *actionReply, body interface{}) error {
	if wantsJSON(ctx) {
		return respond(ctx, "", page{}, body)
	}
	var data classroomsPage
	var err error
	if data.Classrooms, err = api.svc.Query(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if data.Instruments, err = api.instruments.Query(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "querying instruments")
	}
	return respond(ctx, "classrooms.html", page{Title: "Salones", Reply: reply, Action: action, Data: data}, body)
}

// Handlers

func (api *classroomApi) query(ctx echo.Context) error {
	if wantsJSON(ctx) {
		classrooms, err := api.svc.Query(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "querying classrooms")
		}
		return respond(ctx, "", page{}, classrooms)
	}
	return api.render(ctx, form.Reply{}, nil, nil)
}

func (api *classroomApi) create(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.NewSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		return api.render(ctx, sub.Reply(), nil, sub.Reply())
	}

	id, err := api.svc.Create(ctx.Request().Context(), sub.Value)
	if err != nil {
		vErr, ok := core.AsValidationError(err)
		if !ok {
			return errors.Wrap(err, "creating classroom")
		}
		sub.Fail(vErr)
		return api.render(ctx, sub.Reply(), nil, sub.Reply())
	}
	reply := sub.Reply(form.WithResult(id))
	return api.render(ctx, reply, nil, reply)
}

func (api *classroomApi) update(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.UpdateSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	uc := sub.Value
	current, err := api.svc.GetByID(ctx.Request().Context(), uc.ID)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			reply := notFoundReply("Classroom", uc.ID)
			return api.render(ctx, form.Reply{}, &reply, reply)
		}
		return errors.Wrap(err, "finding classroom")
	}

	pending := current
	pending.Name = core.CleanString(uc.Name)
	display, err := editRecord(api.edits, uc.ID, current, pending, func() (classroom.Classroom, error) {
		return api.svc.UpdateOne(ctx.Request().Context(), uc)
	})
	if err != nil {
		reply, ok := failedEditReply("Classroom", uc.ID, err, classroom.ErrNotFound, display)
		if !ok {
			return errors.Wrap(err, "updating classroom")
		}
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	reply := actionReply{
		Msg:     fmt.Sprintf("Classroom %d updated", display.ID),
		Result:  fmt.Sprintf("Classroom name has been updated to %s", display.Name),
		Display: display,
	}
	return api.render(ctx, form.Reply{}, &reply, reply)
}

func (api *classroomApi) destroyMultiple(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, classroom.DeleteSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	ids, err := api.svc.DeleteMany(ctx.Request().Context(), sub.Value...)
	if err != nil {
		return errors.Wrap(err, "deleting classrooms")
	}
	reply := deletedReply("classrooms", ids)
	return api.render(ctx, form.Reply{}, &reply, reply)
}

func (api *classroomApi) setInstruments(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, classroom.InstrumentsSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	cls, err := api.svc.SetInstruments(ctx.Request().Context(), sub.Value)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			reply := notFoundReply("Classroom", sub.Value.ClassroomID)
			return api.render(ctx, form.Reply{}, &reply, reply)
		}
		return errors.Wrap(err, "setting classroom instruments")
	}
	reply := actionReply{
		Msg:     fmt.Sprintf("Classroom %d updated", cls.ID),
		Result:  cls.InstrumentIDs,
		Display: cls,
	}
	return api.render(ctx, form.Reply{}, &reply, reply)
}
