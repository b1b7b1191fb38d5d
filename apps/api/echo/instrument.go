package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/optimistic"
)

type instrumentApi struct {
	engine *form.Engine
	svc    instrument.Service
	edits  *optimistic.Controller[editKey, instrument.Instrument]
}

func registerInstrumentAPI(g *echo.Group, gd guard, engine *form.Engine, svc instrument.Service) {
	api := instrumentApi{
		engine: engine,
		svc:    svc,
		edits:  optimistic.NewController[editKey, instrument.Instrument](),
	}

	g.GET("", api.query, gd.requireRead(staffRoles...))

	mg := g.Group("", gd.requireMutation(staffRoles...))
	mg.POST("", api.create)
	mg.POST("/edit", api.update)
	mg.POST("/delete", api.destroyMultiple)
}

func (api *instrumentApi) render(ctx echo.Context, reply form.Reply, action *actionReply, body interface{}) error {
	if wantsJSON(ctx) {
		return respond(ctx, "", page{}, body)
	}
	instruments, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying instruments")
	}
	return respond(ctx, "instruments.html", page{Title: "Instrumentos", Reply: reply, Action: action, Data: instruments}, body)
}

// Handlers

func (api *instrumentApi) query(ctx echo.Context) error {
	if wantsJSON(ctx) {
		instruments, err := api.svc.Query(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "querying instruments")
		}
		return respond(ctx, "", page{}, instruments)
	}
	return api.render(ctx, form.Reply{}, nil, nil)
}

func (api *instrumentApi) create(ctx echo.Context) error {
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
			return errors.Wrap(err, "creating instrument")
		}
		sub.Fail(vErr)
		return api.render(ctx, sub.Reply(), nil, sub.Reply())
	}
	reply := sub.Reply(form.WithResult(id))
	return api.render(ctx, reply, nil, reply)
}

func (api *instrumentApi) update(ctx echo.Context) error {
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

	ui := sub.Value
	current, err := api.svc.GetByID(ctx.Request().Context(), ui.ID)
	if err != nil {
		if errors.Cause(err) == instrument.ErrNotFound {
			reply := notFoundReply("Instrument", ui.ID)
			return api.render(ctx, form.Reply{}, &reply, reply)
		}
		return errors.Wrap(err, "finding instrument")
	}

	pending := current
	pending.Name = core.CleanString(ui.Name)
	display, err := editRecord(api.edits, ui.ID, current, pending, func() (instrument.Instrument, error) {
		return api.svc.UpdateOne(ctx.Request().Context(), ui)
	})
	if err != nil {
		reply, ok := failedEditReply("Instrument", ui.ID, err, instrument.ErrNotFound, display)
		if !ok {
			return errors.Wrap(err, "updating instrument")
		}
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	reply := actionReply{
		Msg:     fmt.Sprintf("Instrument %d updated", display.ID),
		Result:  fmt.Sprintf("Instrument name has been updated to %s", display.Name),
		Display: display,
	}
	return api.render(ctx, form.Reply{}, &reply, reply)
}

func (api *instrumentApi) destroyMultiple(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, instrument.DeleteSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, form.Reply{}, &reply, reply)
	}

	ids, err := api.svc.DeleteMany(ctx.Request().Context(), sub.Value...)
	if err != nil {
		return errors.Wrap(err, "deleting instruments")
	}
	reply := deletedReply("instruments", ids)
	return api.render(ctx, form.Reply{}, &reply, reply)
}
