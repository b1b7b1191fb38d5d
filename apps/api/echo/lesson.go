package echoapi

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/optimistic"
	"github.com/trezcool/tdm/core/user"
)

type lessonApi struct {
	engine *form.Engine
	svc    lesson.Service
	edits  *optimistic.Controller[editKey, lesson.Lesson]
}

type lessonsPage struct {
	Lessons []lesson.Lesson
	Types   []string
}

type notesPage struct {
	Lesson lesson.Lesson
	Notes  []lesson.Note
}

func registerLessonAPI(g *echo.Group, gd guard, engine *form.Engine, svc lesson.Service) {
	api := lessonApi{
		engine: engine,
		svc:    svc,
		edits:  optimistic.NewController[editKey, lesson.Lesson](),
	}

	g.GET("", api.query, gd.requireRead(lessonReaders...))
	g.GET("/notes", api.queryNotes, gd.requireRead(lessonReaders...))

	mg := g.Group("", gd.requireMutation(staffRoles...))
	mg.POST("", api.create)
	mg.POST("/edit", api.update)
	mg.POST("/delete", api.destroyMultiple)

	ng := g.Group("/notes", gd.requireMutation(lessonReaders...))
	ng.POST("", api.createNote)
	ng.POST("/delete", api.destroyNotes)
}

func (api *lessonApi) render(ctx echo.Context, filter lesson.QueryFilter, reply form.Reply, action *actionReply, body interface{}) error {
	if wantsJSON(ctx) {
		return respond(ctx, "", page{}, body)
	}
	lessons, err := api.svc.Query(ctx.Request().Context(), mustIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	p := page{Title: "Clases", Reply: reply, Action: action, Data: lessonsPage{Lessons: lessons, Types: lesson.AllTypes}}
	return respond(ctx, "lessons.html", p, body)
}

// Handlers

func (api *lessonApi) query(ctx echo.Context) error {
	sub, err := form.Parse(ctx.Request().Context(), api.engine, lesson.FilterSchema(), ctx.QueryParams())
	if err != nil {
		return err
	}
	if !sub.OK() {
		if wantsJSON(ctx) {
			return respond(ctx, "", page{}, sub.Reply())
		}
		return api.render(ctx, lesson.QueryFilter{}, sub.Reply(), nil, nil)
	}

	if wantsJSON(ctx) {
		lessons, err := api.svc.Query(ctx.Request().Context(), mustIdentity(ctx), sub.Value)
		if err != nil {
			return errors.Wrap(err, "querying lessons")
		}
		return respond(ctx, "", page{}, lessons)
	}
	return api.render(ctx, sub.Value, sub.Reply(form.KeepValues()), nil, nil)
}

func (api *lessonApi) create(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.NewSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		return api.render(ctx, lesson.QueryFilter{}, sub.Reply(), nil, sub.Reply())
	}

	nl := sub.Value
	nl.ReporterID = mustIdentity(ctx).ID
	id, err := api.svc.Create(ctx.Request().Context(), nl)
	if err != nil {
		vErr, ok := core.AsValidationError(err)
		if !ok {
			return errors.Wrap(err, "creating lesson")
		}
		sub.Fail(vErr)
		return api.render(ctx, lesson.QueryFilter{}, sub.Reply(), nil, sub.Reply())
	}
	reply := sub.Reply(form.WithResult(id))
	return api.render(ctx, lesson.QueryFilter{}, reply, nil, reply)
}

func (api *lessonApi) update(ctx echo.Context) error {
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
		return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
	}

	ul := sub.Value
	current, err := api.svc.GetByID(ctx.Request().Context(), ul.ID)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			reply := notFoundReply("Lesson", ul.ID)
			return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
		}
		return errors.Wrap(err, "finding lesson")
	}

	pending := current
	ul.Apply(&pending)
	display, err := editRecord(api.edits, ul.ID, current, pending, func() (lesson.Lesson, error) {
		return api.svc.UpdateOne(ctx.Request().Context(), ul)
	})
	if err != nil {
		reply, ok := failedEditReply("Lesson", ul.ID, err, lesson.ErrNotFound, display)
		if !ok {
			return errors.Wrap(err, "updating lesson")
		}
		return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
	}

	reply := actionReply{
		Msg:     fmt.Sprintf("Lesson %d updated", display.ID),
		Result:  display.ID,
		Display: display,
	}
	return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
}

func (api *lessonApi) destroyMultiple(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	sub, err := form.Parse(ctx.Request().Context(), api.engine, lesson.DeleteSchema("lessonId"), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
	}

	ids, err := api.svc.DeleteMany(ctx.Request().Context(), sub.Value...)
	if err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	reply := deletedReply("lessons", ids)
	return api.render(ctx, lesson.QueryFilter{}, form.Reply{}, &reply, reply)
}

// notesOf returns the lesson id and its notes; teachers only reach their own lessons.
func (api *lessonApi) notesOf(ctx echo.Context, lessonID int) (notesPage, error) {
	l, err := api.svc.GetByID(ctx.Request().Context(), lessonID)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return notesPage{}, errHttpNotFound
		}
		return notesPage{}, errors.Wrap(err, "finding lesson")
	}
	if id := mustIdentity(ctx); id.Role == user.RoleTeacher && l.TeacherID != id.ID {
		return notesPage{}, errHttpNotFound
	}
	notes, err := api.svc.Notes(ctx.Request().Context(), l.ID)
	if err != nil {
		return notesPage{}, errors.Wrap(err, "querying notes")
	}
	return notesPage{Lesson: l, Notes: notes}, nil
}

func (api *lessonApi) queryNotes(ctx echo.Context) error {
	lessonID, err := strconv.Atoi(ctx.QueryParam("lesson"))
	if err != nil {
		return errHttpNotFound
	}
	data, err := api.notesOf(ctx, lessonID)
	if err != nil {
		return err
	}
	return respond(ctx, "notes.html", page{Title: "Notas", Data: data}, data.Notes)
}

func (api *lessonApi) createNote(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	lessonID, _ := strconv.Atoi(data.Get("lesson-id"))
	sub, err := form.Parse(ctx.Request().Context(), api.engine, api.svc.NoteSchema(), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		return api.renderNotes(ctx, lessonID, sub.Reply(), nil, sub.Reply())
	}

	id, err := api.svc.AddNote(ctx.Request().Context(), mustIdentity(ctx), sub.Value)
	if err != nil {
		vErr, ok := core.AsValidationError(err)
		if !ok {
			return errors.Wrap(err, "adding note")
		}
		sub.Fail(vErr)
		return api.renderNotes(ctx, lessonID, sub.Reply(), nil, sub.Reply())
	}
	reply := sub.Reply(form.WithResult(id))
	return api.renderNotes(ctx, lessonID, reply, nil, reply)
}

func (api *lessonApi) destroyNotes(ctx echo.Context) error {
	data, err := formValues(ctx)
	if err != nil {
		return err
	}
	lessonID, _ := strconv.Atoi(data.Get("lesson-id"))
	sub, err := form.Parse(ctx.Request().Context(), api.engine, lesson.DeleteSchema("noteId"), data)
	if err != nil {
		return err
	}
	if !sub.OK() {
		reply := invalidReply(sub.Errors)
		return api.renderNotes(ctx, lessonID, form.Reply{}, &reply, reply)
	}

	ids, err := api.svc.DeleteNotes(ctx.Request().Context(), mustIdentity(ctx), sub.Value...)
	if err != nil {
		return errors.Wrap(err, "deleting notes")
	}
	reply := deletedReply("notes", ids)
	return api.renderNotes(ctx, lessonID, form.Reply{}, &reply, reply)
}

// renderNotes answers a note action, showing the notes of lessonID when it is known.
func (api *lessonApi) renderNotes(ctx echo.Context, lessonID int, reply form.Reply, action *actionReply, body interface{}) error {
	if wantsJSON(ctx) {
		return respond(ctx, "", page{}, body)
	}
	p := page{Title: "Notas", Reply: reply, Action: action}
	if lessonID != 0 {
		data, err := api.notesOf(ctx, lessonID)
		switch {
		case err == nil:
			p.Data = data
		case err != errHttpNotFound:
			return err
		}
	}
	return respond(ctx, "notes.html", p, body)
}
