package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/user"
)

const (
	endBeforeStartText     = "La hora de fin debe ser posterior a la de inicio"
	classroomBusyText      = "El salón está ocupado en ese horario"
	teacherBusyText        = "El profesor ya tiene una clase en ese horario"
	studentNotFoundText    = "El alumno no existe"
	teacherNotFoundText    = "El profesor no existe"
	instrumentNotFoundText = "El instrumento no existe"
	classroomNotFoundText  = "El salón no existe"
	lessonNotFoundText     = "La clase no existe"
	originNotFoundText     = "La clase de origen no existe"
)

func (svc *service) NewSchema() form.Schema[NewLesson] {
	return form.Schema[NewLesson]{
		Fields: []form.Field{
			{Name: "student_id", Kind: form.Int, Required: true},
			{Name: "teacher_id", Kind: form.Int, Required: true},
			{Name: "instrument_id", Kind: form.Int, Required: true},
			{Name: "classroom_id", Kind: form.Int, Required: true},
			{Name: "start_date", Kind: form.DateTime, Required: true},
			{Name: "end_date", Kind: form.DateTime, Required: true},
			{Name: "type", Kind: form.Enum, Enum: AllTypes},
			{Name: "origin_id", Kind: form.Int},
		},
		Build: func(v form.Values) NewLesson {
			return NewLesson{
				StudentID:    v.Int("student_id"),
				TeacherID:    v.Int("teacher_id"),
				InstrumentID: v.Int("instrument_id"),
				ClassroomID:  v.Int("classroom_id"),
				StartDate:    v.Time("start_date"),
				EndDate:      v.Time("end_date"),
				Type:         v.String("type"),
				OriginID:     v.Int("origin_id"),
			}
		},
		Check: []func(NewLesson) form.Errors{
			func(nl NewLesson) form.Errors {
				return checkDates(nl.StartDate, nl.EndDate)
			},
		},
		Refine: []form.Refinement[NewLesson]{
			func(ctx context.Context, nl NewLesson) (form.Errors, error) {
				l := Lesson{
					StudentID:    nl.StudentID,
					TeacherID:    nl.TeacherID,
					InstrumentID: nl.InstrumentID,
					ClassroomID:  nl.ClassroomID,
					StartDate:    nl.StartDate,
					EndDate:      nl.EndDate,
					Type:         nl.Type,
				}
				errs, err := svc.checkReferences(ctx, l)
				if err != nil || !errs.Empty() {
					return errs, err
				}
				if nl.OriginID != 0 {
					if _, err = svc.repo.GetLessonByID(ctx, nl.OriginID); errors.Cause(err) == ErrNotFound {
						return form.Errors{"origin_id": {originNotFoundText}}, nil
					} else if err != nil {
						return nil, errors.Wrap(err, "finding origin lesson")
					}
				}
				return svc.checkOverlap(ctx, l)
			},
		},
	}
}

// UpdateSchema describes the form editing a lesson; only the id is required.
func (svc *service) UpdateSchema() form.Schema[UpdateLesson] {
	return form.Schema[UpdateLesson]{
		Fields: []form.Field{
			{Name: "lesson-id", Kind: form.Int, Required: true},
			{Name: "student_id", Kind: form.Int},
			{Name: "teacher_id", Kind: form.Int},
			{Name: "instrument_id", Kind: form.Int},
			{Name: "classroom_id", Kind: form.Int},
			{Name: "start_date", Kind: form.DateTime},
			{Name: "end_date", Kind: form.DateTime},
			{Name: "type", Kind: form.Enum, Enum: AllTypes},
		},
		Build: func(v form.Values) UpdateLesson {
			return UpdateLesson{
				ID:           v.Int("lesson-id"),
				StudentID:    v.Int("student_id"),
				TeacherID:    v.Int("teacher_id"),
				InstrumentID: v.Int("instrument_id"),
				ClassroomID:  v.Int("classroom_id"),
				StartDate:    v.Time("start_date"),
				EndDate:      v.Time("end_date"),
				Type:         v.String("type"),
			}
		},
		Refine: []form.Refinement[UpdateLesson]{
			func(ctx context.Context, ul UpdateLesson) (form.Errors, error) {
				l, err := svc.repo.GetLessonByID(ctx, ul.ID)
				if errors.Cause(err) == ErrNotFound {
					return nil, nil // reported by UpdateOne
				} else if err != nil {
					return nil, errors.Wrap(err, "finding lesson")
				}
				ul.Apply(&l)
				if errs := checkDates(l.StartDate, l.EndDate); !errs.Empty() {
					return errs, nil
				}
				errs, err := svc.checkReferences(ctx, l)
				if err != nil || !errs.Empty() {
					return errs, err
				}
				return svc.checkOverlap(ctx, l)
			},
		},
	}
}

func (svc *service) NoteSchema() form.Schema[NewNote] {
	return form.Schema[NewNote]{
		Fields: []form.Field{
			{Name: "lesson-id", Kind: form.Int, Required: true},
			{Name: "text", Kind: form.String, Required: true, Rules: "max=2000"},
		},
		Build: func(v form.Values) NewNote {
			return NewNote{LessonID: v.Int("lesson-id"), Text: v.String("text")}
		},
	}
}

// DeleteSchema reads the repeated id field of a bulk deletion (lessonId, noteId).
func DeleteSchema(field string) form.Schema[[]int] {
	return form.Schema[[]int]{
		Fields: []form.Field{{Name: field, Kind: form.IntList}},
		Build:  func(v form.Values) []int { return v.IntList(field) },
	}
}

// FilterSchema reads the query string of the lessons listing.
func FilterSchema() form.Schema[QueryFilter] {
	return form.Schema[QueryFilter]{
		Fields: []form.Field{
			{Name: "from", Kind: form.Date},
			{Name: "to", Kind: form.Date},
			{Name: "student", Kind: form.Int},
			{Name: "teacher", Kind: form.Int},
		},
		Build: func(v form.Values) QueryFilter {
			qf := QueryFilter{StudentID: v.Int("student"), TeacherID: v.Int("teacher")}
			if v.Has("from") {
				from := v.Time("from")
				qf.From = &from
			}
			if v.Has("to") {
				// inclusive day
				to := v.Time("to").AddDate(0, 0, 1)
				qf.To = &to
			}
			return qf
		},
	}
}

func checkDates(start, end time.Time) form.Errors {
	errs := make(form.Errors)
	if !end.After(start) {
		errs.Add("end_date", endBeforeStartText)
	}
	return errs
}

// checkReferences makes sure the lesson points to a student, a teacher, an instrument and a
// classroom that exist.
func (svc *service) checkReferences(ctx context.Context, l Lesson) (form.Errors, error) {
	errs := make(form.Errors)

	members := []struct {
		field, role, msg string
		id               int
	}{
		{"student_id", user.RoleStudent, studentNotFoundText, l.StudentID},
		{"teacher_id", user.RoleTeacher, teacherNotFoundText, l.TeacherID},
	}
	for _, m := range members {
		usr, err := svc.users.GetByID(ctx, m.id)
		switch {
		case errors.Cause(err) == user.ErrNotFound:
			errs.Add(m.field, m.msg)
		case err != nil:
			return nil, errors.Wrap(err, "finding user")
		case usr.Role != m.role:
			errs.Add(m.field, m.msg)
		}
	}

	if _, err := svc.instruments.GetByID(ctx, l.InstrumentID); errors.Cause(err) == instrument.ErrNotFound {
		errs.Add("instrument_id", instrumentNotFoundText)
	} else if err != nil {
		return nil, errors.Wrap(err, "finding instrument")
	}

	if _, err := svc.classrooms.GetByID(ctx, l.ClassroomID); errors.Cause(err) == classroom.ErrNotFound {
		errs.Add("classroom_id", classroomNotFoundText)
	} else if err != nil {
		return nil, errors.Wrap(err, "finding classroom")
	}
	return errs, nil
}

// checkOverlap rejects a lesson sharing its time slot with another one in the same classroom
// or with the same teacher. Canceled lessons never collide.
func (svc *service) checkOverlap(ctx context.Context, l Lesson) (form.Errors, error) {
	errs := make(form.Errors)
	if l.Type == TypeCanceled {
		return errs, nil
	}
	others, err := svc.repo.FindOverlapping(ctx, l.StartDate, l.EndDate, l.ClassroomID, l.TeacherID, l.ID)
	if err != nil {
		return nil, errors.Wrap(err, "finding overlapping lessons")
	}
	for _, other := range others {
		if other.ClassroomID == l.ClassroomID && len(errs["classroom_id"]) == 0 {
			errs.Add("classroom_id", classroomBusyText)
		}
		if other.TeacherID == l.TeacherID && len(errs["teacher_id"]) == 0 {
			errs.Add("teacher_id", teacherBusyText)
		}
	}
	return errs, nil
}
