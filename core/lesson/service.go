package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("lesson not found")
	ErrNoteNotFound = errors.New("note not found")
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id int) (Lesson, error)
		QueryLessons(ctx context.Context, filter QueryFilter) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// DeleteLessonsByID removes the lessons and their notes, returning the deleted lesson ids.
		DeleteLessonsByID(ctx context.Context, ids ...int) ([]int, error)
		// FindOverlapping returns the non canceled lessons, other than excludedID, that overlap
		// [start, end) in classroomID or with teacherID.
		FindOverlapping(ctx context.Context, start, end time.Time, classroomID, teacherID, excludedID int) ([]Lesson, error)

		CreateNote(ctx context.Context, n Note) (Note, error)
		QueryNotes(ctx context.Context, lessonID int) ([]Note, error)
		// DeleteNotesByID only removes notes written by reporterID, unless it is 0.
		DeleteNotesByID(ctx context.Context, reporterID int, ids ...int) ([]int, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	ClassroomFinder interface {
		GetByID(ctx context.Context, id int) (classroom.Classroom, error)
	}

	InstrumentFinder interface {
		GetByID(ctx context.Context, id int) (instrument.Instrument, error)
	}

	Service interface {
		NewSchema() form.Schema[NewLesson]
		UpdateSchema() form.Schema[UpdateLesson]
		NoteSchema() form.Schema[NewNote]

		Create(ctx context.Context, nl NewLesson) (int, error)
		// Query lists lessons by start date. Teachers only see their own lessons.
		Query(ctx context.Context, by user.Identity, filter QueryFilter) ([]Lesson, error)
		GetByID(ctx context.Context, id int) (Lesson, error)
		UpdateOne(ctx context.Context, ul UpdateLesson) (Lesson, error)
		DeleteMany(ctx context.Context, ids ...int) ([]int, error)

		AddNote(ctx context.Context, by user.Identity, nn NewNote) (int, error)
		Notes(ctx context.Context, lessonID int) ([]Note, error)
		// DeleteNotes removes notes; teachers may only remove their own.
		DeleteNotes(ctx context.Context, by user.Identity, ids ...int) ([]int, error)
	}

	service struct {
		repo        Repository
		users       UserFinder
		classrooms  ClassroomFinder
		instruments InstrumentFinder
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserFinder, classrooms ClassroomFinder, instruments InstrumentFinder) Service {
	return &service{repo: repo, users: users, classrooms: classrooms, instruments: instruments}
}

func (svc *service) Create(ctx context.Context, nl NewLesson) (int, error) {
	if !nl.EndDate.After(nl.StartDate) {
		return 0, core.NewFieldError("end_date", endBeforeStartText)
	}
	if nl.Type == "" {
		nl.Type = TypeSingle
	}

	now := time.Now().UTC().Truncate(time.Second)
	l := Lesson{
		StudentID:    nl.StudentID,
		TeacherID:    nl.TeacherID,
		ReporterID:   nl.ReporterID,
		InstrumentID: nl.InstrumentID,
		ClassroomID:  nl.ClassroomID,
		StartDate:    nl.StartDate.UTC(),
		EndDate:      nl.EndDate.UTC(),
		Type:         nl.Type,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nl.OriginID != 0 {
		origin := nl.OriginID
		l.OriginID = &origin
	}

	l, err := svc.repo.CreateLesson(ctx, l)
	if err != nil {
		return 0, errors.Wrap(err, "inserting lesson")
	}
	return l.ID, nil
}

func (svc *service) Query(ctx context.Context, by user.Identity, filter QueryFilter) ([]Lesson, error) {
	if by.Role == user.RoleTeacher {
		filter.TeacherID = by.ID
	}
	return svc.repo.QueryLessons(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *service) UpdateOne(ctx context.Context, ul UpdateLesson) (Lesson, error) {
	l, err := svc.repo.GetLessonByID(ctx, ul.ID)
	if err != nil {
		return Lesson{}, err
	}
	ul.Apply(&l)
	if !l.EndDate.After(l.StartDate) {
		return Lesson{}, core.NewFieldError("end_date", endBeforeStartText)
	}
	l.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *service) DeleteMany(ctx context.Context, ids ...int) ([]int, error) {
	ids = core.UniqueInts(ids)
	if len(ids) == 0 {
		return []int{}, nil
	}
	return svc.repo.DeleteLessonsByID(ctx, ids...)
}

func (svc *service) AddNote(ctx context.Context, by user.Identity, nn NewNote) (int, error) {
	l, err := svc.repo.GetLessonByID(ctx, nn.LessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return 0, core.NewFieldError("lesson-id", lessonNotFoundText)
		}
		return 0, err
	}
	if by.Role == user.RoleTeacher && l.TeacherID != by.ID {
		return 0, core.NewFieldError("lesson-id", lessonNotFoundText)
	}

	now := time.Now().UTC().Truncate(time.Second)
	n, err := svc.repo.CreateNote(ctx, Note{
		Text:       core.CleanString(nn.Text),
		LessonID:   l.ID,
		ReporterID: by.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return 0, errors.Wrap(err, "inserting note")
	}
	return n.ID, nil
}

func (svc *service) Notes(ctx context.Context, lessonID int) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, lessonID)
}

func (svc *service) DeleteNotes(ctx context.Context, by user.Identity, ids ...int) ([]int, error) {
	ids = core.UniqueInts(ids)
	if len(ids) == 0 {
		return []int{}, nil
	}
	var reporterID int
	if by.Role == user.RoleTeacher {
		reporterID = by.ID
	}
	return svc.repo.DeleteNotesByID(ctx, reporterID, ids...)
}
