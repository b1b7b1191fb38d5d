package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/lesson"
)

const lessonColumns = `id, student_id, teacher_id, reporter_id, instrument_id, classroom_id, start_date, end_date,
	type, origin_id, created_at, updated_at`

type lessonRow struct {
	ID           int      `db:"id"`
	StudentID    int      `db:"student_id"`
	TeacherID    int      `db:"teacher_id"`
	ReporterID   int      `db:"reporter_id"`
	InstrumentID int      `db:"instrument_id"`
	ClassroomID  int      `db:"classroom_id"`
	StartDate    int64    `db:"start_date"`
	EndDate      int64    `db:"end_date"`
	Type         string   `db:"type"`
	OriginID     null.Int `db:"origin_id"`
	CreatedAt    int64    `db:"created_at"`
	UpdatedAt    int64    `db:"updated_at"`
}

func newLessonRow(l lesson.Lesson) lessonRow {
	row := lessonRow{
		ID:           l.ID,
		StudentID:    l.StudentID,
		TeacherID:    l.TeacherID,
		ReporterID:   l.ReporterID,
		InstrumentID: l.InstrumentID,
		ClassroomID:  l.ClassroomID,
		StartDate:    unix(l.StartDate),
		EndDate:      unix(l.EndDate),
		Type:         l.Type,
		CreatedAt:    unix(l.CreatedAt),
		UpdatedAt:    unix(l.UpdatedAt),
	}
	if l.OriginID != nil {
		row.OriginID = null.IntFrom(*l.OriginID)
	}
	return row
}

func (row lessonRow) lesson() lesson.Lesson {
	return lesson.Lesson{
		ID:           row.ID,
		StudentID:    row.StudentID,
		TeacherID:    row.TeacherID,
		ReporterID:   row.ReporterID,
		InstrumentID: row.InstrumentID,
		ClassroomID:  row.ClassroomID,
		StartDate:    fromUnix(row.StartDate),
		EndDate:      fromUnix(row.EndDate),
		Type:         row.Type,
		OriginID:     row.OriginID.Ptr(),
		CreatedAt:    fromUnix(row.CreatedAt),
		UpdatedAt:    fromUnix(row.UpdatedAt),
	}
}

func lessons(rows []lessonRow) []lesson.Lesson {
	out := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.lesson())
	}
	return out
}

type noteRow struct {
	ID         int    `db:"id"`
	Text       string `db:"text"`
	LessonID   int    `db:"lesson_id"`
	ReporterID int    `db:"reporter_id"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

type lessonRepository struct {
	db core.DB
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db core.DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	row := newLessonRow(l)
	q := repo.db.Rebind(`INSERT INTO lessons (student_id, teacher_id, reporter_id, instrument_id, classroom_id,
		start_date, end_date, type, origin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.GetContext(ctx, &l.ID, q,
		row.StudentID, row.TeacherID, row.ReporterID, row.InstrumentID, row.ClassroomID,
		row.StartDate, row.EndDate, row.Type, row.OriginID, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id int) (lesson.Lesson, error) {
	var row lessonRow
	q := repo.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "finding lesson")
	}
	return row.lesson(), nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter lesson.QueryFilter) ([]lesson.Lesson, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.From != nil {
		where = append(where, "start_date >= ?")
		args = append(args, unix(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "start_date < ?")
		args = append(args, unix(*filter.To))
	}
	if filter.StudentID != 0 {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != 0 {
		where = append(where, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}

	query := "SELECT " + lessonColumns + " FROM lessons"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date ASC, id ASC"

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons(rows), nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	row := newLessonRow(l)
	q := repo.db.Rebind(`UPDATE lessons SET student_id = ?, teacher_id = ?, instrument_id = ?, classroom_id = ?,
		start_date = ?, end_date = ?, type = ?, updated_at = ? WHERE id = ? RETURNING id`)
	var id int
	err := repo.db.GetContext(ctx, &id, q,
		row.StudentID, row.TeacherID, row.InstrumentID, row.ClassroomID,
		row.StartDate, row.EndDate, row.Type, row.UpdatedAt, row.ID)
	if err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "updating lesson")
	}
	return l, nil
}

func (repo lessonRepository) DeleteLessonsByID(ctx context.Context, ids ...int) ([]int, error) {
	var deleted []int
	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if err := deleteRelations(ctx, tx, ids,
			"DELETE FROM notes WHERE lesson_id IN (?)",
			"UPDATE lessons SET origin_id = NULL WHERE origin_id IN (?)",
		); err != nil {
			return err
		}
		var err error
		deleted, err = deleteReturning(ctx, tx, "DELETE FROM lessons WHERE id IN (?) RETURNING id", ids)
		return errors.Wrap(err, "deleting lessons")
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (repo lessonRepository) FindOverlapping(ctx context.Context, start, end time.Time, classroomID, teacherID, excludedID int) ([]lesson.Lesson, error) {
	q := repo.db.Rebind("SELECT " + lessonColumns + ` FROM lessons
		WHERE type <> ? AND id <> ? AND start_date < ? AND end_date > ? AND (classroom_id = ? OR teacher_id = ?)
		ORDER BY start_date`)
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows, q, lesson.TypeCanceled, excludedID, unix(end), unix(start), classroomID, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "finding overlapping lessons")
	}
	return lessons(rows), nil
}

func (repo lessonRepository) CreateNote(ctx context.Context, n lesson.Note) (lesson.Note, error) {
	q := repo.db.Rebind(`INSERT INTO notes (text, lesson_id, reporter_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := repo.db.GetContext(ctx, &n.ID, q, n.Text, n.LessonID, n.ReporterID, unix(n.CreatedAt), unix(n.UpdatedAt)); err != nil {
		return lesson.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo lessonRepository) QueryNotes(ctx context.Context, lessonID int) ([]lesson.Note, error) {
	q := repo.db.Rebind(`SELECT id, text, lesson_id, reporter_id, created_at, updated_at FROM notes
		WHERE lesson_id = ? ORDER BY created_at, id`)
	var rows []noteRow
	if err := repo.db.SelectContext(ctx, &rows, q, lessonID); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]lesson.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, lesson.Note{
			ID:         row.ID,
			Text:       row.Text,
			LessonID:   row.LessonID,
			ReporterID: row.ReporterID,
			CreatedAt:  fromUnix(row.CreatedAt),
			UpdatedAt:  fromUnix(row.UpdatedAt),
		})
	}
	return notes, nil
}

func (repo lessonRepository) DeleteNotesByID(ctx context.Context, reporterID int, ids ...int) ([]int, error) {
	query := "DELETE FROM notes WHERE id IN (?)"
	args := []interface{}{ids}
	if reporterID != 0 {
		query += " AND reporter_id = ?"
		args = append(args, reporterID)
	}
	deleted, err := deleteReturning(ctx, repo.db, query+" RETURNING id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "deleting notes")
	}
	return deleted, nil
}
