package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/user"
	sqlxrepos "github.com/trezcool/tdm/storage/database/sqlx"
	"github.com/trezcool/tdm/tests"
)

type repos struct {
	users       user.Repository
	classrooms  classroom.Repository
	instruments instrument.Repository
	lessons     lesson.Repository
}

func setup(t *testing.T) repos {
	db := testutil.PrepareDB(t)
	return repos{
		users:       sqlxrepos.NewUserRepository(db),
		classrooms:  sqlxrepos.NewClassroomRepository(db),
		instruments: sqlxrepos.NewInstrumentRepository(db),
		lessons:     sqlxrepos.NewLessonRepository(db),
	}
}

func TestUserRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	piano := testutil.CreateInstrument(t, r.instruments, "Piano")
	guitar := testutil.CreateInstrument(t, r.instruments, "Guitarra")

	admin := testutil.CreateUser(t, r.users, "Ada", "Lovelace", "admin@tdm.mx", user.RoleAdmin, "password")
	teacher := testutil.CreateUser(t, r.users, "Clara", "Schumann", "clara@tdm.mx", user.RoleTeacher, "", piano.ID, guitar.ID, 999)
	student := testutil.CreateUser(t, r.users, "Franz", "Liszt", "franz@tdm.mx", user.RoleStudent, "")

	t.Run("instrument links skip unknown ids", func(t *testing.T) {
		assert.ElementsMatch(t, []int{piano.ID, guitar.ID}, teacher.InstrumentIDs)
		assert.Equal(t, []int{}, student.InstrumentIDs)
	})

	t.Run("email is unique", func(t *testing.T) {
		_, err := r.users.CreateUser(ctx, user.User{Name: "X", Email: "admin@tdm.mx", Role: user.RoleStudent}, nil)
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
		assert.Equal(t, user.ErrEmailExists, r.users.CheckEmailUniqueness(ctx, "admin@tdm.mx"))
		assert.NoError(t, r.users.CheckEmailUniqueness(ctx, "admin@tdm.mx", admin.ID))
	})

	t.Run("credential", func(t *testing.T) {
		cred, err := r.users.GetCredential(ctx, admin.ID)
		require.NoError(t, err)
		assert.NoError(t, cred.Verify("password"))

		_, err = r.users.GetCredential(ctx, student.ID)
		assert.Equal(t, user.ErrCredentialNotFound, errors.Cause(err))

		newCred, err := user.NewCredential(student.ID, "s3cr3t-pwd")
		require.NoError(t, err)
		require.NoError(t, r.users.SetCredential(ctx, newCred))
		require.NoError(t, r.users.SetCredential(ctx, newCred))
		cred, err = r.users.GetCredential(ctx, student.ID)
		require.NoError(t, err)
		assert.NoError(t, cred.Verify("s3cr3t-pwd"))
	})

	t.Run("get by email", func(t *testing.T) {
		usr, err := r.users.GetUserByEmail(ctx, "clara@tdm.mx")
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, usr.ID)

		_, err = r.users.GetUserByEmail(ctx, "nobody@tdm.mx")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			filter user.QueryFilter
			want   []int
		}{
			{name: "all by lastname", want: []int{student.ID, admin.ID, teacher.ID}},
			{name: "by role", filter: user.QueryFilter{Role: user.RoleTeacher}, want: []int{teacher.ID}},
			{name: "search", filter: user.QueryFilter{Search: "LISZT"}, want: []int{student.ID}},
			{name: "search email", filter: user.QueryFilter{Search: "tdm.mx", Role: user.RoleAdmin}, want: []int{admin.ID}},
			{name: "no match", filter: user.QueryFilter{Search: "lol"}, want: []int{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := r.users.QueryUsers(ctx, tt.filter, nil)
				require.NoError(t, err)
				ids := make([]int, 0, len(users))
				for _, u := range users {
					ids = append(ids, u.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		usr := student
		usr.PhoneNumber = "5512345678"
		_, err := r.users.UpdateUser(ctx, usr)
		require.NoError(t, err)
		got, err := r.users.GetUserByID(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, "5512345678", got.PhoneNumber)

		usr.ID = 999
		_, err = r.users.UpdateUser(ctx, usr)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))

		usr = student
		usr.Email = "clara@tdm.mx"
		_, err = r.users.UpdateUser(ctx, usr)
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	})

	t.Run("delete only matches role", func(t *testing.T) {
		deleted, err := r.users.DeleteUsersByID(ctx, user.RoleStudent, student.ID, teacher.ID, 999)
		require.NoError(t, err)
		assert.Equal(t, []int{student.ID}, deleted)

		_, err = r.users.GetCredential(ctx, student.ID)
		assert.Equal(t, user.ErrCredentialNotFound, errors.Cause(err))

		deleted, err = r.users.DeleteUsersByID(ctx, user.RoleStudent, student.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{}, deleted)
	})
}

func TestClassroomRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	piano := testutil.CreateInstrument(t, r.instruments, "Piano")
	mozart := testutil.CreateClassroom(t, r.classrooms, "Mozart")
	bach := testutil.CreateClassroom(t, r.classrooms, "Bach")

	t.Run("name is unique", func(t *testing.T) {
		_, err := r.classrooms.CreateClassroom(ctx, classroom.Classroom{Name: "Mozart"})
		assert.Equal(t, classroom.ErrNameExists, errors.Cause(err))
		assert.Equal(t, classroom.ErrNameExists, r.classrooms.CheckNameUniqueness(ctx, "Mozart"))
		assert.NoError(t, r.classrooms.CheckNameUniqueness(ctx, "Mozart", mozart.ID))

		_, err = r.classrooms.UpdateClassroom(ctx, classroom.Classroom{ID: bach.ID, Name: "Mozart"})
		assert.Equal(t, classroom.ErrNameExists, errors.Cause(err))
	})

	t.Run("update unknown", func(t *testing.T) {
		_, err := r.classrooms.UpdateClassroom(ctx, classroom.Classroom{ID: 999, Name: "Chopin"})
		assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
	})

	t.Run("instruments", func(t *testing.T) {
		require.NoError(t, r.classrooms.SetClassroomInstruments(ctx, mozart.ID, []int{piano.ID, 999}))
		cls, err := r.classrooms.GetClassroomByID(ctx, mozart.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{piano.ID}, cls.InstrumentIDs)

		require.NoError(t, r.classrooms.SetClassroomInstruments(ctx, mozart.ID, nil))
		cls, err = r.classrooms.GetClassroomByID(ctx, mozart.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{}, cls.InstrumentIDs)
	})

	t.Run("query ordered by name", func(t *testing.T) {
		list, err := r.classrooms.QueryClassrooms(ctx, []core.DBOrdering{{Field: "name", Ascending: true}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Bach", list[0].Name)
		assert.Equal(t, "Mozart", list[1].Name)
	})

	t.Run("delete reports existing ids", func(t *testing.T) {
		deleted, err := r.classrooms.DeleteClassroomsByID(ctx, mozart.ID, bach.ID, 999)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{mozart.ID, bach.ID}, deleted)

		_, err = r.classrooms.GetClassroomByID(ctx, mozart.ID)
		assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
	})
}

func TestInstrumentRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	piano := testutil.CreateInstrument(t, r.instruments, "Piano")
	teacher := testutil.CreateUser(t, r.users, "Clara", "Schumann", "clara@tdm.mx", user.RoleTeacher, "", piano.ID)

	_, err := r.instruments.CreateInstrument(ctx, instrument.Instrument{Name: "Piano"})
	assert.Equal(t, instrument.ErrNameExists, errors.Cause(err))

	inst, err := r.instruments.UpdateInstrument(ctx, instrument.Instrument{ID: piano.ID, Name: "Piano de cola"})
	require.NoError(t, err)
	assert.Equal(t, "Piano de cola", inst.Name)

	deleted, err := r.instruments.DeleteInstrumentsByID(ctx, piano.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, []int{piano.ID}, deleted)

	usr, err := r.users.GetUserByID(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{}, usr.InstrumentIDs)
}

func TestLessonRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	piano := testutil.CreateInstrument(t, r.instruments, "Piano")
	mozart := testutil.CreateClassroom(t, r.classrooms, "Mozart")
	bach := testutil.CreateClassroom(t, r.classrooms, "Bach")
	teacher := testutil.CreateUser(t, r.users, "Clara", "Schumann", "clara@tdm.mx", user.RoleTeacher, "")
	other := testutil.CreateUser(t, r.users, "Robert", "Schumann", "robert@tdm.mx", user.RoleTeacher, "")
	student := testutil.CreateUser(t, r.users, "Franz", "Liszt", "franz@tdm.mx", user.RoleStudent, "")

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	morning := testutil.CreateLesson(t, r.lessons, student, teacher, piano, mozart, at(9), time.Hour)
	noon := testutil.CreateLesson(t, r.lessons, student, other, piano, bach, at(12), time.Hour)
	nextDay := testutil.CreateLesson(t, r.lessons, student, teacher, piano, mozart, at(33), time.Hour)

	t.Run("get", func(t *testing.T) {
		l, err := r.lessons.GetLessonByID(ctx, morning.ID)
		require.NoError(t, err)
		assert.Equal(t, at(9), l.StartDate)
		assert.Nil(t, l.OriginID)

		_, err = r.lessons.GetLessonByID(ctx, 999)
		assert.Equal(t, lesson.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		from, to := at(0), at(24)
		tests := []struct {
			name   string
			filter lesson.QueryFilter
			want   []int
		}{
			{name: "all", want: []int{morning.ID, noon.ID, nextDay.ID}},
			{name: "one day", filter: lesson.QueryFilter{From: &from, To: &to}, want: []int{morning.ID, noon.ID}},
			{name: "by teacher", filter: lesson.QueryFilter{TeacherID: teacher.ID}, want: []int{morning.ID, nextDay.ID}},
			{name: "by student", filter: lesson.QueryFilter{StudentID: teacher.ID}, want: []int{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := r.lessons.QueryLessons(ctx, tt.filter)
				require.NoError(t, err)
				ids := make([]int, 0, len(list))
				for _, l := range list {
					ids = append(ids, l.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("overlapping", func(t *testing.T) {
		tests := []struct {
			name                              string
			start, end                        time.Time
			classroomID, teacherID, excludeID int
			want                              []int
		}{
			{name: "same classroom", start: at(9).Add(30 * time.Minute), end: at(11), classroomID: mozart.ID, want: []int{morning.ID}},
			{name: "same teacher", start: at(12), end: at(13), classroomID: mozart.ID, teacherID: other.ID, want: []int{noon.ID}},
			{name: "back to back", start: at(10), end: at(11), classroomID: mozart.ID, teacherID: teacher.ID, want: []int{}},
			{name: "excluded", start: at(9), end: at(10), classroomID: mozart.ID, excludeID: morning.ID, want: []int{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := r.lessons.FindOverlapping(ctx, tt.start, tt.end, tt.classroomID, tt.teacherID, tt.excludeID)
				require.NoError(t, err)
				ids := make([]int, 0, len(list))
				for _, l := range list {
					ids = append(ids, l.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("canceled lessons never overlap", func(t *testing.T) {
		l := noon
		l.Type = lesson.TypeCanceled
		_, err := r.lessons.UpdateLesson(ctx, l)
		require.NoError(t, err)

		list, err := r.lessons.FindOverlapping(ctx, at(12), at(13), bach.ID, other.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, list)

		l.ID = 999
		_, err = r.lessons.UpdateLesson(ctx, l)
		assert.Equal(t, lesson.ErrNotFound, errors.Cause(err))
	})

	t.Run("notes", func(t *testing.T) {
		n1, err := r.lessons.CreateNote(ctx, lesson.Note{Text: "Escalas", LessonID: morning.ID, ReporterID: teacher.ID})
		require.NoError(t, err)
		n2, err := r.lessons.CreateNote(ctx, lesson.Note{Text: "Arpegios", LessonID: morning.ID, ReporterID: other.ID})
		require.NoError(t, err)

		notes, err := r.lessons.QueryNotes(ctx, morning.ID)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "Escalas", notes[0].Text)

		deleted, err := r.lessons.DeleteNotesByID(ctx, teacher.ID, n1.ID, n2.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{n1.ID}, deleted)

		deleted, err = r.lessons.DeleteNotesByID(ctx, 0, n1.ID, n2.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{n2.ID}, deleted)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := r.lessons.CreateNote(ctx, lesson.Note{Text: "Escalas", LessonID: nextDay.ID, ReporterID: teacher.ID})
		require.NoError(t, err)

		deleted, err := r.lessons.DeleteLessonsByID(ctx, nextDay.ID, 999)
		require.NoError(t, err)
		assert.Equal(t, []int{nextDay.ID}, deleted)

		notes, err := r.lessons.QueryNotes(ctx, nextDay.ID)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}
