package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/user"
	"github.com/trezcool/tdm/storage/database"
)

// PrepareDB opens a private in-memory sqlite database with every migration applied.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, core.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(ctx, db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// CreateUser inserts a user of role; pwd may be empty for users who cannot log in.
func CreateUser(t *testing.T, repo user.Repository, name, lastname, email, role, pwd string, instrumentIDs ...int) user.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	var hash []byte
	if pwd != "" {
		cred, err := user.NewCredential(0, pwd)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		hash = cred.Hash
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:          name,
		Lastname:      lastname,
		Email:         email,
		Role:          role,
		InstrumentIDs: instrumentIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, hash)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClassroom(t *testing.T, repo classroom.Repository, name string) classroom.Classroom {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	cls, err := repo.CreateClassroom(context.Background(), classroom.Classroom{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return cls
}

func CreateInstrument(t *testing.T, repo instrument.Repository, name string) instrument.Instrument {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	inst, err := repo.CreateInstrument(context.Background(), instrument.Instrument{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateInstrument() failed: %v", err)
	}
	return inst
}

// CreateLesson books a single lesson of length d starting at start.
func CreateLesson(t *testing.T, repo lesson.Repository, student, teacher user.User, inst instrument.Instrument,
	cls classroom.Classroom, start time.Time, d time.Duration) lesson.Lesson {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	l, err := repo.CreateLesson(context.Background(), lesson.Lesson{
		StudentID:    student.ID,
		TeacherID:    teacher.ID,
		ReporterID:   teacher.ID,
		InstrumentID: inst.ID,
		ClassroomID:  cls.ID,
		StartDate:    start.UTC(),
		EndDate:      start.Add(d).UTC(),
		Type:         lesson.TypeSingle,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return l
}
