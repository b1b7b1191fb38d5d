package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
)

var (
	// errors
	ErrNotFound   = errors.New("classroom not found")
	ErrNameExists = errors.New("a classroom with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id int) (Classroom, error)
		QueryClassrooms(ctx context.Context, ordering []core.DBOrdering) ([]Classroom, error)
		UpdateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		// SetClassroomInstruments replaces the classroom's instruments, ignoring unknown ids.
		SetClassroomInstruments(ctx context.Context, classroomID int, instrumentIDs []int) error
		// DeleteClassroomsByID returns the ids that existed and were removed.
		DeleteClassroomsByID(ctx context.Context, ids ...int) ([]int, error)
	}

	Service interface {
		NewSchema() form.Schema[NewClassroom]
		UpdateSchema() form.Schema[UpdateClassroom]

		Create(ctx context.Context, nc NewClassroom) (int, error)
		Query(ctx context.Context) ([]Classroom, error)
		GetByID(ctx context.Context, id int) (Classroom, error)
		UpdateOne(ctx context.Context, uc UpdateClassroom) (Classroom, error)
		SetInstruments(ctx context.Context, si SetInstruments) (Classroom, error)
		DeleteMany(ctx context.Context, ids ...int) ([]int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewClassroom) (int, error) {
	now := time.Now().UTC().Truncate(time.Second)
	cls, err := svc.repo.CreateClassroom(ctx, Classroom{
		Name:      core.CleanString(nc.Name),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, trapNameExists(err, "name")
	}
	return cls.ID, nil
}

func (svc *service) Query(ctx context.Context) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) GetByID(ctx context.Context, id int) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

// UpdateOne renames the classroom uc.ID; ErrNotFound when there is none.
func (svc *service) UpdateOne(ctx context.Context, uc UpdateClassroom) (Classroom, error) {
	cls, err := svc.repo.GetClassroomByID(ctx, uc.ID)
	if err != nil {
		return Classroom{}, err
	}
	cls.Name = core.CleanString(uc.Name)
	cls.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	cls, err = svc.repo.UpdateClassroom(ctx, cls)
	if err != nil {
		return Classroom{}, trapNameExists(err, "classroom-name")
	}
	return cls, nil
}

func (svc *service) SetInstruments(ctx context.Context, si SetInstruments) (Classroom, error) {
	if _, err := svc.repo.GetClassroomByID(ctx, si.ClassroomID); err != nil {
		return Classroom{}, err
	}
	if err := svc.repo.SetClassroomInstruments(ctx, si.ClassroomID, core.UniqueInts(si.InstrumentIDs)); err != nil {
		return Classroom{}, errors.Wrap(err, "setting classroom instruments")
	}
	return svc.repo.GetClassroomByID(ctx, si.ClassroomID)
}

func (svc *service) DeleteMany(ctx context.Context, ids ...int) ([]int, error) {
	ids = core.UniqueInts(ids)
	if len(ids) == 0 {
		return []int{}, nil
	}
	return svc.repo.DeleteClassroomsByID(ctx, ids...)
}

// trapNameExists turns a unique name violation into an error on field.
func trapNameExists(err error, field string) error {
	if errors.Cause(err) == ErrNameExists {
		return core.NewFieldError(field, nameExistsText)
	}
	return err
}
