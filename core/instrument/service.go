package instrument

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
)

var (
	// errors
	ErrNotFound   = errors.New("instrument not found")
	ErrNameExists = errors.New("an instrument with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error
		CreateInstrument(ctx context.Context, inst Instrument) (Instrument, error)
		GetInstrumentByID(ctx context.Context, id int) (Instrument, error)
		QueryInstruments(ctx context.Context, ordering []core.DBOrdering) ([]Instrument, error)
		UpdateInstrument(ctx context.Context, inst Instrument) (Instrument, error)
		// DeleteInstrumentsByID returns the ids that existed and were removed, along with their links.
		DeleteInstrumentsByID(ctx context.Context, ids ...int) ([]int, error)
	}

	Service interface {
		NewSchema() form.Schema[NewInstrument]
		UpdateSchema() form.Schema[UpdateInstrument]

		Create(ctx context.Context, ni NewInstrument) (int, error)
		Query(ctx context.Context) ([]Instrument, error)
		GetByID(ctx context.Context, id int) (Instrument, error)
		UpdateOne(ctx context.Context, ui UpdateInstrument) (Instrument, error)
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

func (svc *service) Create(ctx context.Context, ni NewInstrument) (int, error) {
	now := time.Now().UTC().Truncate(time.Second)
	inst, err := svc.repo.CreateInstrument(ctx, Instrument{
		Name:      core.CleanString(ni.Name),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, trapNameExists(err, "name")
	}
	return inst.ID, nil
}

func (svc *service) Query(ctx context.Context) ([]Instrument, error) {
	return svc.repo.QueryInstruments(ctx, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) GetByID(ctx context.Context, id int) (Instrument, error) {
	return svc.repo.GetInstrumentByID(ctx, id)
}

func (svc *service) UpdateOne(ctx context.Context, ui UpdateInstrument) (Instrument, error) {
	inst, err := svc.repo.GetInstrumentByID(ctx, ui.ID)
	if err != nil {
		return Instrument{}, err
	}
	inst.Name = core.CleanString(ui.Name)
	inst.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if inst, err = svc.repo.UpdateInstrument(ctx, inst); err != nil {
		return Instrument{}, trapNameExists(err, "instrument-name")
	}
	return inst, nil
}

func (svc *service) DeleteMany(ctx context.Context, ids ...int) ([]int, error) {
	ids = core.UniqueInts(ids)
	if len(ids) == 0 {
		return []int{}, nil
	}
	return svc.repo.DeleteInstrumentsByID(ctx, ids...)
}

func trapNameExists(err error, field string) error {
	if errors.Cause(err) == ErrNameExists {
		return core.NewFieldError(field, nameExistsText)
	}
	return err
}
