package instrument

import (
	"context"
	"net/url"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
)

type memRepo struct {
	rows    map[int]Instrument
	seq     int
	failErr error // returned by every call when set
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo { return &memRepo{rows: make(map[int]Instrument)} }

func (r *memRepo) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error {
	if r.failErr != nil {
		return r.failErr
	}
	for _, i := range r.rows {
		if i.Name == name && (len(excludedIDs) == 0 || excludedIDs[0] != i.ID) {
			return ErrNameExists
		}
	}
	return nil
}

func (r *memRepo) CreateInstrument(ctx context.Context, inst Instrument) (Instrument, error) {
	if err := r.CheckNameUniqueness(ctx, inst.Name); err != nil {
		return Instrument{}, err
	}
	r.seq++
	inst.ID = r.seq
	r.rows[inst.ID] = inst
	return inst, nil
}

func (r *memRepo) GetInstrumentByID(ctx context.Context, id int) (Instrument, error) {
	if r.failErr != nil {
		return Instrument{}, r.failErr
	}
	if i, ok := r.rows[id]; ok {
		return i, nil
	}
	return Instrument{}, ErrNotFound
}

func (r *memRepo) QueryInstruments(ctx context.Context, ordering []core.DBOrdering) ([]Instrument, error) {
	var rows []Instrument
	for _, i := range r.rows {
		rows = append(rows, i)
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Name < rows[b].Name })
	return rows, r.failErr
}

func (r *memRepo) UpdateInstrument(ctx context.Context, inst Instrument) (Instrument, error) {
	if err := r.CheckNameUniqueness(ctx, inst.Name, inst.ID); err != nil {
		return Instrument{}, err
	}
	r.rows[inst.ID] = inst
	return inst, nil
}

func (r *memRepo) DeleteInstrumentsByID(ctx context.Context, ids ...int) ([]int, error) {
	deleted := []int{}
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, r.failErr
}

func TestService_Schemas(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()
	violinID, err := svc.Create(ctx, NewInstrument{Name: "Violín"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewInstrument{Name: "Piano"})
	require.NoError(t, err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	engine := form.NewEngine(validate, translator)

	t.Run("create duplicate", func(t *testing.T) {
		sub, err := form.Parse(ctx, engine, svc.NewSchema(), url.Values{"name": {"Piano"}})
		require.NoError(t, err)
		assert.Equal(t, form.Errors{"name": {"El instrumento ya existe"}}, sub.Errors)
	})

	t.Run("edit keeps own name", func(t *testing.T) {
		data := url.Values{"instrument-id": {"1"}, "instrument-name": {"Violín"}}
		sub, err := form.Parse(ctx, engine, svc.UpdateSchema(), data)
		require.NoError(t, err)
		require.True(t, sub.OK())
		assert.Equal(t, UpdateInstrument{ID: violinID, Name: "Violín"}, sub.Value)
	})

	t.Run("edit collects sync errors", func(t *testing.T) {
		data := url.Values{"instrument-id": {"uno"}, "instrument-name": {""}}
		sub, err := form.Parse(ctx, engine, svc.UpdateSchema(), data)
		require.NoError(t, err)
		assert.Equal(t, form.Errors{
			"instrument-id":   {"Debe ser un número"},
			"instrument-name": {core.RequiredText},
		}, sub.Errors)
	})

	t.Run("store down", func(t *testing.T) {
		repo.failErr = errors.New("connection refused")
		defer func() { repo.failErr = nil }()

		_, err := form.Parse(ctx, engine, svc.NewSchema(), url.Values{"name": {"Cello"}})
		assert.EqualError(t, err, "refining form: checking instrument name uniqueness: connection refused")
	})
}

func TestService_CRUD(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	var ids []int
	for _, name := range []string{"Violín", "Piano", "Guitarra"} {
		id, err := svc.Create(ctx, NewInstrument{Name: name})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := svc.Query(ctx)
	require.NoError(t, err)
	var names []string
	for _, i := range all {
		names = append(names, i.Name)
	}
	assert.Equal(t, []string{"Guitarra", "Piano", "Violín"}, names)

	_, err = svc.UpdateOne(ctx, UpdateInstrument{ID: 42, Name: "Arpa"})
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	_, err = svc.UpdateOne(ctx, UpdateInstrument{ID: ids[0], Name: "Piano"})
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []core.FieldError{{Field: "instrument-name", Error: "El instrumento ya existe"}}, vErr.Fields)

	inst, err := svc.UpdateOne(ctx, UpdateInstrument{ID: ids[0], Name: "Viola"})
	require.NoError(t, err)
	assert.Equal(t, "Viola", inst.Name)

	deleted, err := svc.DeleteMany(ctx, ids[0], ids[1], 999)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], deleted)
}
