package instrument

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/form"
)

const nameExistsText = "El instrumento ya existe"

func (svc *service) NewSchema() form.Schema[NewInstrument] {
	return form.Schema[NewInstrument]{
		Fields: []form.Field{{Name: "name", Kind: form.String, Required: true, Rules: "max=64"}},
		Build:  func(v form.Values) NewInstrument { return NewInstrument{Name: v.String("name")} },
		Refine: []form.Refinement[NewInstrument]{
			func(ctx context.Context, ni NewInstrument) (form.Errors, error) {
				return svc.uniqueName(ctx, "name", ni.Name)
			},
		},
	}
}

func (svc *service) UpdateSchema() form.Schema[UpdateInstrument] {
	return form.Schema[UpdateInstrument]{
		Fields: []form.Field{
			{Name: "instrument-id", Kind: form.Int, Required: true},
			{Name: "instrument-name", Kind: form.String, Required: true, Rules: "max=64"},
		},
		Build: func(v form.Values) UpdateInstrument {
			return UpdateInstrument{ID: v.Int("instrument-id"), Name: v.String("instrument-name")}
		},
		Refine: []form.Refinement[UpdateInstrument]{
			func(ctx context.Context, ui UpdateInstrument) (form.Errors, error) {
				return svc.uniqueName(ctx, "instrument-name", ui.Name, ui.ID)
			},
		},
	}
}

func DeleteSchema() form.Schema[[]int] {
	return form.Schema[[]int]{
		Fields: []form.Field{{Name: "instrumentId", Kind: form.IntList}},
		Build:  func(v form.Values) []int { return v.IntList("instrumentId") },
	}
}

func (svc *service) uniqueName(ctx context.Context, field, name string, excludedIDs ...int) (form.Errors, error) {
	switch err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs...); errors.Cause(err) {
	case nil:
		return nil, nil
	case ErrNameExists:
		return form.Errors{field: {nameExistsText}}, nil
	default:
		return nil, errors.Wrap(err, "checking instrument name uniqueness")
	}
}
