package classroom

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/form"
)

const nameExistsText = "El salón ya existe"

func (svc *service) NewSchema() form.Schema[NewClassroom] {
	return form.Schema[NewClassroom]{
		Fields: []form.Field{{Name: "name", Kind: form.String, Required: true, Rules: "max=64"}},
		Build:  func(v form.Values) NewClassroom { return NewClassroom{Name: v.String("name")} },
		Refine: []form.Refinement[NewClassroom]{
			func(ctx context.Context, nc NewClassroom) (form.Errors, error) {
				return svc.uniqueName(ctx, "name", nc.Name)
			},
		},
	}
}

func (svc *service) UpdateSchema() form.Schema[UpdateClassroom] {
	return form.Schema[UpdateClassroom]{
		Fields: []form.Field{
			{Name: "classroom-id", Kind: form.Int, Required: true},
			{Name: "classroom-name", Kind: form.String, Required: true, Rules: "max=64"},
		},
		Build: func(v form.Values) UpdateClassroom {
			return UpdateClassroom{ID: v.Int("classroom-id"), Name: v.String("classroom-name")}
		},
		Refine: []form.Refinement[UpdateClassroom]{
			func(ctx context.Context, uc UpdateClassroom) (form.Errors, error) {
				return svc.uniqueName(ctx, "classroom-name", uc.Name, uc.ID)
			},
		},
	}
}

func InstrumentsSchema() form.Schema[SetInstruments] {
	return form.Schema[SetInstruments]{
		Fields: []form.Field{
			{Name: "classroom-id", Kind: form.Int, Required: true},
			{Name: "instrumentId", Kind: form.IntList},
		},
		Build: func(v form.Values) SetInstruments {
			return SetInstruments{ClassroomID: v.Int("classroom-id"), InstrumentIDs: v.IntList("instrumentId")}
		},
	}
}

// DeleteSchema reads the repeated classroomId field.
func DeleteSchema() form.Schema[[]int] {
	return form.Schema[[]int]{
		Fields: []form.Field{{Name: "classroomId", Kind: form.IntList}},
		Build:  func(v form.Values) []int { return v.IntList("classroomId") },
	}
}

func (svc *service) uniqueName(ctx context.Context, field, name string, excludedIDs ...int) (form.Errors, error) {
	err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs...)
	switch errors.Cause(err) {
	case nil:
		return nil, nil
	case ErrNameExists:
		return form.Errors{field: {nameExistsText}}, nil
	default:
		return nil, errors.Wrap(err, "checking classroom name uniqueness")
	}
}
