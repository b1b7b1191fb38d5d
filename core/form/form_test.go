package form

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tdm/core"
)

func newTestEngine() *Engine {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return NewEngine(validate, translator)
}

type signup struct {
	Name     string
	Email    string
	Password string
	Age      int
	Kind     string
	Starts   time.Time
	IDs      []int
}

func signupSchema(refine ...Refinement[signup]) Schema[signup] {
	return Schema[signup]{
		Fields: []Field{
			{Name: "name", Kind: String, Required: true, Rules: "min=2,max=10"},
			{Name: "email", Kind: Email, Required: true},
			{Name: "password", Kind: String, Required: true, Hidden: true, Raw: true},
			{Name: "age", Kind: Int},
			{Name: "kind", Kind: Enum, Enum: []string{"single", "trial"}},
			{Name: "starts", Kind: Date},
			{Name: "id", Kind: IntList},
		},
		Build: func(v Values) signup {
			return signup{
				Name:     v.String("name"),
				Email:    v.String("email"),
				Password: v.String("password"),
				Age:      v.Int("age"),
				Kind:     v.String("kind"),
				Starts:   v.Time("starts"),
				IDs:      v.IntList("id"),
			}
		},
		Refine: refine,
	}
}

func TestParse(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	var refineCalls int
	countingRefine := func(ctx context.Context, s signup) (Errors, error) {
		refineCalls++
		return nil, nil
	}
	takenRefine := func(ctx context.Context, s signup) (Errors, error) {
		if s.Email == "taken@tdm.mx" {
			return Errors{"email": {"El correo electrónico ya existe"}}, nil
		}
		return nil, nil
	}

	valid := url.Values{
		"name":     {" Mozart "},
		"email":    {"W.A@Mozart.AT"},
		"password": {"Requiem1791!"},
		"age":      {"35"},
		"kind":     {"trial"},
		"starts":   {"1791-12-05"},
		"id":       {"1", "2", "2", "999", ""},
	}

	tests := []struct {
		name       string
		data       url.Values
		refine     []Refinement[signup]
		wantStatus Status
		wantErrs   Errors
		wantValue  *signup
		wantCalls  int
	}{
		{
			name:       "valid",
			data:       valid,
			refine:     []Refinement[signup]{countingRefine},
			wantStatus: StatusSuccess,
			wantErrs:   Errors{},
			wantValue: &signup{
				Name: "Mozart", Email: "w.a@mozart.at", Password: "Requiem1791!", Age: 35, Kind: "trial",
				Starts: time.Date(1791, 12, 5, 0, 0, 0, 0, time.UTC), IDs: []int{1, 2, 999},
			},
			wantCalls: 1,
		},
		{
			name:       "empty required fields report exactly one error each",
			data:       url.Values{"name": {"   "}, "password": {""}},
			refine:     []Refinement[signup]{countingRefine},
			wantStatus: StatusError,
			wantErrs: Errors{
				"name":     {core.RequiredText},
				"email":    {core.RequiredText},
				"password": {core.RequiredText},
			},
		},
		{
			name: "all violations are collected",
			data: url.Values{
				"name": {"M"}, "email": {"nope"}, "password": {"x"}, "age": {"old"}, "kind": {"group"},
				"starts": {"05/12/1791"}, "id": {"1", "two"},
			},
			refine:     []Refinement[signup]{countingRefine},
			wantStatus: StatusError,
			wantErrs: Errors{
				"name":   {"Debe tener al menos 2 caracteres"},
				"email":  {"Correo electrónico inválido"},
				"age":    {invalidIntText},
				"kind":   {invalidEnumText},
				"starts": {invalidDateText},
				"id":     {invalidIntListText},
			},
		},
		{
			name: "several rules of one field",
			data: url.Values{
				"name": {"Wolfgang Amadeus"}, "email": {"w@mozart.at"}, "password": {"x"},
			},
			wantStatus: StatusError,
			wantErrs:   Errors{"name": {"Debe tener como máximo 10 caracteres"}},
		},
		{
			name:       "raw fields keep surrounding spaces",
			data:       url.Values{"name": {"Mozart"}, "email": {"w@mozart.at"}, "password": {" pa ss "}},
			wantStatus: StatusSuccess,
			wantErrs:   Errors{},
			wantValue:  &signup{Name: "Mozart", Email: "w@mozart.at", Password: " pa ss "},
		},
		{
			name:       "refinement error",
			data:       url.Values{"name": {"Mozart"}, "email": {"TAKEN@tdm.mx"}, "password": {"x"}},
			refine:     []Refinement[signup]{takenRefine, countingRefine},
			wantStatus: StatusError,
			wantErrs:   Errors{"email": {"El correo electrónico ya existe"}},
			wantCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refineCalls = 0
			sub, err := Parse(ctx, engine, signupSchema(tt.refine...), tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sub.Status)
			assert.Equal(t, tt.wantErrs, sub.Errors)
			assert.Equal(t, tt.wantCalls, refineCalls)
			if tt.wantValue != nil {
				assert.Equal(t, *tt.wantValue, sub.Value)
			}
		})
	}
}

func TestParse_refinementFailure(t *testing.T) {
	boom := errors.New("db down")
	schema := signupSchema(func(ctx context.Context, s signup) (Errors, error) { return nil, boom })

	_, err := Parse(context.Background(), newTestEngine(), schema,
		url.Values{"name": {"Mozart"}, "email": {"w@mozart.at"}, "password": {"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSubmission_Reply(t *testing.T) {
	engine := newTestEngine()
	data := url.Values{"name": {"Mozart"}, "email": {"w@mozart.at"}, "password": {"s3cr3t"}}

	sub, err := Parse(context.Background(), engine, signupSchema(), data)
	require.NoError(t, err)

	t.Run("success resets the form", func(t *testing.T) {
		reply := sub.Reply(WithResult(7))
		assert.Equal(t, StatusSuccess, reply.Status)
		assert.Nil(t, reply.InitialValue)
		assert.Nil(t, reply.Error)
		assert.Equal(t, 7, reply.Result)
	})

	t.Run("late field error hides the password", func(t *testing.T) {
		reply := sub.Reply(WithFieldError("password", "Correo electrónico o contraseña incorrectos"))
		assert.Equal(t, StatusError, reply.Status)
		assert.Equal(t, []string{"Correo electrónico o contraseña incorrectos"}, reply.Errs("password"))
		assert.Equal(t, "Mozart", reply.Value("name"))
		assert.Equal(t, "w@mozart.at", reply.Value("email"))
		_, ok := reply.InitialValue["password"]
		assert.False(t, ok)
	})

	t.Run("extra hidden fields", func(t *testing.T) {
		reply := sub.Reply(KeepValues(), HideFields("email"))
		assert.Equal(t, StatusSuccess, reply.Status)
		assert.Equal(t, map[string][]string{"name": {"Mozart"}}, reply.InitialValue)
	})

	t.Run("insert time violation", func(t *testing.T) {
		sub.Fail(core.NewFieldError("name", "El salón ya existe").(*core.ValidationError))
		assert.False(t, sub.OK())
		assert.Equal(t, []string{"El salón ya existe"}, sub.Reply().Errs("name"))
	})
}
