package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tdm/core/form"
	testutil "github.com/trezcool/tdm/tests"
)

func Test_instrumentApi_create(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateInstrument(t, app.instruments, "Piano")

	tests := []httpTest{
		{
			name:     "success",
			data:     url.Values{"name": {"Violín"}},
			wantCode: http.StatusOK,
			wantData: marshalObj(t, form.Reply{Status: form.StatusSuccess, Result: 2}),
		},
		{
			name:     "duplicate name",
			data:     url.Values{"name": {"Piano"}},
			wantCode: http.StatusOK,
			wantData: marshalObj(t, form.Reply{
				Status:       form.StatusError,
				InitialValue: map[string][]string{"name": {"Piano"}},
				Error:        form.Errors{"name": {"El instrumento ya existe"}},
			}),
		},
		{
			name:     "student forbidden",
			data:     url.Values{"name": {"Arpa"}},
			as:       &app.student,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error":"Unauthorized"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/instruments"
			if tt.as == nil {
				tt.as = &app.admin
			}
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_instrumentApi_update(t *testing.T) {
	app := newTestApp(t)
	piano := testutil.CreateInstrument(t, app.instruments, "Piano")
	testutil.CreateInstrument(t, app.instruments, "Guitarra")
	cookie := app.login(t, app.admin)

	edit := func(t *testing.T, data url.Values) action {
		t.Helper()
		rec := app.serve(newRequest(http.MethodPost, "/instruments/edit", data, cookie))
		require.Equal(t, http.StatusOK, rec.Code)
		var act action
		decode(t, rec, &act)
		return act
	}

	t.Run("not found", func(t *testing.T) {
		act := edit(t, url.Values{"instrument-id": {"999"}, "instrument-name": {"Canto"}})
		assert.Equal(t, "Instrument 999 not found", act.Msg)
	})

	t.Run("name taken", func(t *testing.T) {
		act := edit(t, url.Values{"instrument-id": {itoa(piano.ID)}, "instrument-name": {"Guitarra"}})
		assert.Equal(t, "Invalid form data", act.Msg)
		var errs form.Errors
		require.NoError(t, json.Unmarshal(act.Error, &errs))
		assert.Equal(t, []string{"El instrumento ya existe"}, errs["instrument-name"])
	})

	t.Run("renamed", func(t *testing.T) {
		act := edit(t, url.Values{"instrument-id": {itoa(piano.ID)}, "instrument-name": {" Piano Kids "}})
		assert.Equal(t, "Instrument 1 updated", act.Msg)
		assert.JSONEq(t, `"Instrument name has been updated to Piano Kids"`, string(act.Result))

		inst, err := app.instruments.GetInstrumentByID(ctx(), piano.ID)
		require.NoError(t, err)
		assert.Equal(t, "Piano Kids", inst.Name)
	})
}

func Test_instrumentApi_destroyMultiple(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateInstrument(t, app.instruments, "Piano")
	testutil.CreateInstrument(t, app.instruments, "Guitarra")
	cookie := app.login(t, app.admin)

	rec := app.serve(newRequest(http.MethodPost, "/instruments/delete", url.Values{"instrumentId": {"2", "999"}}, cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	var act action
	decode(t, rec, &act)
	assert.Equal(t, "1 instruments deleted", act.Msg)
	assert.JSONEq(t, `[2]`, string(act.Result))

	rows, err := app.instruments.QueryInstruments(ctx(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Piano", rows[0].Name)

	t.Run("no ids", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPost, "/instruments/delete", url.Values{}, cookie))
		require.Equal(t, http.StatusOK, rec.Code)
		var act action
		decode(t, rec, &act)
		assert.Equal(t, "0 instruments deleted", act.Msg)
		assert.JSONEq(t, `[]`, string(act.Result))
	})
}
