package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/user"
	testutil "github.com/trezcool/tdm/tests"
)

func Test_memberApi_create(t *testing.T) {
	app := newTestApp(t)
	piano := testutil.CreateInstrument(t, app.instruments, "Piano")
	cookie := app.login(t, app.admin)

	newStudent := func(email, pwd, confirm string) url.Values {
		return url.Values{
			"name":             {"Johann"},
			"lastname":         {"Bach"},
			"email":            {email},
			"password":         {pwd},
			"password_confirm": {confirm},
			"instrumentId":     {"1"},
		}
	}

	t.Run("success", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPost, "/students", newStudent("Johann@tdm.mx", testPwd, testPwd), cookie))
		require.Equal(t, http.StatusOK, rec.Code)
		var reply form.Reply
		decode(t, rec, &reply)
		require.Equal(t, form.StatusSuccess, reply.Status, rec.Body.String())

		usr, err := app.users.GetUserByEmail(context.Background(), "johann@tdm.mx")
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.Equal(t, []int{piano.ID}, usr.InstrumentIDs)
		assert.EqualValues(t, usr.ID, reply.Result)

		// the new student can sign in
		app.login(t, usr)
	})

	t.Run("email taken and mismatch", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPost, "/teachers", newStudent("clara@tdm.mx", testPwd, "other"), cookie))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), testPwd)

		var reply form.Reply
		decode(t, rec, &reply)
		assert.Equal(t, form.StatusError, reply.Status)
		assert.Equal(t, []string{"Las contraseñas no coinciden"}, reply.Errs("password_confirm"))
		assert.Equal(t, "clara@tdm.mx", reply.Value("email"))
		assert.Empty(t, reply.Value("password"))
	})
}

func Test_memberApi_query(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.users, "Frédéric", "Chopin", "fred@tdm.mx", user.RoleStudent, "")
	cookie := app.login(t, app.admin)

	tests := []struct {
		name      string
		path      string
		wantNames []string
	}{
		{name: "students", path: "/students", wantNames: []string{"Chopin", "Liszt"}},
		{name: "ordering", path: "/students?ordering=-lastname", wantNames: []string{"Liszt", "Chopin"}},
		{name: "search", path: "/students?search=FRED", wantNames: []string{"Chopin"}},
		{name: "teachers", path: "/teachers", wantNames: []string{"Schumann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newRequest(http.MethodGet, tt.path, nil, cookie))
			require.Equal(t, http.StatusOK, rec.Code)
			var users []user.User
			decode(t, rec, &users)
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Lastname)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}

func Test_memberApi_update(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, app.admin)

	edit := func(t *testing.T, path string, data url.Values) action {
		rec := app.serve(newRequest(http.MethodPost, path, data, cookie))
		require.Equal(t, http.StatusOK, rec.Code)
		var act action
		decode(t, rec, &act)
		return act
	}

	t.Run("wrong role", func(t *testing.T) {
		act := edit(t, "/students/edit", url.Values{"member-id": {itoa(app.teacher.ID)}, "name": {"Robert"}})
		assert.Equal(t, "Student "+itoa(app.teacher.ID)+" not found", act.Msg)
	})

	t.Run("email taken", func(t *testing.T) {
		act := edit(t, "/students/edit", url.Values{"member-id": {itoa(app.student.ID)}, "email": {"clara@tdm.mx"}})
		assert.Equal(t, "Invalid form data", act.Msg)
		assert.JSONEq(t, `{"email": ["El correo electrónico ya existe"]}`, string(act.Error))
	})

	t.Run("success", func(t *testing.T) {
		act := edit(t, "/teachers/edit", url.Values{"member-id": {itoa(app.teacher.ID)}, "name": {"Clara Josephine"}})
		assert.Equal(t, "Teacher "+itoa(app.teacher.ID)+" updated", act.Msg)

		var display user.User
		require.NoError(t, json.Unmarshal(act.Display, &display))
		assert.Equal(t, "Clara Josephine", display.Name)
		assert.Equal(t, "Schumann", display.Lastname)
	})
}

func Test_memberApi_destroyMultiple(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, app.admin)

	// the teacher is not a student
	data := url.Values{"memberId": {itoa(app.student.ID), itoa(app.teacher.ID)}}
	rec := app.serve(newRequest(http.MethodPost, "/students/delete", data, cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	var act action
	decode(t, rec, &act)
	assert.Equal(t, "1 students deleted", act.Msg)
	assert.JSONEq(t, "["+itoa(app.student.ID)+"]", string(act.Result))

	_, err := app.users.GetUserByID(context.Background(), app.teacher.ID)
	assert.NoError(t, err)
	_, err = app.users.GetUserByID(context.Background(), app.student.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
