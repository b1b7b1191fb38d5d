package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tdm/apps/api/echo"
	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/user"
	emailsvc "github.com/trezcool/tdm/services/email"
	logsvc "github.com/trezcool/tdm/services/logger"
	sessionsvc "github.com/trezcool/tdm/services/session"
	sqlxrepos "github.com/trezcool/tdm/storage/database/sqlx"
	testutil "github.com/trezcool/tdm/tests"
)

const testPwd = "Sup3r-Secret!"

var testConf = &core.Config{
	Env:                       core.EnvTest,
	AppName:                   "TDM",
	TestMode:                  true,
	FrontendBaseURL:           "http://localhost:8000",
	SessionSecret:             "not-so-secret",
	DefaultFromEmail:          mail.Address{Name: "TDM", Address: "no-reply@tdm.mx"},
	PasswordResetTimeoutDelta: time.Hour,
	Server:                    core.ServerConfig{DisableReqLogs: true},
}

// testApp is a server wired to a fresh in-memory database holding an admin, a teacher
// and a student.
type testApp struct {
	srv  *echoapi.Server
	mail *emailsvc.ConsoleServiceMock

	users       user.Repository
	classrooms  classroom.Repository
	instruments instrument.Repository
	lessons     lesson.Repository

	admin, teacher, student user.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.PrepareDB(t)

	logger := logsvc.NewRollbarLogger(io.Discard, testConf)
	logger.Enable(false)
	core.ParseEmailTemplates(logger, true)

	app := &testApp{
		mail:        emailsvc.NewConsoleServiceMock(testConf, logger),
		users:       sqlxrepos.NewUserRepository(db),
		classrooms:  sqlxrepos.NewClassroomRepository(db),
		instruments: sqlxrepos.NewInstrumentRepository(db),
		lessons:     sqlxrepos.NewLessonRepository(db),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	sessions, err := sessionsvc.New(testConf)
	require.NoError(t, err)

	usrSvc := user.NewService(app.users, app.mail, testConf)
	clsSvc := classroom.NewService(app.classrooms)
	instSvc := instrument.NewService(app.instruments)

	app.srv = echoapi.NewServer(echoapi.Options{
		Conf:          testConf,
		Logger:        logger,
		Engine:        form.NewEngine(validate, translator),
		Sessions:      sessions,
		UserSvc:       usrSvc,
		ClassroomSvc:  clsSvc,
		InstrumentSvc: instSvc,
		LessonSvc:     lesson.NewService(app.lessons, usrSvc, clsSvc, instSvc),
	})
	t.Cleanup(func() { _ = app.srv.Shutdown(context.Background()) })

	app.admin = testutil.CreateUser(t, app.users, "Ada", "Lovelace", "admin@tdm.mx", user.RoleAdmin, testPwd)
	app.teacher = testutil.CreateUser(t, app.users, "Clara", "Schumann", "clara@tdm.mx", user.RoleTeacher, testPwd)
	app.student = testutil.CreateUser(t, app.users, "Franz", "Liszt", "franz@tdm.mx", user.RoleStudent, testPwd)
	return app
}

type httpTest struct {
	name     string
	method   string
	path     string
	data     url.Values
	as       *user.User // anonymous when nil
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data url.Values, cookies ...*http.Cookie) *http.Request {
	var body io.Reader
	if data != nil {
		body = strings.NewReader(data.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if data != nil {
		req.Header.Set(headerContentType, "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

const headerContentType = "Content-Type"

func (app *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionsvc.CookieName {
			return c
		}
	}
	return nil
}

// login signs usr in with testPwd and returns the session cookie.
func (app *testApp) login(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	rec := app.serve(newRequest(http.MethodPost, "/", url.Values{"email": {usr.Email}, "password": {testPwd}}))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return cookie
}

func (app *testApp) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	var cookies []*http.Cookie
	if tt.as != nil {
		cookies = append(cookies, app.login(t, *tt.as))
	}
	return app.serve(newRequest(tt.method, tt.path, tt.data, cookies...))
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code)
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

// action mirrors the JSON answer of edit and delete actions.
type action struct {
	Msg     string          `json:"msg"`
	Error   json.RawMessage `json:"error"`
	Result  json.RawMessage `json:"result"`
	Display json.RawMessage `json:"display"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func ctx() context.Context { return context.Background() }

func itoa(i int) string { return strconv.Itoa(i) }
