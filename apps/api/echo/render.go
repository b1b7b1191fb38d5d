package echoapi

import (
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/user"
	appfs "github.com/trezcool/tdm/fs"
)

// page is the data every HTML page is rendered with.
type page struct {
	Title    string
	Identity user.Identity
	Reply    form.Reply
	Action   *actionReply
	Data     interface{}
}

// actionReply answers edit and delete actions.
type actionReply struct {
	Msg     string      `json:"msg"`
	Error   interface{} `json:"error"`
	Result  interface{} `json:"result"`
	Display interface{} `json:"display,omitempty"`
}

type renderer struct {
	tmpl *template.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer() *renderer {
	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Format(form.DateLayout) },
		"datetime": func(t time.Time) string {
			return t.Format(form.DateTimeLayout)
		},
		"join": strings.Join,
	}
	tmpl := template.Must(template.New("pages").Funcs(funcs).ParseFS(appfs.FS, "templates/pages/*.html"))
	return &renderer{tmpl: tmpl}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

func wantsJSON(ctx echo.Context) bool {
	return strings.Contains(ctx.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// respond renders name with p, or answers body as JSON when the client asks for it.
func respond(ctx echo.Context, name string, p page, body interface{}) error {
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, body)
	}
	if p.Identity.ID == 0 {
		p.Identity, _ = contextIdentity(ctx)
	}
	return ctx.Render(http.StatusOK, name, p)
}

func formValues(ctx echo.Context) (url.Values, error) {
	data, err := ctx.FormParams()
	if err != nil {
		return nil, errors.Wrap(err, "reading form")
	}
	return data, nil
}
