package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/user"
	sessionsvc "github.com/trezcool/tdm/services/session"
)

type (
	Options struct {
		Conf     *core.Config
		Logger   core.Logger
		Engine   *form.Engine
		Sessions *sessionsvc.Manager

		UserSvc       user.Service
		ClassroomSvc  classroom.Service
		InstrumentSvc instrument.Service
		LessonSvc     lesson.Service
	}

	Server struct {
		opts     Options
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(opts Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer()
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestID())
	if !conf.Server.DisableReqLogs {
		s.app.Use(requestLogger(s.opts.Logger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	g := guard{sessions: s.opts.Sessions}

	registerAuthAPI(s.app, g, s.opts.Engine, s.opts.Sessions, s.opts.UserSvc, s.opts.Logger)
	registerClassroomAPI(s.app.Group("/classrooms"), g, s.opts.Engine, s.opts.ClassroomSvc, s.opts.InstrumentSvc)
	registerInstrumentAPI(s.app.Group("/instruments"), g, s.opts.Engine, s.opts.InstrumentSvc)
	registerMemberAPI(s.app.Group("/students"), g, s.opts.Engine, user.RoleStudent, s.opts.UserSvc, s.opts.InstrumentSvc)
	registerMemberAPI(s.app.Group("/teachers"), g, s.opts.Engine, user.RoleTeacher, s.opts.UserSvc, s.opts.InstrumentSvc)
	registerLessonAPI(s.app.Group("/lessons"), g, s.opts.Engine, s.opts.LessonSvc)
}

// Start listens on the configured address; errors other than a closed server go to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the composition root to stop the server gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
