package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	"github.com/trezcool/tdm/storage/database"
	sqlxrepos "github.com/trezcool/tdm/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB opens the database and applies pending migrations.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		db, err := database.Open(ctx, conf.Database)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger, os.Stdout)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newFormEngine(validate *validator.Validate, translator ut.Translator) *form.Engine {
	return form.NewEngine(validate, translator)
}

func newLessonService(repo lesson.Repository, users user.Service, classrooms classroom.Service, instruments instrument.Service) lesson.Service {
	return lesson.NewService(repo, users, classrooms, instruments)
}

type serverParams struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	Engine   *form.Engine
	Sessions *sessionsvc.Manager

	UserSvc       user.Service
	ClassroomSvc  classroom.Service
	InstrumentSvc instrument.Service
	LessonSvc     lesson.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Engine:        p.Engine,
		Sessions:      p.Sessions,
		UserSvc:       p.UserSvc,
		ClassroomSvc:  p.ClassroomSvc,
		InstrumentSvc: p.InstrumentSvc,
		LessonSvc:     p.LessonSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sessionsvc.New))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newFormEngine))

	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewClassroomRepository))
	must(c.Provide(sqlxrepos.NewInstrumentRepository))
	must(c.Provide(sqlxrepos.NewLessonRepository))

	must(c.Provide(user.NewService))
	must(c.Provide(classroom.NewService))
	must(c.Provide(instrument.NewService))
	must(c.Provide(newLessonService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
