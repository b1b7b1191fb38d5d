package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/user"
	emailsvc "github.com/trezcool/tdm/services/email"
	logsvc "github.com/trezcool/tdm/services/logger"
	"github.com/trezcool/tdm/storage/database"
	sqlxrepos "github.com/trezcool/tdm/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	logger.Enable(false)

	// set up DB
	db, err := database.Open(context.Background(), conf.Database)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// start CLI
	users := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:          db,
		out:         os.Stdout,
		usrSvc:      user.NewService(users, emailsvc.NewConsoleService(conf, logger, os.Stdout), conf),
		users:       users,
		classrooms:  classroom.NewService(sqlxrepos.NewClassroomRepository(db)),
		instruments: instrument.NewService(sqlxrepos.NewInstrumentRepository(db)),
		lessons:     sqlxrepos.NewLessonRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin %s", os.Args[1]), err)
		}
		os.Exit(1)
	}
}
