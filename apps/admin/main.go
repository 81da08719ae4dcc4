package main

import (
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/statusflow"
	backendsvc "github.com/academia/portal/services/backend"
	inmembackend "github.com/academia/portal/services/backend/inmem"
	emailsvc "github.com/academia/portal/services/email"
	logsvc "github.com/academia/portal/services/logger"
	"github.com/academia/portal/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	var flows statusflow.Repository
	if conf.Backend.InMemory {
		flows = inmembackend.NewWithFixtures()
	} else {
		flows = backendsvc.NewClient(conf, logger)
	}

	var mailer core.EmailService
	if conf.Debug {
		mailer = emailsvc.NewConsoleService(conf, os.Stdout)
	} else {
		mailer = emailsvc.NewSendgridService(conf, logger)
	}

	validate, translator := newValidator()
	cli := commandLine{
		conf:       conf,
		logger:     logger,
		flows:      flows,
		validate:   validate,
		translator: translator,
		mailer:     mailer,
		out:        color.Output,
		openDB:     openDB,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

// openDB creates the postgres database when missing and opens it.
func openDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.Open(conf)
}
