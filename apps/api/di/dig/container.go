package dig_container

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/academia/portal/apps/api/echo"
	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/savedview"
	"github.com/academia/portal/core/statusflow"
	backendsvc "github.com/academia/portal/services/backend"
	inmembackend "github.com/academia/portal/services/backend/inmem"
	logsvc "github.com/academia/portal/services/logger"
	"github.com/academia/portal/storage/database"
	sqlxrepos "github.com/academia/portal/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Backend is the collaborator serving searches and status flows.
	Backend struct {
		dig.Out
		Searcher query.Searcher
		Flows    statusflow.Repository
	}

	// ShutdownSignal receives SIGINT / SIGTERM, or a signal sent by the server on a fatal error.
	ShutdownSignal chan os.Signal

	serverParams struct {
		dig.In
		Conf         *core.Config
		Logger       core.Logger
		Validate     *validator.Validate
		Translator   ut.Translator
		Searcher     query.Searcher
		Views        *query.Registry
		Flows        *statusflow.Registry
		SavedViewSvc *savedview.Service
		Shutdown     ShutdownSignal
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	query.InitValidators(validate, translator)
	statusflow.InitValidators(validate, translator)
	return validate, translator
}

// newBackend serves fixtures in memory when configured to, the REST backend otherwise.
func newBackend(conf *core.Config, logger core.Logger) Backend {
	if conf.Backend.InMemory {
		logger.Info("using the in-memory backend")
		b := inmembackend.NewWithFixtures()
		return Backend{Searcher: b, Flows: b}
	}
	c := backendsvc.NewClient(conf, logger)
	return Backend{Searcher: c, Flows: c}
}

func newViewRegistry(conf *core.Config) *query.Registry {
	return query.NewRegistry(conf.Views.MaxPerOwner)
}

func newFlowRegistry(conf *core.Config, repo statusflow.Repository, logger core.Logger) *statusflow.Registry {
	return statusflow.NewRegistry(repo, logger, conf.Views.MaxFlowsPerOwner)
}

func newShutdownSignal() ShutdownSignal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		Searcher:     p.Searcher,
		Views:        p.Views,
		Flows:        p.Flows,
		SavedViewSvc: p.SavedViewSvc,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newValidator))
	must(c.Provide(newBackend))
	must(c.Provide(sqlxrepos.NewSavedViewRepository, dig.As(new(savedview.Repository))))
	must(c.Provide(savedview.NewService))
	must(c.Provide(newViewRegistry))
	must(c.Provide(newFlowRegistry))
	must(c.Provide(newShutdownSignal))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
