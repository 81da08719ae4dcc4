package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const adminUser = "admin"

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	flows      statusflow.Repository
	validate   *validator.Validate
	translator ut.Translator
	mailer     core.EmailService
	out        io.Writer
	openDB     func(*core.Config) (*sqlx.DB, error)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	query.InitValidators(validate, translator)
	statusflow.InitValidators(validate, translator)
	return validate, translator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                   - run a goose command (up, down, status, redo, ...)")
	fmt.Fprintln(cli.out, "  flow show -org ID -workspace ID -config ID               - print a status flow")
	fmt.Fprintln(cli.out, "  flow import -file PATH -org ID -workspace ID -config ID  - replace a status flow by an HCL flow file")
	fmt.Fprintln(cli.out, "              [-name NAME] [-dry-run] [-notify EMAILS]")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "flow":
		return cli.flow(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// scopeFlags registers the flags addressing a status configuration on fs.
func scopeFlags(fs *flag.FlagSet) func() (statusflow.Scope, bool) {
	org := fs.Int("org", 0, "The organisation ID.")
	workspace := fs.Int("workspace", 0, "The workspace ID.")
	config := fs.Int("config", 0, "The status configuration ID.")
	return func() (statusflow.Scope, bool) {
		scope := statusflow.Scope{OrgID: *org, WorkspaceID: *workspace, StatusConfigurationID: *config}
		return scope, scope.OrgID > 0 && scope.WorkspaceID > 0 && scope.StatusConfigurationID > 0
	}
}

// session returns a context acting on scope with the backend token, prompted when not configured.
func (cli *commandLine) session(scope statusflow.Scope) (context.Context, error) {
	token := cli.conf.Backend.Token
	if token == "" && !cli.conf.Backend.InMemory {
		fmt.Fprint(cli.out, "Enter backend token:")
		raw, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, errHelp
		}
		token = string(raw)
	}

	sess := core.Session{UserID: adminUser, OrgID: scope.OrgID, WorkspaceID: scope.WorkspaceID, Token: token}
	return core.WithSession(context.Background(), sess), nil
}
