package main

import (
	"flag"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/statusflow"
)

func (cli *commandLine) flow(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	switch args[0] {
	case "show":
		showCmd := flag.NewFlagSet("flow show", flag.ExitOnError)
		showScope := scopeFlags(showCmd)
		if err := showCmd.Parse(args[1:]); err != nil {
			return err
		}
		scope, ok := showScope()
		if !ok {
			showCmd.Usage()
			return errHelp
		}
		return cli.showFlow(scope)

	case "import":
		importCmd := flag.NewFlagSet("flow import", flag.ExitOnError)
		importScope := scopeFlags(importCmd)
		importFile := importCmd.String("file", "", "The HCL flow file.")
		importName := importCmd.String("name", "", "Overrides the flow name of the file.")
		importDryRun := importCmd.Bool("dry-run", false, "Print the changes without saving them.")
		importNotify := importCmd.String("notify", "", "Comma separated emails told about the saved changes.")
		if err := importCmd.Parse(args[1:]); err != nil {
			return err
		}
		scope, ok := importScope()
		if !ok || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		notify, err := core.ParseAddressList(*importNotify)
		if err != nil {
			return err
		}
		return cli.importFlow(scope, *importFile, *importName, *importDryRun, notify)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newEditor(scope statusflow.Scope) *statusflow.Editor {
	return statusflow.NewEditor(cli.flows, scope, statusflow.Meta{}, statusflow.WithEditorLogger(cli.logger))
}

func (cli *commandLine) showFlow(scope statusflow.Scope) error {
	ctx, err := cli.session(scope)
	if err != nil {
		return err
	}

	e := cli.newEditor(scope)
	if err = e.Load(ctx); err != nil {
		return err
	}
	printFlow(cli.out, e.Snapshot())
	return nil
}

func (cli *commandLine) importFlow(scope statusflow.Scope, path, name string, dryRun bool, notify []mail.Address) error {
	f, err := statusflow.ParseFlowFile(path)
	if err != nil {
		return err
	}
	if name != "" {
		f.Meta.Name = name
	}
	if err = cli.validate.Struct(f.Document(scope)); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			for _, vErr := range vErrs {
				errorColor.Fprintf(cli.out, "%s: %s\n", vErr.Field(), vErr.Translate(cli.translator))
			}
		}
		return errors.Wrap(err, "invalid flow file")
	}

	ctx, err := cli.session(scope)
	if err != nil {
		return err
	}
	e := cli.newEditor(scope)
	if err = e.Load(ctx); err != nil {
		return err
	}
	if err = e.Replace(f); err != nil {
		return err
	}

	diff, err := e.Diff()
	if err != nil {
		return err
	}
	printDiff(cli.out, diff)
	if dryRun {
		warningColor.Fprintln(cli.out, "dry run: nothing saved")
		return nil
	}

	if err = e.Save(ctx); err != nil {
		return err
	}
	successColor.Fprintf(cli.out, "saved %q (%d statuses, %d transitions)\n", f.Meta.Name, len(f.Statuses), len(f.Transitions))

	if len(notify) > 0 {
		msg := statusflow.NewUpdateNotice(e.Document(), adminUser, diff).Message(notify)
		if err = cli.mailer.SendMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "notifying flow update")
		}
		infoColor.Fprintf(cli.out, "notified %d recipient(s)\n", len(notify))
	}
	return nil
}
