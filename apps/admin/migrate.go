package main

import (
	"github.com/pkg/errors"

	"github.com/academia/portal/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	db, err := cli.openDB(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	return migrateFunc(db, args[0], args[1:]...)
}
