package main

import (
	"fmt"
	"os"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
	cachesvc "github.com/trezcool/pgmanager/services/cache"
	emailsvc "github.com/trezcool/pgmanager/services/email"
	logsvc "github.com/trezcool/pgmanager/services/logger"
	"github.com/trezcool/pgmanager/storage/database"
	"github.com/trezcool/pgmanager/storage/database/gormrepo"
)

func main() {
	conf := core.NewConfig()
	zl := logsvc.Init(conf.Log, os.Stdout)
	logger := logsvc.NewZeroLogger(zl.With().Str("component", "admin").Logger())

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = database.Close(db) }()

	var mailSvc core.EmailService
	if conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(logger, false)

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(gormrepo.NewUserRepository(db), cachesvc.NewMemoryStore(), mailSvc, conf),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		_ = database.Close(db)
		os.Exit(1)
	}
}
