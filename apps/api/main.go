package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"gorm.io/gorm"

	echoapi "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/complaint"
	"github.com/trezcool/pgmanager/core/feedback"
	"github.com/trezcool/pgmanager/core/messmenu"
	"github.com/trezcool/pgmanager/core/moveout"
	"github.com/trezcool/pgmanager/core/notice"
	"github.com/trezcool/pgmanager/core/payment"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
	cachesvc "github.com/trezcool/pgmanager/services/cache"
	emailsvc "github.com/trezcool/pgmanager/services/email"
	logsvc "github.com/trezcool/pgmanager/services/logger"
	"github.com/trezcool/pgmanager/storage/database"
	"github.com/trezcool/pgmanager/storage/database/gormrepo"
)

type store interface {
	core.TokenStore
	core.AttemptLimiter
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl := logsvc.Init(conf.Log, os.Stdout)
	logger := logsvc.NewRollbarLogger(logsvc.NewZeroLogger(zl.With().Str("component", "api").Logger()), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewZeroLogger(zl.With().Str("component", "db").Logger()), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = database.Close(db); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	cache, err := setUpCache(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	txr := database.NewTransactor(db)
	usrRepo := gormrepo.NewUserRepository(db)

	usrSvc := user.NewService(usrRepo, cache, mailSvc, conf)
	roomSvc := room.NewService(txr, gormrepo.NewRoomRepository(db), usrRepo, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, false)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			Enforcer:   policy.MustNew(),
			TokenStore: cache,

			UserSvc:      usrSvc,
			RoomSvc:      roomSvc,
			RequestSvc:   roomrequest.NewService(txr, gormrepo.NewRoomRequestRepository(db), roomSvc, mailSvc),
			PaymentSvc:   payment.NewService(gormrepo.NewPaymentRepository(db), usrRepo),
			ComplaintSvc: complaint.NewService(gormrepo.NewComplaintRepository(db), roomSvc),
			NoticeSvc:    notice.NewService(gormrepo.NewNoticeRepository(db)),
			MessMenuSvc:  messmenu.NewService(gormrepo.NewMessMenuRepository(db)),
			MoveOutSvc:   moveout.NewService(txr, gormrepo.NewMoveOutRepository(db), usrRepo, roomSvc),
			FeedbackSvc:  feedback.NewService(gormrepo.NewFeedbackRepository(db)),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*gorm.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = gormrepo.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// setUpCache connects to redis when configured, falling back to in-process stores.
func setUpCache(conf *core.Config) (store, error) {
	if conf.Redis.Address == "" {
		return cachesvc.NewMemoryStore(), nil
	}
	client, err := cachesvc.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		return nil, err
	}
	return cachesvc.NewRedisStore(client), nil
}
