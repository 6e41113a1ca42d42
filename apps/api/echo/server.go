package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	zlog "github.com/rs/zerolog/log"

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
	metricsvc "github.com/trezcool/pgmanager/services/metrics"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool
		Validate       *validator.Validate
		Translator     ut.Translator
		Enforcer       *policy.Enforcer
		TokenStore     core.TokenStore

		UserSvc      *user.Service
		RoomSvc      *room.Service
		RequestSvc   *roomrequest.Service
		PaymentSvc   *payment.Service
		ComplaintSvc *complaint.Service
		NoticeSvc    *notice.Service
		MessMenuSvc  *messmenu.Service
		MoveOutSvc   *moveout.Service
		FeedbackSvc  *feedback.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *tokenAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.auth = newTokenAuth(deps.Conf, deps.UserSvc, deps.TokenStore)
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(requestLogger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsvc.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(metricsvc.Handler()))

	api := s.app.Group("/api")
	jwt := s.auth.middleware()
	authz := authorizer{enforcer: s.deps.Enforcer}

	registerUserAPI(api, jwt, authz, rateLimiter(conf.Auth.RateLimit, time.Minute), s.auth, s.deps)
	registerRoomAPI(api, jwt, authz, s.deps)
	registerRoomRequestAPI(api, jwt, authz, s.deps)
	registerPaymentAPI(api, jwt, authz, s.deps)
	registerComplaintAPI(api, jwt, authz, s.deps)
	registerNoticeAPI(api, jwt, authz, s.deps)
	registerMessMenuAPI(api, jwt, authz, s.deps)
	registerMoveOutAPI(api, jwt, authz, s.deps)
	registerFeedbackAPI(api, jwt, authz, s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors reports errors preventing the server from serving.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal is notified on SIGINT, SIGTERM or when a handler hits a shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
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

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to PG Manager API!")
}

// requestLogger writes one zerolog line per request.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			evt := zlog.Info()
			if v.Error != nil {
				evt = zlog.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
