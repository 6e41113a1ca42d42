package echoapi

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/user"
	metricsvc "github.com/trezcool/pgmanager/services/metrics"
)

// authorizer guards routes with the policy table.
type authorizer struct {
	enforcer *policy.Enforcer
}

// can only lets through users whose role may perform op. It must run after the JWT middleware.
func (a authorizer) can(svc *user.Service, op policy.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsApproved {
				return errAccountNotApproved
			}
			if !a.enforcer.Can(usr.Role, op) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// rateLimiter allows limit requests per window and per client IP.
func rateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echo.WrapMiddleware(httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metricsvc.RateLimitHits.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Content-Type", "application/json; charset=UTF-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"` + errTooManyRequests.Message.(string) + `"}` + "\n"))
		}),
	))
}
