package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/moveout"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/user"
)

type moveOutApi struct {
	svc      *moveout.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerMoveOutAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := moveOutApi{
		svc:      deps.MoveOutSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	mg := g.Group("/move-outs", jwt)
	mg.POST("", api.create, can(policy.MoveOutCreate))
	mg.GET("", api.query, can(policy.MoveOutList))
	mg.GET("/my-notices", api.queryMine, can(policy.MoveOutListOwn))
	mg.PATCH("/:id/cancel", api.cancel, can(policy.MoveOutCancel))
	mg.PATCH("/:id/status", api.decide, can(policy.MoveOutDecide))
}

func (api *moveOutApi) create(ctx echo.Context) error {
	var data moveout.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	if err := data.Validate(api.validate, time.Now().UTC().Format(moveout.DateLayout)); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating move-out notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *moveOutApi) query(ctx echo.Context) error {
	filter := new(moveout.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []moveout.Notice{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	notices, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying move-out notices")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *moveOutApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notices, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying own move-out notices")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *moveOutApi) cancel(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "cancelling move-out notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *moveOutApi) decide(ctx echo.Context) error {
	var data moveout.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "deciding move-out notice")
	}
	return ctx.JSON(http.StatusOK, n)
}
