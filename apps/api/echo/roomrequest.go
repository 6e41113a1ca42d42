package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
	metricsvc "github.com/trezcool/pgmanager/services/metrics"
)

type roomRequestApi struct {
	svc      *roomrequest.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerRoomRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := roomRequestApi{
		svc:      deps.RequestSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	rg := g.Group("/room-requests", jwt)
	rg.POST("", api.create, can(policy.RequestCreate))
	rg.GET("", api.query, can(policy.RequestList))
	rg.GET("/my-requests", api.queryMine, can(policy.RequestListOwn))
	rg.PATCH("/:id/status", api.decide, can(policy.RequestDecide))
	rg.DELETE("/:id", api.destroy, can(policy.RequestDelete))
}

// Handlers

func (api *roomRequestApi) create(ctx echo.Context) error {
	var data roomrequest.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating room request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *roomRequestApi) query(ctx echo.Context) error {
	filter := new(roomrequest.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []roomrequest.Request{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqs, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying room requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *roomRequestApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqs, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr.ID, ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying own room requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *roomRequestApi) decide(ctx echo.Context) error {
	var data roomrequest.Decision
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

	res, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "deciding room request")
	}
	metricsvc.RoomRequestDecisions.WithLabelValues(string(res.Request.Status)).Inc()
	if res.Request.Status == roomrequest.StatusApproved {
		metricsvc.RoomAllocations.WithLabelValues("request").Inc()
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *roomRequestApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting room request")
	}
	return ctx.NoContent(http.StatusNoContent)
}
