package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/user"
	metricsvc "github.com/trezcool/pgmanager/services/metrics"
)

type roomApi struct {
	svc      *room.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerRoomAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := roomApi{
		svc:      deps.RoomSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	rg := g.Group("/rooms", jwt)
	rg.GET("", api.query, can(policy.RoomList))
	rg.POST("", api.create, can(policy.RoomCreate))
	rg.GET("/:id", api.retrieve, can(policy.RoomRead))
	rg.DELETE("/:id", api.destroy, can(policy.RoomDelete))
	rg.PATCH("/:id/status", api.setStatus, can(policy.RoomSetStatus))
	rg.POST("/:id/assign", api.assign, can(policy.RoomAssign))
	rg.DELETE("/:id/tenants/:userId", api.removeTenant, can(policy.RoomRemoveTenant))
}

// Handlers

func (api *roomApi) create(ctx echo.Context) error {
	var data room.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rm, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, rm)
}

func (api *roomApi) query(ctx echo.Context) error {
	filter := new(room.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []room.Room{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rooms, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *roomApi) retrieve(ctx echo.Context) error {
	rm, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting room")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) setStatus(ctx echo.Context) error {
	var data room.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rm, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting room status")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) assign(ctx echo.Context) error {
	var data room.AssignTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTenant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rm, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning tenant")
	}
	metricsvc.RoomAllocations.WithLabelValues("assign").Inc()
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) removeTenant(ctx echo.Context) error {
	rm, err := api.svc.RemoveTenant(ctx.Request().Context(), ctx.Param("id"), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "removing tenant")
	}
	return ctx.JSON(http.StatusOK, rm)
}
