package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/messmenu"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/user"
)

type messMenuApi struct {
	svc      *messmenu.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerMessMenuAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := messMenuApi{
		svc:      deps.MessMenuSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	mg := g.Group("/mess-menu", jwt)
	mg.GET("", api.query, can(policy.MessMenuList))
	mg.PUT("", api.set, can(policy.MessMenuUpsert))
	mg.DELETE("/:id", api.destroy, can(policy.MessMenuDelete))
}

func (api *messMenuApi) query(ctx echo.Context) error {
	entries, err := api.svc.Query(ctx.Request().Context(), ctx.QueryParam("day"))
	if err != nil {
		return errors.Wrap(err, "querying mess menu")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *messMenuApi) set(ctx echo.Context) error {
	var data messmenu.SetEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	e, err := api.svc.Set(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "setting mess menu entry")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *messMenuApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting mess menu entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}
