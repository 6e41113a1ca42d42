package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/complaint"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/user"
)

type complaintApi struct {
	svc      *complaint.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerComplaintAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := complaintApi{
		svc:      deps.ComplaintSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	cg := g.Group("/complaints", jwt)
	cg.POST("", api.create, can(policy.ComplaintCreate))
	cg.GET("", api.query, can(policy.ComplaintList))
	cg.GET("/my-complaints", api.queryMine, can(policy.ComplaintListOwn))
	cg.PUT("/:id", api.update, can(policy.ComplaintUpdate))
	cg.DELETE("/:id", api.destroy, can(policy.ComplaintDelete))
}

func (api *complaintApi) create(ctx echo.Context) error {
	var data complaint.NewComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComplaint")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating complaint")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *complaintApi) query(ctx echo.Context) error {
	filter := new(complaint.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []complaint.Complaint{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	complaints, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying complaints")
	}
	return ctx.JSON(http.StatusOK, complaints)
}

func (api *complaintApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	complaints, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying own complaints")
	}
	return ctx.JSON(http.StatusOK, complaints)
}

func (api *complaintApi) update(ctx echo.Context) error {
	var data complaint.UpdateComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComplaint")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating complaint")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *complaintApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting complaint")
	}
	return ctx.NoContent(http.StatusNoContent)
}
