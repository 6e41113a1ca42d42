package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core/feedback"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/user"
)

type feedbackApi struct {
	svc      *feedback.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, authz authorizer, deps ServerDeps) {
	api := feedbackApi{
		svc:      deps.FeedbackSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	can := func(op policy.Operation) echo.MiddlewareFunc { return authz.can(api.usrSvc, op) }

	fg := g.Group("/feedback", jwt)
	fg.POST("", api.create, can(policy.FeedbackCreate))
	fg.GET("", api.summarize, can(policy.FeedbackList))
	fg.GET("/my-feedback", api.queryMine, can(policy.FeedbackListOwn))
	fg.DELETE("/:id", api.destroy, can(policy.FeedbackDelete))
}

func (api *feedbackApi) create(ctx echo.Context) error {
	var data feedback.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	f, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating feedback")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feedbackApi) summarize(ctx echo.Context) error {
	summary, err := api.svc.Summarize(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing feedback")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *feedbackApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying own feedback")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *feedbackApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	return ctx.NoContent(http.StatusNoContent)
}
