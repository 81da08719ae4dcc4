package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/portal/core/savedview"
)

type savedViewApi struct {
	svc *savedview.Service
}

func registerSavedViewAPI(g *echo.Group, opts *Options) {
	api := savedViewApi{svc: opts.SavedViewSvc}

	sg := g.Group("/saved-views")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.destroy)
}

func (api *savedViewApi) create(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data savedview.NewSavedView
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSavedView")
	}
	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, api.svc, sess); err != nil {
		return err
	}

	sv, err := api.svc.Create(reqCtx, sess, data)
	if err != nil {
		return errors.Wrap(err, "creating saved view")
	}
	return ctx.JSON(http.StatusCreated, sv)
}

func (api *savedViewApi) query(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	filter := savedview.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Endpoint: ctx.QueryParam("endpoint"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, savedview.OrderingFields...)

	views, err := api.svc.Query(ctx.Request().Context(), sess, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying saved views")
	}
	if views == nil {
		views = []savedview.SavedView{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *savedViewApi) retrieve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	sv, err := api.svc.Get(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting saved view")
	}
	return ctx.JSON(http.StatusOK, sv)
}

func (api *savedViewApi) destroy(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), sess, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting saved view")
	}
	return ctx.NoContent(http.StatusNoContent)
}
