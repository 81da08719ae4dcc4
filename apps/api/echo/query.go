package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
)

// queryApi exposes the descriptor operations without any view state.
type queryApi struct {
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
}

func registerQueryAPI(g *echo.Group, opts *Options) {
	api := queryApi{conf: opts.Conf, logger: opts.Logger, validate: opts.Validate}

	qg := g.Group("/query")
	qg.POST("/patch", api.patch)
	qg.POST("/value", api.value)
}

func (api *queryApi) patch(ctx echo.Context) error {
	var data queryPatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to queryPatchRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	d, matched := query.Update(data.Descriptor, data.Datasource, data.Patch)
	if !matched && api.conf.Views.LogPatchMisses {
		api.logger.Debug("query patch dropped: datasource not found", map[string]interface{}{"datasource": data.Datasource})
	}
	if err := query.Validate(api.validate, &d, api.conf.Views.MaxLimit); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, queryPatchResponse{Descriptor: d, Matched: matched})
}

func (api *queryApi) value(ctx echo.Context) error {
	var data queryValueRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to queryValueRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	val, found := query.Value(data.Descriptor, data.Datasource, data.Key)
	return ctx.JSON(http.StatusOK, valueResponse{Value: val, Found: found})
}
