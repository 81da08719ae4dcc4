package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/savedview"
)

type viewApi struct {
	conf     *core.Config
	logger   core.Logger
	searcher query.Searcher
	views    *query.Registry
	saved    *savedview.Service
	validate *validator.Validate
}

func registerViewAPI(g *echo.Group, opts *Options) {
	api := viewApi{
		conf:     opts.Conf,
		logger:   opts.Logger,
		searcher: opts.Searcher,
		views:    opts.Views,
		saved:    opts.SavedViewSvc,
		validate: opts.Validate,
	}

	vg := g.Group("/views")
	vg.GET("/presets", api.presets)
	vg.POST("", api.mount)

	dg := vg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.patch)
	dg.PUT("/page", api.page)
	dg.POST("/refresh", api.refresh)
	dg.GET("/value", api.value)
	dg.DELETE("", api.unmount)
}

func (api *viewApi) getView(ctx echo.Context) (*query.View, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return nil, err
	}
	return api.views.Get(sess.Owner(), ctx.Param("id"))
}

// respond sends the view state. Backend failures keep the view usable: the previous result is sent with a 502.
func (api *viewApi) respond(ctx echo.Context, okCode int, v *query.View, fetchErr error) error {
	if fetchErr == nil {
		return ctx.JSON(okCode, newViewResponse(v, nil))
	}
	switch code := statusOf(fetchErr); code {
	case http.StatusBadGateway, http.StatusConflict:
		if code == http.StatusBadGateway {
			sess, _ := getContextSession(ctx)
			api.logger.Warn("view fetch failed", fetchErr, map[string]interface{}{"view": v.ID}, sess)
		}
		return ctx.JSON(code, newViewResponse(v, fetchErr))
	}
	return fetchErr
}

// Handlers

func (api *viewApi) presets(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, query.PresetNames())
}

func (api *viewApi) mount(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data mountRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to mountRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	var endpoint string
	var base query.Descriptor
	switch {
	case data.Preset != "":
		preset, ok := query.LookupPreset(data.Preset)
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "preset", Error: "unknown preset"})
		}
		endpoint, base = preset.Endpoint, preset.Build(sess, api.conf.Views.DefaultLimit)
	case data.SavedViewID != "":
		sv, err := api.saved.Get(ctx.Request().Context(), sess, data.SavedViewID)
		if err != nil {
			if errors.Cause(err) == savedview.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "savedViewId", Error: err.Error()})
			}
			return errors.Wrap(err, "getting saved view")
		}
		endpoint, base = sv.Endpoint, sv.Descriptor
	default:
		endpoint, base = data.Endpoint, query.Clone(*data.Descriptor)
	}
	if err = query.Validate(api.validate, &base, api.conf.Views.MaxLimit); err != nil {
		return err
	}

	v := query.NewView(api.searcher, endpoint, base,
		query.WithLogger(api.logger, api.conf.Views.LogPatchMisses),
		query.WithValidator(api.validate, api.conf.Views.MaxLimit),
	)
	if v, err = api.views.Open(sess.Owner(), v); err != nil {
		return err
	}
	_, err = v.Refresh(ctx.Request().Context())
	return api.respond(ctx, http.StatusCreated, v, err)
}

func (api *viewApi) retrieve(ctx echo.Context) error {
	v, err := api.getView(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newViewResponse(v, nil))
}

func (api *viewApi) patch(ctx echo.Context) error {
	v, err := api.getView(ctx)
	if err != nil {
		return err
	}

	var data patchRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to patchRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	_, err = v.Patch(ctx.Request().Context(), data.Datasource, data.Patch)
	return api.respond(ctx, http.StatusOK, v, err)
}

func (api *viewApi) page(ctx echo.Context) error {
	v, err := api.getView(ctx)
	if err != nil {
		return err
	}

	var data pageRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to pageRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if data.Offset == nil && data.Page == nil && data.Limit == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "offset", Error: "one of offset, page or limit is required"})
	}

	reqCtx := ctx.Request().Context()
	if data.Limit != nil {
		limit := *data.Limit
		if maxLimit := api.conf.Views.MaxLimit; maxLimit > 0 && limit > maxLimit {
			limit = maxLimit
		}
		if data.Offset == nil && data.Page == nil {
			_, err = v.SetLimit(reqCtx, limit)
			return api.respond(ctx, http.StatusOK, v, err)
		}
		// the window moves right after; only the last fetch counts
		if _, err = v.SetLimit(reqCtx, limit); err != nil && statusOf(err) != http.StatusBadGateway {
			return api.respond(ctx, http.StatusOK, v, err)
		}
	}

	offset := 0
	if data.Page != nil {
		offset = v.Pager().AtPage(*data.Page).Offset
	} else {
		offset = *data.Offset
	}
	_, err = v.SetPage(reqCtx, offset)
	return api.respond(ctx, http.StatusOK, v, err)
}

func (api *viewApi) refresh(ctx echo.Context) error {
	v, err := api.getView(ctx)
	if err != nil {
		return err
	}
	_, err = v.Refresh(ctx.Request().Context())
	return api.respond(ctx, http.StatusOK, v, err)
}

func (api *viewApi) value(ctx echo.Context) error {
	v, err := api.getView(ctx)
	if err != nil {
		return err
	}
	datasource, key := ctx.QueryParam("datasource"), ctx.QueryParam("key")
	if datasource == "" || key == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "key", Error: "datasource and key are required"})
	}
	val, found := v.Value(datasource, key)
	return ctx.JSON(http.StatusOK, valueResponse{Value: val, Found: found})
}

func (api *viewApi) unmount(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.views.Close(sess.Owner(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
