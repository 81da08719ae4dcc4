package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/statusflow"
)

type flowApi struct {
	logger   core.Logger
	flows    *statusflow.Registry
	validate *validator.Validate
}

func registerFlowAPI(g *echo.Group, opts *Options) {
	api := flowApi{logger: opts.Logger, flows: opts.Flows, validate: opts.Validate}

	fg := g.Group("/workspaces/:wid/status-flows/:cid")
	fg.GET("", api.retrieve)
	fg.DELETE("", api.close)
	fg.PUT("/meta", api.setMeta)
	fg.POST("/statuses", api.addStatus)
	fg.DELETE("/statuses/:name", api.removeStatus)
	fg.POST("/transitions", api.connect)
	fg.DELETE("/transitions/:id", api.removeTransition)
	fg.POST("/save", api.save)
	fg.POST("/reset", api.reset)
	fg.GET("/diff", api.diff)
}

// editor returns the caller's editor of the scope in the URL, loading it on first access.
func (api *flowApi) editor(ctx echo.Context) (*statusflow.Editor, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := scopeParams(ctx, sess)
	if err != nil {
		return nil, err
	}
	return api.flows.Acquire(ctx.Request().Context(), sess.Owner(), scope)
}

func statusFieldError(err error, field string) error {
	switch errors.Cause(err) {
	case statusflow.ErrStatusExists, statusflow.ErrEmptyStatusName:
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return err
}

// Handlers

func (api *flowApi) retrieve(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

func (api *flowApi) close(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	scope, err := scopeParams(ctx, sess)
	if err != nil {
		return err
	}
	api.flows.Release(sess.Owner(), scope)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *flowApi) setMeta(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	var data metaRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to metaRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	e.SetMeta(statusflow.Meta{Name: core.CleanString(data.Name), Description: data.Description, Status: data.Status})
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

func (api *flowApi) addStatus(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	var data addStatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to addStatusRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if _, err = e.AddStatus(data.Name, data.Color); err != nil {
		return statusFieldError(err, "name")
	}
	return ctx.JSON(http.StatusCreated, e.Snapshot())
}

func (api *flowApi) removeStatus(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	if err = e.RemoveStatus(pathParam(ctx, "name")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

func (api *flowApi) connect(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	var data connectRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to connectRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if _, err = e.Connect(data.From, data.To); err != nil {
		if errors.Cause(err) == statusflow.ErrStatusNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "from", Error: "both ends must be existing statuses"})
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, e.Snapshot())
}

func (api *flowApi) removeTransition(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	if err = e.RemoveEdge(pathParam(ctx, "id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

// save persists the flow. A backend failure answers 502 with the still dirty snapshot.
func (api *flowApi) save(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	if err = e.Save(ctx.Request().Context()); err != nil {
		if statusOf(err) == http.StatusBadGateway {
			sess, _ := getContextSession(ctx)
			api.logger.Warn("saving status flow failed", err, sess)
			return ctx.JSON(http.StatusBadGateway, e.Snapshot())
		}
		return err
	}
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

func (api *flowApi) reset(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	_ = e.Reset(ctx.Request().Context()) // failures are logged by the editor
	return ctx.JSON(http.StatusOK, e.Snapshot())
}

func (api *flowApi) diff(ctx echo.Context) error {
	e, err := api.editor(ctx)
	if err != nil {
		return err
	}
	d, err := e.Diff()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, diffResponse{Diff: d})
}
