package echoapi

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads ?ordering=name,-created_at keeping the allowed fields only.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val, allowed...)
	}
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	pagerResponse struct {
		Page    int  `json:"page"`
		Pages   int  `json:"pages"`
		HasNext bool `json:"hasNext"`
		HasPrev bool `json:"hasPrev"`
	}

	// viewResponse is the state of a mounted view. Error is set when the last fetch failed;
	// Result then holds the previous result.
	viewResponse struct {
		ID         string           `json:"id"`
		Endpoint   string           `json:"endpoint"`
		Descriptor query.Descriptor `json:"descriptor"`
		Result     query.Result     `json:"result"`
		Pager      pagerResponse    `json:"pager"`
		Error      string           `json:"error,omitempty"`
	}

	mountRequest struct {
		Preset      string            `json:"preset" validate:"required_without_all=SavedViewID Descriptor"`
		SavedViewID string            `json:"savedViewId"`
		Endpoint    string            `json:"endpoint" validate:"required_with=Descriptor,omitempty,startswith=/"`
		Descriptor  *query.Descriptor `json:"descriptor"`
	}

	patchRequest struct {
		Datasource string      `json:"datasource" validate:"required"`
		Patch      query.Patch `json:"patch"`
	}

	pageRequest struct {
		Offset *int `json:"offset" validate:"omitempty,min=0"`
		Page   *int `json:"page" validate:"omitempty,min=1"`
		Limit  *int `json:"limit" validate:"omitempty,min=0"`
	}

	valueResponse struct {
		Value interface{} `json:"value"`
		Found bool        `json:"found"`
	}

	queryPatchRequest struct {
		Descriptor query.Descriptor `json:"descriptor"`
		Datasource string           `json:"datasource" validate:"required"`
		Patch      query.Patch      `json:"patch"`
	}

	queryPatchResponse struct {
		Descriptor query.Descriptor `json:"descriptor"`
		Matched    bool             `json:"matched"`
	}

	queryValueRequest struct {
		Descriptor query.Descriptor `json:"descriptor"`
		Datasource string           `json:"datasource" validate:"required"`
		Key        string           `json:"key" validate:"required"`
	}

	addStatusRequest struct {
		Name  string `json:"name" validate:"required,notblank"`
		Color string `json:"color" validate:"omitempty,hexcolor"`
	}

	connectRequest struct {
		From string `json:"from" validate:"required"`
		To   string `json:"to" validate:"required"`
	}

	metaRequest struct {
		Name        string `json:"name" validate:"required,notblank"`
		Description string `json:"description"`
		Status      string `json:"status" validate:"required"`
	}

	diffResponse struct {
		Diff string `json:"diff"`
	}
)

func newViewResponse(v *query.View, fetchErr error) viewResponse {
	p := v.Pager()
	resp := viewResponse{
		ID:         v.ID,
		Endpoint:   v.Endpoint,
		Descriptor: v.Descriptor(),
		Result:     v.Result(),
		Pager: pagerResponse{
			Page:    p.Page(),
			Pages:   p.Pages(),
			HasNext: p.HasNext(),
			HasPrev: p.HasPrev(),
		},
	}
	if resp.Result.Results == nil {
		resp.Result.Results = []query.Record{}
	}
	if fetchErr != nil {
		resp.Error = fetchErr.Error()
	}
	return resp
}

// scopeParams reads the status flow scope of /workspaces/:wid/status-flows/:cid in the session's org.
func scopeParams(ctx echo.Context, sess core.Session) (statusflow.Scope, error) {
	wid, err := strconv.Atoi(ctx.Param("wid"))
	if err != nil || wid <= 0 {
		return statusflow.Scope{}, errors.Wrap(errHttpNotFound, "parsing workspace id")
	}
	cid, err := strconv.Atoi(ctx.Param("cid"))
	if err != nil || cid <= 0 {
		return statusflow.Scope{}, errors.Wrap(errHttpNotFound, "parsing status configuration id")
	}
	return statusflow.Scope{OrgID: sess.OrgID, WorkspaceID: wid, StatusConfigurationID: cid}, nil
}

// pathParam is the unescaped value of a path parameter (status names may hold spaces).
func pathParam(ctx echo.Context, name string) string {
	raw := ctx.Param(name)
	if val, err := url.PathUnescape(raw); err == nil {
		return val
	}
	return raw
}
