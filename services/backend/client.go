package backendsvc

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

const (
	statusesDatasource    = "Statuses"
	transitionsDatasource = "StatusesTransition"
	scopeLimit            = 1000 // statuses & transitions of one configuration are fetched in a single page
	maxErrorMessage       = 200
)

// Client talks to the REST backend on behalf of the session found in the request context.
type Client struct {
	baseURL    string
	searchPath string
	savePath   string
	http       *rest.Client
	logger     core.Logger
}

var (
	_ query.Searcher        = (*Client)(nil)
	_ statusflow.Repository = (*Client)(nil)
)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL:    conf.Backend.BaseURL,
		searchPath: conf.Backend.SearchPath,
		savePath:   conf.Backend.SavePath,
		http:       &rest.Client{HTTPClient: &http.Client{Timeout: conf.Backend.Timeout}},
		logger:     logger,
	}
}

type (
	envelope struct {
		Data query.Result `json:"data"`
	}

	statusesEnvelope struct {
		Data struct {
			Results []statusflow.Status `json:"results"`
		} `json:"data"`
	}

	transitionsEnvelope struct {
		Data struct {
			Results []statusflow.RemoteTransition `json:"results"`
		} `json:"data"`
	}

	errorBody struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
)

// Search posts d to endpoint (eg. "/searchCourse").
func (c *Client) Search(ctx context.Context, endpoint string, d query.Descriptor) (query.Result, error) {
	var env envelope
	if err := c.post(ctx, endpoint, d, &env); err != nil {
		return query.Result{}, errors.Wrapf(err, "searching %s", endpoint)
	}
	return env.Data, nil
}

func (c *Client) Statuses(ctx context.Context, scope statusflow.Scope) ([]statusflow.Status, error) {
	var env statusesEnvelope
	if err := c.post(ctx, c.searchPath, scopeDescriptor(statusesDatasource, scope), &env); err != nil {
		return nil, errors.Wrap(err, "searching statuses")
	}
	return env.Data.Results, nil
}

func (c *Client) Transitions(ctx context.Context, scope statusflow.Scope) ([]statusflow.RemoteTransition, error) {
	var env transitionsEnvelope
	if err := c.post(ctx, c.searchPath, scopeDescriptor(transitionsDatasource, scope), &env); err != nil {
		return nil, errors.Wrap(err, "searching status transitions")
	}
	return env.Data.Results, nil
}

// SaveFlow replaces the whole status flow of doc's configuration.
func (c *Client) SaveFlow(ctx context.Context, doc statusflow.Document) error {
	if err := c.post(ctx, c.savePath, doc, nil); err != nil {
		return errors.Wrap(err, "saving status flow")
	}
	return nil
}

func scopeDescriptor(datasource string, scope statusflow.Scope) query.Descriptor {
	d := query.New(datasource, scopeLimit)
	d.GetThisData.Where = query.Where{
		"workspaceId":           scope.WorkspaceID,
		"orgId":                 scope.OrgID,
		"statusConfigurationId": scope.StatusConfigurationID,
	}
	return d
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: payload,
	}
	if sess, ok := core.SessionFrom(ctx); ok && sess.Token != "" {
		req.Headers["Authorization"] = "Bearer " + sess.Token
	}

	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.NewBackendError(0, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.NewBackendError(resp.StatusCode, errorMessage(resp.Body))
	}

	if out == nil || strings.TrimSpace(resp.Body) == "" {
		return nil
	}
	if err := sonic.UnmarshalString(resp.Body, out); err != nil {
		c.logger.Warn("backend returned an undecodable body", err, map[string]interface{}{"path": path})
		return core.NewBackendError(resp.StatusCode, "invalid response body")
	}
	return nil
}

func errorMessage(body string) string {
	var eb errorBody
	if err := sonic.UnmarshalString(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	body = strings.TrimSpace(body)
	if len(body) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return body
}
