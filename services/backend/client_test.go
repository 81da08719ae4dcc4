package backendsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

type recorded struct {
	path string
	auth string
	body map[string]interface{}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recorded{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		_ = json.Unmarshal(raw, &rec.body)
		reqs = append(reqs, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	conf := &core.Config{Backend: core.BackendConfig{
		BaseURL:    srv.URL + "/api",
		SearchPath: "/search",
		SavePath:   "/createEditStatusFlow",
		Timeout:    5 * time.Second,
	}}
	return NewClient(conf, core.NopLogger()), &reqs
}

func sessionCtx() context.Context {
	return core.WithSession(context.Background(), core.Session{UserID: "7", OrgID: 1, WorkspaceID: 2, Token: "tok"})
}

func TestClient_Search(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"results":[{"courseId":1,"courseTitle":"Java"}],"totalCount":23,"limit":10,"offset":20}}`)
	})

	d, _ := query.Update(query.New("Course", 10), "Course", query.WhereKey("courseTitle", query.Like("%JAVA%")))
	res, err := c.Search(sessionCtx(), "/searchCourse", d)
	require.NoError(t, err)

	assert.Equal(t, 23, res.TotalCount)
	assert.Equal(t, 20, res.Offset)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Java", res.Results[0]["courseTitle"])

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/api/searchCourse", req.path)
	assert.Equal(t, "Bearer tok", req.auth)
	assert.Equal(t, float64(10), req.body["limit"])
	where := req.body["getThisData"].(map[string]interface{})["where"]
	assert.Equal(t, map[string]interface{}{"courseTitle": map[string]interface{}{"$like": "%JAVA%"}}, where)
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"message":"bad where"}`, wantMsg: "bad where"},
		{name: "plain body", status: http.StatusInternalServerError, body: "oops", wantMsg: "oops"},
		{name: "undecodable", status: http.StatusOK, body: "<html>", wantMsg: "invalid response body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Search(sessionCtx(), "/searchCourse", query.New("Course", 10))
			require.Error(t, err)
			assert.True(t, core.IsBackendError(err))
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestErrorMessage_truncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorMessage-1) + "é" + strings.Repeat("b", 10)
	msg := errorMessage(body)
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, strings.Repeat("a", maxErrorMessage-1), msg)

	short := strings.Repeat("é", maxErrorMessage)
	msg = errorMessage(short)
	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, len(msg), maxErrorMessage)
	assert.Equal(t, maxErrorMessage/2, utf8.RuneCountInString(msg))
}

func TestClient_flows(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/createEditStatusFlow" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"results":[{"statusId":4,"statusName":"OPEN","statusColor":"#fff000","fromStatus":4,"toStatus":5}],"totalCount":1}}`)
	})
	scope := statusflow.Scope{OrgID: 1, WorkspaceID: 2, StatusConfigurationID: 3}

	statuses, err := c.Statuses(sessionCtx(), scope)
	require.NoError(t, err)
	assert.Equal(t, []statusflow.Status{{ID: 4, Name: "OPEN", Color: "#fff000"}}, statuses)

	transitions, err := c.Transitions(sessionCtx(), scope)
	require.NoError(t, err)
	assert.Equal(t, []statusflow.RemoteTransition{{FromStatus: 4, ToStatus: 5}}, transitions)

	doc := statusflow.Flow{
		Meta:        statusflow.Meta{Name: "Support", Status: "ACTIVE"},
		Statuses:    []statusflow.Status{{Name: "OPEN"}, {Name: "DONE"}},
		Transitions: []statusflow.FlowTransition{{From: "OPEN", To: "DONE"}},
	}.Document(scope)
	require.NoError(t, c.SaveFlow(sessionCtx(), doc))

	require.Len(t, *reqs, 3)
	stGetThisData := (*reqs)[0].body["getThisData"].(map[string]interface{})
	assert.Equal(t, "Statuses", stGetThisData["datasource"])
	assert.Equal(t, map[string]interface{}{"workspaceId": float64(2), "orgId": float64(1), "statusConfigurationId": float64(3)}, stGetThisData["where"])
	assert.Equal(t, "StatusesTransition", (*reqs)[1].body["getThisData"].(map[string]interface{})["datasource"])

	save := (*reqs)[2]
	assert.Equal(t, "/api/createEditStatusFlow", save.path)
	assert.Equal(t, "Support", save.body["statusConfigurationName"])
	assert.Len(t, save.body["possibleStatus"], 2)
	assert.Equal(t, []interface{}{map[string]interface{}{"fromStatus": "OPEN", "toStatus": "DONE"}}, save.body["possibleStatusTransition"])
}

func TestClient_unreachable(t *testing.T) {
	conf := &core.Config{Backend: core.BackendConfig{BaseURL: "http://127.0.0.1:1", SearchPath: "/search", Timeout: time.Second}}
	c := NewClient(conf, core.NopLogger())
	_, err := c.Statuses(context.Background(), statusflow.Scope{})
	require.Error(t, err)
	assert.True(t, core.IsBackendError(err))
}
