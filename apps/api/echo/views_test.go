package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/tests"
)

func mountCourses(t *testing.T, env *testEnv) viewResponse {
	t.Helper()
	var resp viewResponse
	rec := env.do(t, http.MethodPost, "/v1/views", env.token, echoMap{"preset": "courses"}, &resp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return resp
}

type echoMap map[string]interface{}

func TestViews_mount(t *testing.T) {
	env := setup(t)

	resp := mountCourses(t, env)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "/searchCourse", resp.Endpoint)
	assert.Equal(t, 23, resp.Result.TotalCount)
	assert.Len(t, resp.Result.Results, 10)
	assert.Equal(t, pagerResponse{Page: 1, Pages: 3, HasNext: true}, resp.Pager)
	assert.Equal(t, "Course", resp.Descriptor.GetThisData.Datasource)

	var raw viewResponse
	rec := env.do(t, http.MethodPost, "/v1/views", env.token, echoMap{
		"endpoint": "/searchWorkspace",
		"descriptor": echoMap{
			"limit":       5,
			"getThisData": echoMap{"datasource": "Workspace", "order": [][]string{{"workspaceName", "DESC"}}},
		},
	}, &raw)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 3, raw.Result.TotalCount)
	assert.Equal(t, "Support", raw.Result.Results[0]["workspaceName"])

	tests := []httpTest{
		{
			name:     "nothing to mount",
			method:   http.MethodPost,
			path:     "/v1/views",
			body:     []byte(`{}`),
			token:    env.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"preset":"this field is required"}`),
		},
		{
			name:     "unknown preset",
			method:   http.MethodPost,
			path:     "/v1/views",
			body:     []byte(`{"preset":"nope"}`),
			token:    env.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"preset":"unknown preset"}`),
		},
		{
			name:     "unknown saved view",
			method:   http.MethodPost,
			path:     "/v1/views",
			body:     []byte(`{"savedViewId":"7c5ed1f5-3c0e-4c57-9b5c-3d2b0a8d7a31"}`),
			token:    env.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"savedViewId":"saved view not found"}`),
		},
		{
			name:     "descriptor without endpoint",
			method:   http.MethodPost,
			path:     "/v1/views",
			body:     []byte(`{"descriptor":{"limit":5,"getThisData":{"datasource":"Course"}}}`),
			token:    env.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"endpoint":"this field is required"}`),
		},
	}
	runHTTPTests(t, env, tests)
}

func TestViews_tooManyViews(t *testing.T) {
	env := setup(t)
	for i := 0; i < env.conf.Views.MaxPerOwner; i++ {
		mountCourses(t, env)
	}

	rec := env.do(t, http.MethodPost, "/v1/views", env.token, echoMap{"preset": "courses"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many open views"}`, rec.Body.String())

	// other users have their own quota
	other := env.getToken(t, testutil.Session("2", 1, 1))
	rec = env.do(t, http.MethodPost, "/v1/views", other, echoMap{"preset": "courses"}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestViews_patch(t *testing.T) {
	env := setup(t)
	mounted := mountCourses(t, env)
	path := "/v1/views/" + mounted.ID

	var resp viewResponse
	rec := env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "Course",
		Patch:      query.WhereKey("courseTitle", query.ILike("%java%")),
	}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, resp.Result.TotalCount)
	assert.Equal(t, query.Where{"courseTitle": map[string]interface{}{"$iLike": "%java%"}}, resp.Descriptor.GetThisData.Where)

	// a second key is merged next to the first one
	rec = env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "Course",
		Patch:      query.WhereKey("isPublished", true),
	}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, resp.Descriptor.GetThisData.Where, 2)
	for _, r := range resp.Result.Results {
		assert.Equal(t, true, r["isPublished"])
	}

	// nested includes are addressed by datasource
	rec = env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "CourseCategory",
		Patch:      query.WhereKey("categoryName", "Programming"),
	}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Programming", query.Find(resp.Descriptor, "CourseCategory").Where["categoryName"])

	// unknown datasources leave the view untouched
	before := resp
	rec = env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "Nope",
		Patch:      query.WhereKey("x", 1),
	}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, before.Descriptor, resp.Descriptor)
	assert.Equal(t, before.Result.TotalCount, resp.Result.TotalCount)

	// patches must keep the descriptor valid
	before = resp
	var fldErrs map[string]string
	rec = env.do(t, http.MethodPatch, path, env.token, echoMap{
		"datasource": "Course",
		"patch":      echoMap{"order": [][]string{{"x", "SIDEWAYS"}}},
	}, &fldErrs)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, fldErrs, "getThisData.order[0].direction")
	rec = env.do(t, http.MethodGet, path, env.token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, before.Descriptor, resp.Descriptor)

	rec = env.do(t, http.MethodPatch, path, env.token, echoMap{"patch": echoMap{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"datasource":"this field is required"}`, rec.Body.String())
}

func TestViews_value(t *testing.T) {
	env := setup(t)
	mounted := mountCourses(t, env)
	path := "/v1/views/" + mounted.ID

	env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "Course",
		Patch:      query.WhereKey("courseTitle", query.ILike("%go%")),
	}, nil)

	tests := []httpTest{
		{
			name:     "where field",
			method:   http.MethodGet,
			path:     path + "/value?datasource=Course&key=where.courseTitle",
			token:    env.token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"value":{"$iLike":"%go%"},"found":true}`),
		},
		{
			name:     "as of include",
			method:   http.MethodGet,
			path:     path + "/value?datasource=CourseCategory&key=as",
			token:    env.token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"value":"category","found":true}`),
		},
		{
			name:     "unknown datasource",
			method:   http.MethodGet,
			path:     path + "/value?datasource=Nope&key=where",
			token:    env.token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"value":null,"found":false}`),
		},
		{
			name:     "missing key",
			method:   http.MethodGet,
			path:     path + "/value?datasource=Course",
			token:    env.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"key":"datasource and key are required"}`),
		},
	}
	runHTTPTests(t, env, tests)
}

func TestViews_page(t *testing.T) {
	env := setup(t)
	mounted := mountCourses(t, env)
	path := "/v1/views/" + mounted.ID + "/page"

	tests := []struct {
		name       string
		body       interface{}
		wantCode   int
		wantOffset int
		wantLen    int
		wantPage   int
	}{
		{"second page by offset", echoMap{"offset": 10}, http.StatusOK, 10, 10, 2},
		{"third page by number", echoMap{"page": 3}, http.StatusOK, 20, 3, 3},
		{"past the end lands on the last page", echoMap{"offset": 30}, http.StatusOK, 20, 3, 3},
		{"page past the end", echoMap{"page": 9}, http.StatusOK, 20, 3, 3},
		{"first page", echoMap{"page": 1}, http.StatusOK, 0, 10, 1},
		{"limit only", echoMap{"limit": 5}, http.StatusOK, 0, 5, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp viewResponse
			rec := env.do(t, http.MethodPut, path, env.token, tc.body, &resp)
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantOffset, resp.Descriptor.Offset)
			assert.Len(t, resp.Result.Results, tc.wantLen)
			assert.Equal(t, tc.wantPage, resp.Pager.Page)
		})
	}

	rec := env.do(t, http.MethodPut, path, env.token, echoMap{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPut, path, env.token, echoMap{"offset": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViews_backendFailureKeepsResult(t *testing.T) {
	env := setup(t)
	mounted := mountCourses(t, env)
	path := "/v1/views/" + mounted.ID

	env.backend.FailNext(core.NewBackendError(http.StatusServiceUnavailable, "down for maintenance"))

	var resp viewResponse
	rec := env.do(t, http.MethodPatch, path, env.token, patchRequest{
		Datasource: "Course",
		Patch:      query.WhereKey("courseTitle", query.ILike("%java%")),
	}, &resp)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	assert.Contains(t, resp.Error, "down for maintenance")
	assert.Equal(t, 23, resp.Result.TotalCount, "previous result is kept")
	assert.Equal(t, query.ILike("%java%"), query.Condition(resp.Descriptor.GetThisData.Where["courseTitle"].(map[string]interface{})))

	// the next refresh recovers with the current descriptor
	rec = env.do(t, http.MethodPost, path+"/refresh", env.token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, resp.Result.TotalCount)
	assert.Empty(t, resp.Error)
}

func TestViews_lifecycle(t *testing.T) {
	env := setup(t)
	mounted := mountCourses(t, env)
	path := "/v1/views/" + mounted.ID
	other := env.getToken(t, testutil.Session("2", 1, 1))

	var resp viewResponse
	rec := env.do(t, http.MethodGet, path, env.token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mounted.ID, resp.ID)
	assert.Equal(t, mounted.Result.TotalCount, resp.Result.TotalCount)

	tests := []httpTest{
		{name: "other users cannot see it", method: http.MethodGet, path: path, token: other, wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
		{name: "other users cannot close it", method: http.MethodDelete, path: path, token: other, wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
	}
	runHTTPTests(t, env, tests)

	rec = env.do(t, http.MethodDelete, path, env.token, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, path, env.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, env.views.Len(core.Session{UserID: "1", OrgID: 1}.Owner()))
}
