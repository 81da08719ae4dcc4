package savedview_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/savedview"
	"github.com/academia/portal/storage/database/sqlx"
	"github.com/academia/portal/tests"
)

func setup(t *testing.T) *savedview.Service {
	repo := sqlxrepos.NewSavedViewRepository(testutil.PrepareDB(t))
	validate, _ := testutil.NewValidator()
	return savedview.NewService(repo, validate, testutil.NewConfig())
}

func TestNewSavedView_Validate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	sess := testutil.Session("1", 1, 1)
	_, err := svc.Create(ctx, sess, savedview.NewSavedView{Name: "Java", Endpoint: "/searchCourse", Descriptor: query.New("Course", 10)})
	require.NoError(t, err)

	tests := []struct {
		name     string
		nsv      savedview.NewSavedView
		wantErr  bool
		wantName string
	}{
		{
			name:     "valid",
			nsv:      savedview.NewSavedView{Name: "  Go  ", Endpoint: "/searchCourse", Descriptor: query.New("Course", 10)},
			wantName: "Go",
		},
		{
			name:    "taken name",
			nsv:     savedview.NewSavedView{Name: "Java", Endpoint: "/searchCourse", Descriptor: query.New("Course", 10)},
			wantErr: true,
		},
		{
			name:    "bad endpoint",
			nsv:     savedview.NewSavedView{Name: "X", Endpoint: "searchCourse", Descriptor: query.New("Course", 10)},
			wantErr: true,
		},
		{
			name:    "missing root",
			nsv:     savedview.NewSavedView{Name: "X", Endpoint: "/searchCourse", Descriptor: query.Descriptor{Limit: 10}},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.nsv.Validate(ctx, svc, sess)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, tc.nsv.Name)
		})
	}
}

func TestService(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	sess := testutil.Session("1", 1, 1)
	other := testutil.Session("2", 1, 2)

	desc := "my courses"
	sv, err := svc.Create(ctx, sess, savedview.NewSavedView{
		Name:        "Java",
		Endpoint:    "/searchCourse",
		Descriptor:  query.New("Course", 10),
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sv.WorkspaceID)
	assert.Equal(t, "my courses", sv.Description.String)

	// name clash surfaces as a validation error on "name"
	_, err = svc.Create(ctx, sess, savedview.NewSavedView{Name: "Java", Endpoint: "/searchCourse", Descriptor: query.New("Course", 10)})
	require.Error(t, err)
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "name", verr.Fields[0].Field)

	got, err := svc.Get(ctx, sess, sv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Course", got.Descriptor.GetThisData.Datasource)

	_, err = svc.Get(ctx, other, sv.ID)
	assert.Equal(t, savedview.ErrNotFound, err)
	_, err = svc.Get(ctx, sess, "not-a-uuid")
	assert.Equal(t, savedview.ErrNotFound, err)

	views, err := svc.Query(ctx, sess, savedview.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, views, 1)
	views, err = svc.Query(ctx, other, savedview.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, views)

	require.NoError(t, svc.Delete(ctx, sess, sv.ID))
	assert.Equal(t, savedview.ErrNotFound, svc.Delete(ctx, sess, sv.ID))
}
