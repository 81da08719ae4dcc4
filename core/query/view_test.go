package query

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFunc func(ctx context.Context, endpoint string, d Descriptor) (Result, error)

func (fn searchFunc) Search(ctx context.Context, endpoint string, d Descriptor) (Result, error) {
	return fn(ctx, endpoint, d)
}

// pagedSearch serves total fake records, honouring limit & offset.
func pagedSearch(total int, calls *int32) searchFunc {
	return func(_ context.Context, _ string, d Descriptor) (Result, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		p := Pager{Limit: d.Limit, Offset: d.Offset, Total: total}
		recs := make([]Record, 0, p.ExpectedSize())
		for i := 0; i < p.ExpectedSize(); i++ {
			recs = append(recs, Record{"courseId": d.Offset + i + 1})
		}
		return Result{Results: recs, TotalCount: total, Limit: d.Limit, Offset: d.Offset}, nil
	}
}

func TestView_patchFetches(t *testing.T) {
	var seen Descriptor
	search := func(_ context.Context, endpoint string, d Descriptor) (Result, error) {
		assert.Equal(t, "/searchCourse", endpoint)
		seen = d
		return Result{Results: []Record{{"courseId": 1}}, TotalCount: 1, Limit: d.Limit}, nil
	}
	v := NewView(searchFunc(search), "/searchCourse", New("Course", 10))

	res, err := v.Patch(context.Background(), "Course", WhereKey("courseTitle", Like("%JAVA%")))
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, Where{"courseTitle": Condition{"$like": "%JAVA%"}}, seen.GetThisData.Where)

	got, ok := v.Value("Course", "where.courseTitle")
	assert.True(t, ok)
	assert.Equal(t, Condition{"$like": "%JAVA%"}, got)
}

func TestView_patchMissKeepsResult(t *testing.T) {
	var calls int32
	v := NewView(pagedSearch(5, &calls), "/searchCourse", New("Course", 10))

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	res, err := v.Patch(context.Background(), "Nope", WhereKey("a", 1))
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestView_patchRejectsInvalidDescriptor(t *testing.T) {
	validate, fields := newValidator()
	var calls int32
	v := NewView(pagedSearch(5, &calls), "/searchCourse", New("Course", 10), WithValidator(validate, 100))
	_, err := v.Refresh(context.Background())
	require.NoError(t, err)
	before := v.Descriptor()

	tests := []struct {
		name      string
		patch     Patch
		wantField string
	}{
		{name: "empty order field", patch: OrderBy(Order{Direction: Asc}), wantField: "field"},
		{name: "unknown direction", patch: OrderBy(Order{Field: "createdAt", Direction: "SIDEWAYS"}), wantField: "direction"},
		{
			name:      "bad include datasource",
			patch:     Patch{Include: &[]*DataNode{{Datasource: "x; DROP"}}},
			wantField: "datasource",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Patch(context.Background(), "Course", tc.patch)
			require.Error(t, err)
			assert.Contains(t, fields(err), tc.wantField)
			assert.Len(t, res.Results, 5)
			assert.Equal(t, before, v.Descriptor())
		})
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestView_staleWhileError(t *testing.T) {
	errBoom := errors.New("boom")
	fail := false
	ok := pagedSearch(23, nil)
	search := func(ctx context.Context, endpoint string, d Descriptor) (Result, error) {
		if fail {
			return Result{}, errBoom
		}
		return ok(ctx, endpoint, d)
	}
	v := NewView(searchFunc(search), "/searchCourse", New("Course", 10))

	first, err := v.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	res, err := v.SetPage(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.Equal(t, first, res)
	assert.Equal(t, first, v.Result())
}

func TestView_pagination(t *testing.T) {
	v := NewView(pagedSearch(23, nil), "/searchCourse", New("Course", 10))
	ctx := context.Background()

	for offset, want := range map[int]int{0: 10, 10: 10, 20: 3} {
		res, err := v.SetPage(ctx, offset)
		require.NoError(t, err)
		assert.Len(t, res.Results, want, "offset %d", offset)
	}

	// past the end, before anything is known: the view clamps and fetches again
	v = NewView(pagedSearch(23, nil), "/searchCourse", New("Course", 10))
	res, err := v.SetPage(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, 20, v.Descriptor().Offset)

	// past the end, once the total is known: clamped before fetching
	res, err = v.SetPage(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Offset)
	assert.Equal(t, 3, v.Pager().Pages())
}

func TestView_supersededResponseIsDropped(t *testing.T) {
	started := make(chan struct{})
	paged := pagedSearch(23, nil)
	search := func(ctx context.Context, endpoint string, d Descriptor) (Result, error) {
		if d.Offset == 0 {
			close(started)
			<-ctx.Done() // cancelled by the newer request
			return Result{Results: []Record{{"stale": true}}, TotalCount: 23}, nil
		}
		return paged(ctx, endpoint, d)
	}
	v := NewView(searchFunc(search), "/searchCourse", New("Course", 10))

	errc := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background())
		errc <- err
	}()
	<-started

	res, err := v.SetPage(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Offset)

	assert.Equal(t, ErrSuperseded, <-errc)
	assert.Equal(t, 10, v.Result().Offset)
	assert.Len(t, v.Result().Results, 10)
}

func TestView_closeCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	search := func(ctx context.Context, _ string, _ Descriptor) (Result, error) {
		close(started)
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	v := NewView(searchFunc(search), "/searchCourse", New("Course", 10))

	errc := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background())
		errc <- err
	}()
	<-started
	v.Close()
	assert.Equal(t, ErrSuperseded, <-errc)
}
