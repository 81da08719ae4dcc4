package query

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
)

// ErrSuperseded is returned for a response that arrived after a newer request was issued.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Searcher runs a Descriptor against a search endpoint of the backend.
type Searcher interface {
	Search(ctx context.Context, endpoint string, d Descriptor) (Result, error)
}

// View is the state of one mounted screen: its descriptor and the last result it got.
// Every change to the descriptor triggers a fetch; only the latest fetch may update the view.
type View struct {
	ID       string `json:"id"`
	Owner    string `json:"-"`
	Endpoint string `json:"endpoint"`

	searcher Searcher
	logger   core.Logger
	logMiss  bool
	validate *validator.Validate
	maxLimit int

	mu      sync.Mutex
	desc    Descriptor
	result  Result
	fetched bool
	gen     uint64
	cancel  context.CancelFunc
}

type ViewOption func(*View)

func WithLogger(logger core.Logger, logMisses bool) ViewOption {
	return func(v *View) {
		v.logger = logger
		v.logMiss = logMisses
	}
}

// WithValidator makes Patch reject a descriptor that Validate refuses.
func WithValidator(validate *validator.Validate, maxLimit int) ViewOption {
	return func(v *View) {
		v.validate = validate
		v.maxLimit = maxLimit
	}
}

func NewView(searcher Searcher, endpoint string, base Descriptor, opts ...ViewOption) *View {
	v := &View{
		Endpoint: endpoint,
		searcher: searcher,
		logger:   core.NopLogger(),
		desc:     Clone(base),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) Descriptor() Descriptor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Clone(v.desc)
}

// Result is the last successful result (stale while a fetch fails).
func (v *View) Result() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

func (v *View) Pager() Pager {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Pager{Limit: v.desc.Limit, Offset: v.desc.Offset, Total: v.result.TotalCount}
}

// Value reads the current value of key on datasource (see Value).
func (v *View) Value(datasource, key string) (interface{}, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Value(v.desc, datasource, key)
}

// Patch applies p to datasource and re-fetches.
// A patch that targets an unknown datasource is dropped; the view keeps its result.
// A patch producing an invalid descriptor is refused and leaves the view untouched.
func (v *View) Patch(ctx context.Context, datasource string, p Patch) (Result, error) {
	v.mu.Lock()
	nd, ok := Update(v.desc, datasource, p)
	if !ok {
		fetched, res := v.fetched, v.result
		v.mu.Unlock()
		if v.logMiss {
			v.logger.Debug("query patch dropped: datasource not found",
				map[string]interface{}{"view": v.ID, "datasource": datasource})
		}
		if fetched {
			return res, nil
		}
		return v.Refresh(ctx)
	}
	if v.validate != nil {
		if err := Validate(v.validate, &nd, v.maxLimit); err != nil {
			res := v.result
			v.mu.Unlock()
			return res, err
		}
	}
	v.desc = nd
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetPage moves the window to offset and re-fetches.
func (v *View) SetPage(ctx context.Context, offset int) (Result, error) {
	v.mu.Lock()
	p := Pager{Limit: v.desc.Limit, Offset: offset, Total: v.result.TotalCount}
	if !v.fetched {
		p.Total = offset + 1 // nothing to clamp against yet
	}
	v.desc.Offset = p.Clamp().Offset
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *View) SetLimit(ctx context.Context, limit int) (Result, error) {
	v.mu.Lock()
	if limit < 0 {
		limit = 0
	}
	v.desc.Limit = limit
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Refresh fetches the current descriptor. The previous in-flight fetch, if any, is cancelled.
func (v *View) Refresh(ctx context.Context) (Result, error) {
	return v.refresh(ctx, true)
}

func (v *View) refresh(ctx context.Context, allowClamp bool) (Result, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	desc := Clone(v.desc)
	v.mu.Unlock()
	defer cancel()

	res, err := v.searcher.Search(fetchCtx, v.Endpoint, desc)

	v.mu.Lock()
	if gen != v.gen {
		prev := v.result
		v.mu.Unlock()
		return prev, ErrSuperseded
	}
	if err != nil {
		prev := v.result
		v.mu.Unlock()
		return prev, errors.Wrap(err, "searching "+v.Endpoint)
	}

	// paged past the end (eg. rows deleted meanwhile): move to the last page once
	if allowClamp && len(res.Results) == 0 && desc.Offset > 0 {
		clamped := Pager{Limit: desc.Limit, Offset: desc.Offset, Total: res.TotalCount}.Clamp()
		if clamped.Offset != desc.Offset {
			v.desc.Offset = clamped.Offset
			v.mu.Unlock()
			return v.refresh(ctx, false)
		}
	}

	v.result = res
	v.fetched = true
	v.mu.Unlock()
	return res, nil
}

// Close cancels the in-flight fetch. The view must not be used afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
