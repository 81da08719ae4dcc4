package inmembackend

import (
	"context"
	"sort"
	"sync"

	"github.com/academia/portal/core"
	"github.com/academia/portal/core/query"
	"github.com/academia/portal/core/statusflow"
)

// Backend serves searches and status flows from memory.
// It is used in debug mode and by tests in place of the REST backend.
type Backend struct {
	mutex    sync.RWMutex
	tables   map[string][]query.Record // by root datasource
	flows    map[statusflow.Scope]*flow
	pkCount  int
	failNext error
}

type flow struct {
	doc         statusflow.Document
	statuses    []statusflow.Status
	transitions []statusflow.RemoteTransition
}

var (
	_ query.Searcher        = (*Backend)(nil)
	_ statusflow.Repository = (*Backend)(nil)
)

func New() *Backend {
	return &Backend{
		tables: make(map[string][]query.Record),
		flows:  make(map[statusflow.Scope]*flow),
	}
}

// Seed appends records to the table of datasource.
func (b *Backend) Seed(datasource string, records ...query.Record) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.tables[datasource] = append(b.tables[datasource], records...)
}

// FailNext makes the next call return err.
func (b *Backend) FailNext(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failNext = err
}

func (b *Backend) takeFailure() error {
	err := b.failNext
	b.failNext = nil
	return err
}

// Search filters the table of the root datasource with its where clause, sorts it and pages it.
// Includes are not joined.
func (b *Backend) Search(ctx context.Context, _ string, d query.Descriptor) (query.Result, error) {
	if err := ctx.Err(); err != nil {
		return query.Result{}, err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.takeFailure(); err != nil {
		return query.Result{}, err
	}
	if d.GetThisData == nil {
		return query.Result{}, core.NewBackendError(400, "getThisData is required")
	}

	root := d.GetThisData
	matched := make([]query.Record, 0)
	for _, rec := range b.tables[root.Datasource] {
		if matchWhere(rec, root.Where) {
			matched = append(matched, rec)
		}
	}
	sortRecords(matched, root.Order)

	p := query.Pager{Limit: d.Limit, Offset: max(d.Offset, 0), Total: len(matched)}
	start := min(p.Offset, len(matched))
	page := make([]query.Record, 0, p.ExpectedSize())
	for _, rec := range matched[start : start+p.ExpectedSize()] {
		page = append(page, project(rec, root.Attributes))
	}
	return query.Result{Results: page, TotalCount: len(matched), Limit: d.Limit, Offset: d.Offset}, nil
}

func (b *Backend) Statuses(ctx context.Context, scope statusflow.Scope) ([]statusflow.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.takeFailure(); err != nil {
		return nil, err
	}
	f, ok := b.flows[scope]
	if !ok {
		return []statusflow.Status{}, nil
	}
	return append([]statusflow.Status(nil), f.statuses...), nil
}

func (b *Backend) Transitions(ctx context.Context, scope statusflow.Scope) ([]statusflow.RemoteTransition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.takeFailure(); err != nil {
		return nil, err
	}
	f, ok := b.flows[scope]
	if !ok {
		return []statusflow.RemoteTransition{}, nil
	}
	return append([]statusflow.RemoteTransition(nil), f.transitions...), nil
}

// SaveFlow replaces the flow of doc's scope. Statuses keep their ID when their name is unchanged.
// A transition naming an unknown status is rejected.
func (b *Backend) SaveFlow(ctx context.Context, doc statusflow.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.takeFailure(); err != nil {
		return err
	}

	scope := statusflow.Scope{OrgID: doc.OrgID, WorkspaceID: doc.WorkspaceID, StatusConfigurationID: doc.StatusConfigurationID}
	prevIDs := make(map[string]int)
	if prev, ok := b.flows[scope]; ok {
		for _, s := range prev.statuses {
			prevIDs[s.Name] = s.ID
		}
	}

	f := &flow{doc: doc}
	ids := make(map[string]int, len(doc.PossibleStatus))
	for _, s := range doc.PossibleStatus {
		id, ok := prevIDs[s.Name]
		if !ok {
			b.pkCount++
			id = b.pkCount
		}
		s.ID = id
		ids[s.Name] = id
		f.statuses = append(f.statuses, s)
	}
	for _, tr := range doc.PossibleStatusTransition {
		from, okFrom := ids[tr.From]
		to, okTo := ids[tr.To]
		if !okFrom || !okTo {
			return core.NewBackendError(400, "transition "+tr.From+" -> "+tr.To+" references an unknown status")
		}
		b.pkCount++
		f.transitions = append(f.transitions, statusflow.RemoteTransition{ID: b.pkCount, FromStatus: from, ToStatus: to})
	}
	b.flows[scope] = f
	return nil
}

// SavedFlow returns the last document saved for scope.
func (b *Backend) SavedFlow(scope statusflow.Scope) (statusflow.Document, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	f, ok := b.flows[scope]
	if !ok {
		return statusflow.Document{}, false
	}
	return f.doc, true
}

func project(rec query.Record, attrs []string) query.Record {
	out := make(query.Record, len(rec))
	if len(attrs) == 0 {
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	for _, a := range attrs {
		if v, ok := rec[a]; ok {
			out[a] = v
		}
	}
	return out
}

func sortRecords(recs []query.Record, order []query.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, o := range order {
			c := compare(recs[i][o.Field], recs[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Direction == query.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
