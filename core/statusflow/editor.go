package statusflow

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/academia/portal/core"
)

// Repository is the backend storing status flows.
type Repository interface {
	Statuses(ctx context.Context, scope Scope) ([]Status, error)
	Transitions(ctx context.Context, scope Scope) ([]RemoteTransition, error)
	SaveFlow(ctx context.Context, doc Document) error
}

// Editor holds the in-memory status flow of one scope while it is being edited.
// Edits are local until Save persists the whole flow in one round-trip.
type Editor struct {
	scope  Scope
	repo   Repository
	logger core.Logger

	mu          sync.Mutex
	rnd         *rand.Rand
	meta        Meta
	state       State
	rev         uint64 // bumped on every local edit
	savedRev    uint64
	statuses    []Status
	transitions []Transition
	graph       Graph
	edgeColors  map[string]bool
	loaded      Flow // as last loaded or saved
	lastErr     error
}

type EditorOption func(*Editor)

func WithRand(rnd *rand.Rand) EditorOption {
	return func(e *Editor) { e.rnd = rnd }
}

func WithEditorLogger(logger core.Logger) EditorOption {
	return func(e *Editor) { e.logger = logger }
}

func NewEditor(repo Repository, scope Scope, meta Meta, opts ...EditorOption) *Editor {
	e := &Editor{
		scope:      scope,
		repo:       repo,
		logger:     core.NopLogger(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		meta:       meta,
		state:      StateLoading,
		edgeColors: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) Scope() Scope { return e.scope }

// Load replaces the local flow by the persisted one.
// Fetch failures are logged and leave an empty graph; the error is returned for callers that must not go on.
func (e *Editor) Load(ctx context.Context) error {
	e.mu.Lock()
	e.state = StateLoading
	e.mu.Unlock()

	statuses, transitions, err := e.fetch(ctx)
	if err != nil {
		e.logger.Error("loading status flow", err, e.logFields())
		statuses, transitions = nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses = statuses
	e.transitions = transitions
	e.edgeColors = make(map[string]bool, len(transitions))
	e.graph = buildGraph(statuses, transitions, e.rnd)
	for _, edge := range e.graph.Edges {
		e.edgeColors[edge.Color] = true
	}
	e.loaded = e.flowLocked()
	e.rev, e.savedRev = 0, 0
	e.lastErr = nil
	e.state = StateReady
	return err
}

func (e *Editor) fetch(ctx context.Context) ([]Status, []Transition, error) {
	statuses, err := e.repo.Statuses(ctx, e.scope)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching statuses")
	}
	remote, err := e.repo.Transitions(ctx, e.scope)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching transitions")
	}
	return statuses, resolveTransitions(statuses, remote), nil
}

// Reset discards local edits.
func (e *Editor) Reset(ctx context.Context) error {
	return e.Load(ctx)
}

// AddStatus appends a status and its node. A random colour is used when color is empty.
func (e *Editor) AddStatus(name, color string) (Status, error) {
	name = core.CleanString(name)
	if name == "" {
		return Status{}, ErrEmptyStatusName
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkEditableLocked(); err != nil {
		return Status{}, err
	}
	if e.statusIndexLocked(name) >= 0 {
		return Status{}, ErrStatusExists
	}
	if color == "" {
		color = randomColor(e.rnd)
	}

	s := Status{Name: name, Color: color}
	e.statuses = append(e.statuses, s)
	e.graph.Nodes = append(e.graph.Nodes, randomNode(s, e.rnd))
	e.touchLocked()
	return s, nil
}

// RemoveStatus removes the status, its node, and every transition and edge touching it.
func (e *Editor) RemoveStatus(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkEditableLocked(); err != nil {
		return err
	}
	idx := e.statusIndexLocked(name)
	if idx < 0 {
		return ErrStatusNotFound
	}

	e.statuses = append(e.statuses[:idx:idx], e.statuses[idx+1:]...)

	transitions := e.transitions[:0:0]
	for _, tr := range e.transitions {
		if tr.From != name && tr.To != name {
			transitions = append(transitions, tr)
		}
	}
	e.transitions = transitions

	nodes := e.graph.Nodes[:0:0]
	for _, n := range e.graph.Nodes {
		if n.ID != name {
			nodes = append(nodes, n)
		}
	}
	edges := e.graph.Edges[:0:0]
	for _, edge := range e.graph.Edges {
		if edge.Source != name && edge.Target != name {
			edges = append(edges, edge)
		} else {
			delete(e.edgeColors, edge.Color)
		}
	}
	e.graph = Graph{Nodes: nodes, Edges: edges}
	e.touchLocked()
	return nil
}

// Connect adds a transition from -> to and its edge. Duplicates and cycles are accepted.
func (e *Editor) Connect(from, to string) (Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkEditableLocked(); err != nil {
		return Edge{}, err
	}
	if e.statusIndexLocked(from) < 0 || e.statusIndexLocked(to) < 0 {
		return Edge{}, ErrStatusNotFound
	}

	tr := Transition{From: from, To: to}
	tr.ID = transitionID(from, to, func(id string) bool { return e.transitionIndexLocked(id) >= 0 })
	edge := newEdge(tr, distinctColor(e.rnd, e.edgeColors))

	e.transitions = append(e.transitions, tr)
	e.graph.Edges = append(e.graph.Edges, edge)
	e.touchLocked()
	return edge, nil
}

// RemoveEdge removes the edge and the transition sharing its ID.
func (e *Editor) RemoveEdge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkEditableLocked(); err != nil {
		return err
	}
	idx := e.transitionIndexLocked(id)
	if idx < 0 {
		return ErrEdgeNotFound
	}
	e.transitions = append(e.transitions[:idx:idx], e.transitions[idx+1:]...)
	for i, edge := range e.graph.Edges {
		if edge.ID == id {
			delete(e.edgeColors, edge.Color)
			e.graph.Edges = append(e.graph.Edges[:i:i], e.graph.Edges[i+1:]...)
			break
		}
	}
	e.touchLocked()
	return nil
}

// Replace swaps the whole local flow (eg. an imported file). Unknown endpoints are kept as dangling.
func (e *Editor) Replace(f Flow) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkEditableLocked(); err != nil {
		return err
	}

	e.meta = f.Meta
	e.statuses = append(make([]Status, 0, len(f.Statuses)), f.Statuses...)
	known := make(map[string]bool, len(f.Statuses))
	for i, s := range e.statuses {
		if s.Color == "" {
			e.statuses[i].Color = randomColor(e.rnd)
		}
		known[s.Name] = true
	}

	taken := make(map[string]bool, len(f.Transitions))
	e.transitions = make([]Transition, 0, len(f.Transitions))
	for _, ft := range f.Transitions {
		tr := Transition{From: ft.From, To: ft.To, Dangling: !known[ft.From] || !known[ft.To]}
		tr.ID = transitionID(tr.From, tr.To, func(id string) bool { return taken[id] })
		taken[tr.ID] = true
		e.transitions = append(e.transitions, tr)
	}

	e.edgeColors = make(map[string]bool, len(e.transitions))
	e.graph = buildGraph(e.statuses, e.transitions, e.rnd)
	for _, edge := range e.graph.Edges {
		e.edgeColors[edge.Color] = true
	}
	e.touchLocked()
	return nil
}

func (e *Editor) SetMeta(m Meta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m != e.meta {
		e.meta = m
		e.touchLocked()
	}
}

// Save persists the whole flow. On failure the local edits are kept and the editor stays dirty.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateSaving:
		e.mu.Unlock()
		return ErrSaveInProgress
	case StateLoading:
		e.mu.Unlock()
		return ErrLoadInProgress
	}
	e.state = StateSaving
	rev := e.rev
	flow := e.flowLocked()
	e.mu.Unlock()

	err := e.repo.SaveFlow(ctx, flow.Document(e.scope))

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = err
		e.state = StateFailed
		return errors.Wrap(err, "saving status flow")
	}

	e.lastErr = nil
	e.savedRev = rev
	e.loaded = flow
	if e.rev == e.savedRev {
		e.state = StateReady
	} else {
		e.state = StateDirty // edited while saving
	}
	return nil
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dirty reports whether local edits have not been persisted yet.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rev != e.savedRev
}

func (e *Editor) Graph() Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graphCopyLocked()
}

// Flow returns the local flow.
func (e *Editor) Flow() Flow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flowLocked()
}

// Document returns the payload Save would send.
func (e *Editor) Document() Document {
	return e.Flow().Document(e.scope)
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Scope:       e.scope,
		Meta:        e.meta,
		State:       e.state,
		Dirty:       e.rev != e.savedRev,
		Statuses:    append(make([]Status, 0, len(e.statuses)), e.statuses...),
		Transitions: append(make([]Transition, 0, len(e.transitions)), e.transitions...),
		Graph:       e.graphCopyLocked(),
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// Diff is a unified diff between the last loaded (or saved) flow and the local one.
func (e *Editor) Diff() (string, error) {
	e.mu.Lock()
	saved, local := e.loaded, e.flowLocked()
	e.mu.Unlock()
	return diffFlows(saved, local)
}

func (e *Editor) checkEditableLocked() error {
	if e.state == StateLoading {
		return ErrLoadInProgress
	}
	return nil
}

func (e *Editor) touchLocked() {
	e.rev++
	if e.state != StateSaving {
		e.state = StateDirty
	}
}

func (e *Editor) statusIndexLocked(name string) int {
	for i, s := range e.statuses {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (e *Editor) transitionIndexLocked(id string) int {
	for i, tr := range e.transitions {
		if tr.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) flowLocked() Flow {
	f := Flow{
		Meta:        e.meta,
		Statuses:    append(make([]Status, 0, len(e.statuses)), e.statuses...),
		Transitions: make([]FlowTransition, 0, len(e.transitions)),
	}
	for _, tr := range e.transitions {
		f.Transitions = append(f.Transitions, FlowTransition{From: tr.From, To: tr.To})
	}
	return f
}

func (e *Editor) graphCopyLocked() Graph {
	return Graph{
		Nodes: append(make([]Node, 0, len(e.graph.Nodes)), e.graph.Nodes...),
		Edges: append(make([]Edge, 0, len(e.graph.Edges)), e.graph.Edges...),
	}
}

func (e *Editor) logFields() map[string]interface{} {
	return map[string]interface{}{
		"orgId":                 e.scope.OrgID,
		"workspaceId":           e.scope.WorkspaceID,
		"statusConfigurationId": e.scope.StatusConfigurationID,
	}
}
