package statusflow

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/academia/portal/core"
)

var ErrTooManyEditors = errors.New("too many open status flows")

type editorKey struct {
	owner string
	scope Scope
}

type registryEntry struct {
	editor *Editor
	used   uint64
}

// Registry keeps one editor per owner and scope.
// Past maxPerOwner editors, the owner's least recently used editor without pending edits is dropped.
type Registry struct {
	repo        Repository
	logger      core.Logger
	opts        []EditorOption
	maxPerOwner int

	mu      sync.Mutex
	tick    uint64
	editors map[editorKey]*registryEntry
}

func NewRegistry(repo Repository, logger core.Logger, maxPerOwner int, opts ...EditorOption) *Registry {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Registry{
		repo:        repo,
		logger:      logger,
		opts:        append([]EditorOption{WithEditorLogger(logger)}, opts...),
		maxPerOwner: maxPerOwner,
		editors:     make(map[editorKey]*registryEntry),
	}
}

// Acquire returns the owner's editor for scope, creating and loading it on first use.
func (r *Registry) Acquire(ctx context.Context, owner string, scope Scope) (*Editor, error) {
	key := editorKey{owner: owner, scope: scope}

	r.mu.Lock()
	r.tick++
	if ent, ok := r.editors[key]; ok {
		ent.used = r.tick
		r.mu.Unlock()
		return ent.editor, nil
	}
	if r.maxPerOwner > 0 && r.countLocked(owner) >= r.maxPerOwner && !r.evictLocked(owner) {
		r.mu.Unlock()
		return nil, ErrTooManyEditors
	}
	e := NewEditor(r.repo, scope, Meta{Status: defaultFlowState}, r.opts...)
	r.editors[key] = &registryEntry{editor: e, used: r.tick}
	r.mu.Unlock()

	_ = e.Load(ctx) // failures are logged by the editor
	return e, nil
}

func (r *Registry) countLocked(owner string) int {
	n := 0
	for key := range r.editors {
		if key.owner == owner {
			n++
		}
	}
	return n
}

// evictLocked drops the owner's least recently used editor that is neither dirty nor saving.
func (r *Registry) evictLocked(owner string) bool {
	var victim *editorKey
	var oldest uint64
	for key, ent := range r.editors {
		if key.owner != owner || ent.editor.Dirty() || ent.editor.State() == StateSaving {
			continue
		}
		if victim == nil || ent.used < oldest {
			k := key
			victim, oldest = &k, ent.used
		}
	}
	if victim == nil {
		return false
	}
	delete(r.editors, *victim)
	r.logger.Debug("status flow editor evicted", map[string]interface{}{"owner": owner, "scope": victim.scope})
	return true
}

// Lookup returns the owner's editor for scope without loading one.
func (r *Registry) Lookup(owner string, scope Scope) (*Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := r.editors[editorKey{owner: owner, scope: scope}]
	if !ok {
		return nil, core.ErrNotFound
	}
	return ent.editor, nil
}

// Release drops the owner's editor for scope, discarding unsaved edits.
func (r *Registry) Release(owner string, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.editors, editorKey{owner: owner, scope: scope})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}
