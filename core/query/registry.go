package query

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/academia/portal/core"
)

var ErrTooManyViews = errors.New("too many open views")

// Registry keeps the mounted views of every owner.
type Registry struct {
	maxPerOwner int

	mu      sync.RWMutex
	views   map[string]*View
	byOwner map[string]int
}

func NewRegistry(maxPerOwner int) *Registry {
	return &Registry{
		maxPerOwner: maxPerOwner,
		views:       make(map[string]*View),
		byOwner:     make(map[string]int),
	}
}

// Open mounts v for owner and assigns its ID.
func (r *Registry) Open(owner string, v *View) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxPerOwner > 0 && r.byOwner[owner] >= r.maxPerOwner {
		return nil, ErrTooManyViews
	}
	v.ID = uuid.New().String()
	v.Owner = owner
	r.views[v.ID] = v
	r.byOwner[owner]++
	return v, nil
}

func (r *Registry) Get(owner, id string) (*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.views[id]
	if !ok || v.Owner != owner {
		return nil, core.ErrNotFound
	}
	return v, nil
}

// Close unmounts the view and cancels its in-flight fetch.
func (r *Registry) Close(owner, id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	if !ok || v.Owner != owner {
		r.mu.Unlock()
		return core.ErrNotFound
	}
	delete(r.views, id)
	r.byOwner[owner]--
	if r.byOwner[owner] <= 0 {
		delete(r.byOwner, owner)
	}
	r.mu.Unlock()

	v.Close()
	return nil
}

func (r *Registry) Len(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byOwner[owner]
}
