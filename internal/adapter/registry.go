package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/replicate/internal/model"
)

// Constructor builds an adapter for a site of a particular kind.
type Constructor func(ctx context.Context, site model.Site) (NodeAdapter, error)

// Registry is a Factory that resolves site ids to sites and dispatches on
// the site's kind.
type Registry struct {
	mu           sync.RWMutex
	sites        map[string]model.Site
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sites:        make(map[string]model.Site),
		constructors: make(map[string]Constructor),
	}
}

// RegisterKind installs the constructor for kind, replacing any previous one.
func (r *Registry) RegisterKind(kind string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[kind] = c
}

// AddSite makes a site resolvable by id.
func (r *Registry) AddSite(site model.Site) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.ID] = site
}

// Site returns the site registered under id.
func (r *Registry) Site(id string) (model.Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.sites[id]
	return site, ok
}

// Create builds a new adapter for the site registered under siteID.
// Construction failures are reported as connectivity failures.
func (r *Registry) Create(ctx context.Context, siteID string) (NodeAdapter, error) {
	r.mu.RLock()
	site, ok := r.sites[siteID]
	var construct Constructor
	if ok {
		construct = r.constructors[site.Kind]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("create adapter for %q: %w", siteID, ErrUnknownSite)
	}
	if construct == nil {
		return nil, fmt.Errorf("create adapter for %q: %w: %q", siteID, ErrUnknownKind, site.Kind)
	}
	a, err := construct(ctx, site)
	if err != nil {
		return nil, Unavailable("connect", site.Name, err)
	}
	return a, nil
}
