package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

const defaultIdleTTL = 30 * time.Minute

// DepsFactory binds the visitor-scoped collaborators for visitorID.
type DepsFactory func(visitorID string) VisitorDeps

// Registry holds one Portal per visitor. Portals are created on first use and
// closed after sitting idle for the configured TTL.
type Registry struct {
	factory DepsFactory
	records ports.RecordStore
	cfg     PortalConfig
	idleTTL time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	portals map[string]*Portal
}

func NewRegistry(factory DepsFactory, records ports.RecordStore, cfg PortalConfig, idleTTL time.Duration, log zerolog.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &Registry{
		factory: factory,
		records: records,
		cfg:     cfg,
		idleTTL: idleTTL,
		log:     log,
		portals: make(map[string]*Portal),
	}
}

// Get returns the portal of visitorID, creating and initializing it when
// absent.
func (r *Registry) Get(visitorID string) *Portal {
	r.mu.Lock()
	p, ok := r.portals[visitorID]
	if !ok {
		p = NewPortal(visitorID, r.factory(visitorID), r.records, r.cfg, r.log)
		r.portals[visitorID] = p
		metrics.ActiveVisitors.Set(float64(len(r.portals)))
	}
	// Touched under the lock so EvictIdle cannot close p before it is returned.
	p.Touch()
	r.mu.Unlock()

	p.Auth.Initialize()
	return p
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.portals)
}

// Run evicts idle portals until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.EvictIdle(now); n > 0 {
				r.log.Debug().Int("evicted", n).Msg("idle portals evicted")
			}
		}
	}
}

// EvictIdle closes every portal unused since now minus the idle TTL and
// returns how many were closed. Portals with a mounted view are kept.
func (r *Registry) EvictIdle(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Portal
	for id, p := range r.portals {
		if p.evictable(cutoff) {
			idle = append(idle, p)
			delete(r.portals, id)
		}
	}
	metrics.ActiveVisitors.Set(float64(len(r.portals)))
	r.mu.Unlock()

	for _, p := range idle {
		p.Close()
	}
	return len(idle)
}

// Close closes every portal.
func (r *Registry) Close() {
	r.mu.Lock()
	portals := r.portals
	r.portals = make(map[string]*Portal)
	metrics.ActiveVisitors.Set(0)
	r.mu.Unlock()

	for _, p := range portals {
		p.Close()
	}
}
