// Package provenance walks the parent relation of simulated particles back
// to the oldest traceable ancestor.
package provenance

import (
	"github.com/mucoll/hitstats/internal/cache"
	"github.com/mucoll/hitstats/pkg/core"
)

// Resolver finds oldest ancestors within one event.
type Resolver struct {
	particles core.ParticleLookup
	memo      *cache.AncestorCache
}

// New creates a resolver over the particles of one event.
func New(particles core.ParticleLookup) *Resolver {
	return &Resolver{particles: particles}
}

// NewCached creates a resolver that memoizes results in memo. The cache
// must only hold entries for the same event.
func NewCached(particles core.ParticleLookup, memo *cache.AncestorCache) *Resolver {
	return &Resolver{particles: particles, memo: memo}
}

// OldestAncestor follows the first parent that is not the particle itself
// until a particle without such a parent is reached. It returns that
// particle and the number of steps taken.
//
// A parent ID missing from the event ends the walk at the current particle.
// The walk never takes more steps than there are particles in the event,
// so parent cycles terminate.
func (r *Resolver) OldestAncestor(p *core.Particle) (*core.Particle, int) {
	if p == nil {
		return nil, 0
	}
	if r.memo != nil {
		if a, ok := r.memo.Get(p.ID); ok {
			if anc, found := r.particles.Particle(a.ID); found {
				return anc, a.Depth
			}
		}
	}

	limit := r.particles.NumParticles()
	cur := p
	depth := 0
	for depth < limit {
		next, ok := r.parent(cur)
		if !ok {
			break
		}
		cur = next
		depth++
	}

	if r.memo != nil {
		r.memo.Set(p.ID, cache.Ancestry{ID: cur.ID, Depth: depth})
	}
	return cur, depth
}

// OldestAncestorOf resolves by particle ID. The boolean is false when the
// ID is not part of the event.
func (r *Resolver) OldestAncestorOf(id core.ParticleID) (*core.Particle, int, bool) {
	p, ok := r.particles.Particle(id)
	if !ok {
		return nil, 0, false
	}
	anc, depth := r.OldestAncestor(p)
	return anc, depth, true
}

// parent returns the first listed parent whose ID differs from p's.
func (r *Resolver) parent(p *core.Particle) (*core.Particle, bool) {
	for _, id := range p.Parents {
		if id == p.ID {
			continue
		}
		return r.particles.Particle(id)
	}
	return nil, false
}
