// pkg/core/event.go
package core

import (
	"context"
	"errors"
)

// ErrNoMoreEvents is returned by an EventSource when the input is exhausted.
var ErrNoMoreEvents = errors.New("no more events")

// Event is one simulated bunch crossing: the particle record plus the
// named hit collections of every sub-detector.
type Event struct {
	RunNumber   int32
	EventNumber int32
	Particles   []Particle
	Collections map[string]*Collection

	index map[ParticleID]int
}

// NewEvent builds an event and indexes its particles by ID.
// When IDs repeat the first particle wins.
func NewEvent(run, number int32, particles []Particle, collections []*Collection) *Event {
	e := &Event{
		RunNumber:   run,
		EventNumber: number,
		Particles:   particles,
		Collections: make(map[string]*Collection, len(collections)),
		index:       make(map[ParticleID]int, len(particles)),
	}
	for i := range particles {
		if _, ok := e.index[particles[i].ID]; !ok {
			e.index[particles[i].ID] = i
		}
	}
	for _, c := range collections {
		e.Collections[c.Name] = c
	}
	return e
}

// Particle returns the particle with the given ID.
func (e *Event) Particle(id ParticleID) (*Particle, bool) {
	i, ok := e.index[id]
	if !ok {
		return nil, false
	}
	return &e.Particles[i], true
}

// NumParticles returns the number of particles in the event.
func (e *Event) NumParticles() int {
	return len(e.Particles)
}

// Collection returns the named hit collection. Collections are sparse
// across detector geometries, so a missing name is not an error.
func (e *Event) Collection(name string) (*Collection, bool) {
	c, ok := e.Collections[name]
	return c, ok
}

// EventSource supplies events one at a time.
type EventSource interface {
	Next(ctx context.Context) (*Event, error)
	Close() error
}
