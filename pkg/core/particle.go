// pkg/core/particle.go
package core

// ParticleID is the stable handle of a simulated particle within one event.
type ParticleID int64

// Particle is a simulated true particle (MCParticle).
type Particle struct {
	ID              ParticleID   `json:"id"`
	PDG             int32        `json:"pdg"`
	GeneratorStatus int32        `json:"genStatus"`
	Vertex          Vector3      `json:"vertex"`
	Time            float64      `json:"time"`
	Momentum        FourVector   `json:"momentum"`
	Parents         []ParticleID `json:"parents,omitempty"`
}

// ParticleLookup resolves particle handles within one event.
type ParticleLookup interface {
	Particle(id ParticleID) (*Particle, bool)
	NumParticles() int
}
