// pkg/core/hit.go
package core

// CollectionType distinguishes tracker hits (one deposit) from
// calorimeter hits (a list of contributions).
type CollectionType string

const (
	SimTrackerHit     CollectionType = "SimTrackerHit"
	SimCalorimeterHit CollectionType = "SimCalorimeterHit"
)

// Contribution is one (time, energy, particle) deposit inside a hit.
type Contribution struct {
	Time     float64    `json:"time"`
	Energy   float64    `json:"energy"`
	Particle ParticleID `json:"particle"`
}

// Hit is a detector-cell energy deposit.
//
// Tracker hits carry EDep, Time and Particle. Calorimeter hits carry
// Energy and an ordered, non-empty Contributions list.
type Hit struct {
	CellID        uint64         `json:"cellId"`
	Position      Vector3        `json:"position"`
	EDep          float64        `json:"edep,omitempty"`
	Time          float64        `json:"time,omitempty"`
	Particle      ParticleID     `json:"particle,omitempty"`
	Energy        float64        `json:"energy,omitempty"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// IsSimple reports whether the hit is a single deposit without a contribution list.
func (h *Hit) IsSimple() bool {
	return len(h.Contributions) == 0
}

// Contribs returns the contributions of the hit. A simple hit yields one
// contribution built from its own time, deposit and particle.
func (h *Hit) Contribs() []Contribution {
	if h.IsSimple() {
		return []Contribution{{Time: h.Time, Energy: h.EDep, Particle: h.Particle}}
	}
	return h.Contributions
}

// TotalEnergy returns the deposited energy of the hit in GeV.
func (h *Hit) TotalEnergy() float64 {
	if h.IsSimple() {
		return h.EDep
	}
	return h.Energy
}

// Collection is a named list of hits sharing one cell ID layout.
type Collection struct {
	Name           string         `json:"name"`
	Type           CollectionType `json:"type"`
	CellIDEncoding string         `json:"cellIdEncoding"`
	Hits           []Hit          `json:"hits"`
}

// Len returns the number of hits.
func (c *Collection) Len() int {
	return len(c.Hits)
}
