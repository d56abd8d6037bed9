package eventio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mucoll/hitstats/internal/cellid"
	"github.com/mucoll/hitstats/pkg/core"
)

// ErrInvalidRecord marks a line that is valid JSON but not a valid event.
var ErrInvalidRecord = errors.New("invalid event record")

// rawEvent is one JSON line.
type rawEvent struct {
	Run         int32           `json:"run"`
	Event       int32           `json:"event"`
	Particles   []core.Particle `json:"particles"`
	Collections []rawCollection `json:"collections"`
}

type rawCollection struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	CellIDEncoding string   `json:"cellIdEncoding"`
	Hits           []rawHit `json:"hits"`
}

// rawHit accepts either a 64-bit cellId or the legacy cellId0/cellId1 pair.
type rawHit struct {
	CellID        *uint64             `json:"cellId,omitempty"`
	CellID0       *int32              `json:"cellId0,omitempty"`
	CellID1       *int32              `json:"cellId1,omitempty"`
	Position      core.Vector3        `json:"position"`
	EDep          float64             `json:"edep,omitempty"`
	Time          float64             `json:"time,omitempty"`
	Particle      core.ParticleID     `json:"particle,omitempty"`
	Energy        float64             `json:"energy,omitempty"`
	Contributions []core.Contribution `json:"contributions,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

// ParseEvent decodes one JSON line into an event.
func ParseEvent(line []byte) (*core.Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	cols := make([]*core.Collection, 0, len(raw.Collections))
	seen := make(map[string]bool, len(raw.Collections))
	for ci, rc := range raw.Collections {
		if rc.Name == "" {
			return nil, invalid("collection %d has no name", ci)
		}
		if seen[rc.Name] {
			return nil, invalid("duplicate collection %s", rc.Name)
		}
		seen[rc.Name] = true

		c, err := convertCollection(rc)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}

	return core.NewEvent(raw.Run, raw.Event, raw.Particles, cols), nil
}

func convertCollection(rc rawCollection) (*core.Collection, error) {
	typ := core.CollectionType(rc.Type)
	if typ != core.SimTrackerHit && typ != core.SimCalorimeterHit {
		return nil, invalid("collection %s: unknown type %q", rc.Name, rc.Type)
	}

	c := &core.Collection{
		Name:           rc.Name,
		Type:           typ,
		CellIDEncoding: rc.CellIDEncoding,
		Hits:           make([]core.Hit, len(rc.Hits)),
	}
	for i, rh := range rc.Hits {
		id, err := rh.cellID()
		if err != nil {
			return nil, invalid("collection %s hit %d: %v", rc.Name, i, err)
		}
		h := core.Hit{CellID: id, Position: rh.Position}
		if typ == core.SimCalorimeterHit {
			if len(rh.Contributions) == 0 {
				return nil, invalid("collection %s hit %d: calorimeter hit without contributions", rc.Name, i)
			}
			h.Energy = rh.Energy
			h.Contributions = rh.Contributions
		} else {
			h.EDep = rh.EDep
			h.Time = rh.Time
			h.Particle = rh.Particle
		}
		c.Hits[i] = h
	}
	return c, nil
}

func (rh rawHit) cellID() (uint64, error) {
	switch {
	case rh.CellID != nil:
		return *rh.CellID, nil
	case rh.CellID0 != nil:
		var hi int32
		if rh.CellID1 != nil {
			hi = *rh.CellID1
		}
		return cellid.Combine(*rh.CellID0, hi), nil
	default:
		return 0, errors.New("missing cellId")
	}
}
