package eventio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mucoll/hitstats/pkg/core"
)

// writeEvent encodes ev as one JSON line in the format ParseEvent reads.
// Collections are written in name order.
func writeEvent(w io.Writer, ev *core.Event) error {
	raw := rawEvent{
		Run:       ev.RunNumber,
		Event:     ev.EventNumber,
		Particles: ev.Particles,
	}
	for _, name := range sortedNames(ev) {
		c := ev.Collections[name]
		rc := rawCollection{
			Name:           c.Name,
			Type:           string(c.Type),
			CellIDEncoding: c.CellIDEncoding,
			Hits:           make([]rawHit, len(c.Hits)),
		}
		for i := range c.Hits {
			h := c.Hits[i]
			id := h.CellID
			rc.Hits[i] = rawHit{
				CellID:        &id,
				Position:      h.Position,
				EDep:          h.EDep,
				Time:          h.Time,
				Particle:      h.Particle,
				Energy:        h.Energy,
				Contributions: h.Contributions,
			}
		}
		raw.Collections = append(raw.Collections, rc)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding event %d: %w", ev.EventNumber, err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func sortedNames(ev *core.Event) []string {
	names := make([]string, 0, len(ev.Collections))
	for name := range ev.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
