// Package driver holds the per-event analysis drivers. A driver registers
// its statistics at start of data, records into the shared accumulator for
// every event and reports at end of data.
package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/mucoll/hitstats/internal/aggregate"
	"github.com/mucoll/hitstats/internal/cache"
	"github.com/mucoll/hitstats/internal/cellid"
	"github.com/mucoll/hitstats/internal/provenance"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

var (
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrWindowMismatch means the aggregator was built with other cutoffs
	// than the ones the driver registered statistics for.
	ErrWindowMismatch = errors.New("aggregator cutoffs differ from driver setup")
)

// Driver is one analysis over the event stream.
type Driver interface {
	Name() string
	StartOfData(reg *stats.Registry) error
	ProcessEvent(ctx *Context, ev *core.Event) error
	EndOfData() error
}

// Requirer is implemented by drivers that only read some collections.
// Events carrying none of them can be skipped.
type Requirer interface {
	Requires() []string
}

// Collections names the hit collections of each detector group.
type Collections struct {
	Tracker     []string
	Calorimeter []string
	Muon        []string
	Vertex      []string
}

// DefaultCollections returns the collection names of the muon collider
// detector model.
func DefaultCollections() Collections {
	return Collections{
		Tracker: []string{
			"VertexBarrelCollection", "VertexEndcapCollection",
			"InnerTrackerBarrelCollection", "InnerTrackerEndcapCollection",
			"OuterTrackerBarrelCollection", "OuterTrackerEndcapCollection",
		},
		Calorimeter: []string{
			"ECalBarrelCollection", "ECalEndcapCollection",
			"HCalBarrelCollection", "HCalEndcapCollection",
		},
		Muon:   []string{"YokeBarrelCollection", "YokeEndcapCollection"},
		Vertex: []string{"VertexBarrelCollection"},
	}
}

// Setup is what drivers are constructed from.
type Setup struct {
	Window      aggregate.Config
	Collections Collections
	Logger      *slog.Logger
}

func (s Setup) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Factory builds a driver.
type Factory func(Setup) Driver

var factories = map[string]Factory{
	"timing":   NewTiming,
	"mcp":      NewMCP,
	"calmcp":   NewCalMCP,
	"vtxprops": NewVtxProps,
	"hitprops": NewHitProps,
	"density":  NewDensity,
	"loopers":  NewLoopers,
}

// Names returns the registered driver names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named driver.
func New(name string, setup Setup) (Driver, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return f(setup), nil
}

// Context is the per-run state shared by all drivers.
type Context struct {
	Stats   *stats.Accumulator
	Window  *aggregate.Aggregator
	Schemas *cache.SchemaCache
	Logger  *slog.Logger

	ancestors *cache.AncestorCache
	current   *core.Event
}

func NewContext(acc *stats.Accumulator, window *aggregate.Aggregator, schemas *cache.SchemaCache, logger *slog.Logger) *Context {
	if schemas == nil {
		schemas = cache.NewSchemaCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Stats:     acc,
		Window:    window,
		Schemas:   schemas,
		Logger:    logger,
		ancestors: cache.NewAncestorCache(),
	}
}

// Resolver returns an ancestor resolver over ev. Resolved ancestries are
// shared between drivers until a different event is passed.
func (c *Context) Resolver(ev *core.Event) *provenance.Resolver {
	if c.current != ev {
		c.ancestors.Reset()
		c.current = ev
	}
	return provenance.NewCached(ev, c.ancestors)
}

// Collection returns the named collection of ev. Absence is logged and
// the caller skips it for this event.
func (c *Context) Collection(ev *core.Event, name string) (*core.Collection, bool) {
	col, ok := ev.Collection(name)
	if !ok {
		c.Logger.Debug("Collection not in event", "collection", name, "event", ev.EventNumber)
	}
	return col, ok
}

// Fields parses the cell ID layout of col and returns the positions of
// the named fields in decoded values.
func (c *Context) Fields(col *core.Collection, names ...string) (*cellid.Schema, []int, error) {
	schema, err := c.Schemas.Get(col.CellIDEncoding)
	if err != nil {
		return nil, nil, fmt.Errorf("collection %s: %w", col.Name, err)
	}
	idx := make([]int, len(names))
	for i, name := range names {
		if idx[i], err = schema.Index(name); err != nil {
			return nil, nil, fmt.Errorf("collection %s: %w", col.Name, err)
		}
	}
	return schema, idx, nil
}

// Recorder returns a recorder that keeps the first accumulator error.
func (c *Context) Recorder() *Recorder {
	return &Recorder{acc: c.Stats}
}

// Recorder batches fills so drivers check for errors once. Drivers fill
// through the handles they registered at start of data.
type Recorder struct {
	acc *stats.Accumulator
	err error
}

func (r *Recorder) Fill(h stats.Handle, values ...float64) {
	if r.err == nil {
		r.err = r.acc.FillAt(h, values...)
	}
}

func (r *Recorder) Row(h stats.Handle, values []float64, text ...string) {
	if r.err == nil {
		r.err = r.acc.AppendRowAt(h, values, text)
	}
}

func (r *Recorder) Err() error {
	return r.err
}

// binding pairs a definition with the field that receives its handle.
type binding struct {
	def stats.Definition
	to  *stats.Handle
}

func bind(def stats.Definition, to *stats.Handle) binding {
	return binding{def: def, to: to}
}

// register adds the definitions of bs in order and stores their handles.
func register(reg *stats.Registry, bs ...binding) error {
	defs := make([]stats.Definition, len(bs))
	for i, b := range bs {
		defs[i] = b.def
	}
	hs, err := reg.Add(defs...)
	if err != nil {
		return err
	}
	for i, b := range bs {
		*b.to = hs[i]
	}
	return nil
}

func cutoffLabel(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

func concat(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, s := range l {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// particleRow returns the kinematics columns of p in particleColumns order.
func particleRow(p *core.Particle) []float64 {
	m := p.Momentum
	return []float64{
		p.Vertex.X, p.Vertex.Y, p.Vertex.Z, p.Vertex.Perp(),
		float64(p.PDG), float64(p.GeneratorStatus), p.Time,
		m.Theta(), m.Phi(), m.P(), m.Pt(), m.Pz, m.E, m.Beta(), m.Gamma(),
	}
}

func particleColumns(prefix string) []string {
	names := []string{
		"vtx_x", "vtx_y", "vtx_z", "vtx_r",
		"pdg", "gen", "time",
		"theta", "phi", "p", "pt", "pz", "e", "beta", "gamma",
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + "_" + n
	}
	return out
}
