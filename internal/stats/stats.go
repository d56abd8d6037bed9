// Package stats holds the typed statistic registry and the accumulator that
// drivers record into. Histogram and profile content lives in hbook
// histograms; Stat is the flat copy handed to storage.
package stats

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the shape of a statistic.
type Kind int

const (
	Hist1D Kind = iota + 1
	Hist2D
	Profile
	NTuple
)

var kindNames = map[Kind]string{
	Hist1D:  "hist1d",
	Hist2D:  "hist2d",
	Profile: "profile",
	NTuple:  "ntuple",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown stat kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown stat kind %q", string(b))
}

var (
	ErrUnknownStat  = errors.New("unknown statistic")
	ErrDuplicate    = errors.New("statistic already registered")
	ErrInvalidDef   = errors.New("invalid statistic definition")
	ErrDimension    = errors.New("wrong number of values")
	ErrIncompatible = errors.New("incompatible accumulators")
)

// Axis is a fixed-width binning. Bin 0 is underflow and Bins+1 overflow.
type Axis struct {
	Label string  `json:"label"`
	Bins  int     `json:"bins"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewAxis is shorthand for an Axis literal.
func NewAxis(label string, bins int, lo, hi float64) Axis {
	return Axis{Label: label, Bins: bins, Min: lo, Max: hi}
}

func (a Axis) validate() error {
	if a.Bins <= 0 {
		return fmt.Errorf("axis %q: bins must be positive, got %d", a.Label, a.Bins)
	}
	if !(a.Max > a.Min) {
		return fmt.Errorf("axis %q: max %g not above min %g", a.Label, a.Max, a.Min)
	}
	return nil
}

// Bin returns the bin index of x including the flow bins. The upper edge
// belongs to the overflow bin. NaN goes to underflow. Bin edges are
// Min+i*width, the layout hbook fills against.
func (a Axis) Bin(x float64) int {
	if math.IsNaN(x) || x < a.Min {
		return 0
	}
	if x >= a.Max {
		return a.Bins + 1
	}
	w := (a.Max - a.Min) / float64(a.Bins)
	i := int((x - a.Min) / w)
	for i > 0 && x < a.Min+float64(i)*w {
		i--
	}
	for i < a.Bins && x >= a.Min+float64(i+1)*w {
		i++
	}
	return i + 1
}

// Center returns the centre of bin i (1-based).
func (a Axis) Center(i int) float64 {
	w := (a.Max - a.Min) / float64(a.Bins)
	return a.Min + (float64(i)-0.5)*w
}

// Definition declares one statistic.
type Definition struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Kind        Kind     `json:"kind"`
	X           Axis     `json:"x"`
	Y           Axis     `json:"y"`
	Columns     []string `json:"columns,omitempty"`
	TextColumns []string `json:"textColumns,omitempty"`
}

// H1 declares a one-dimensional histogram.
func H1(name string, x Axis) Definition {
	return Definition{Name: name, Kind: Hist1D, X: x}
}

// H2 declares a two-dimensional histogram.
func H2(name string, x, y Axis) Definition {
	return Definition{Name: name, Kind: Hist2D, X: x, Y: y}
}

// P1 declares a profile of y over the bins of x. Y only carries the label.
func P1(name string, x Axis, yLabel string) Definition {
	return Definition{Name: name, Kind: Profile, X: x, Y: Axis{Label: yLabel}}
}

// Tuple declares an n-tuple with numeric and optional text columns.
func Tuple(name string, columns []string, text ...string) Definition {
	return Definition{Name: name, Kind: NTuple, Columns: columns, TextColumns: text}
}

// Dims returns the number of values Record expects.
func (d Definition) Dims() int {
	switch d.Kind {
	case Hist1D:
		return 1
	case Hist2D, Profile:
		return 2
	case NTuple:
		return len(d.Columns)
	}
	return 0
}

// Validate checks the definition for the declared kind.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDef)
	}
	switch d.Kind {
	case Hist1D, Profile:
		if err := d.X.validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDef, d.Name, err)
		}
	case Hist2D:
		if err := d.X.validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDef, d.Name, err)
		}
		if err := d.Y.validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDef, d.Name, err)
		}
	case NTuple:
		if len(d.Columns) == 0 && len(d.TextColumns) == 0 {
			return fmt.Errorf("%w: %s: ntuple without columns", ErrInvalidDef, d.Name)
		}
		seen := make(map[string]bool)
		for _, c := range append(append([]string{}, d.Columns...), d.TextColumns...) {
			if seen[c] {
				return fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidDef, d.Name, c)
			}
			seen[c] = true
		}
	default:
		return fmt.Errorf("%w: %s: %v", ErrInvalidDef, d.Name, d.Kind)
	}
	return nil
}

func (d Definition) sameShape(o Definition) bool {
	if d.Name != o.Name || d.Kind != o.Kind || d.X != o.X || d.Y != o.Y {
		return false
	}
	if len(d.Columns) != len(o.Columns) || len(d.TextColumns) != len(o.TextColumns) {
		return false
	}
	for i := range d.Columns {
		if d.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range d.TextColumns {
		if d.TextColumns[i] != o.TextColumns[i] {
			return false
		}
	}
	return true
}

// Registry holds the statistics of a run in registration order.
type Registry struct {
	defs  []Definition
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Handle refers to a registered statistic. Filling through a handle skips
// the name lookup, so drivers resolve them once at start of data.
type Handle int

// Register validates and adds definitions. Nothing is added when any
// definition is rejected.
func (r *Registry) Register(defs ...Definition) error {
	_, err := r.Add(defs...)
	return err
}

// Add is Register returning the handles of defs in order.
func (r *Registry) Add(defs ...Definition) ([]Handle, error) {
	pending := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.index[d.Name]; ok || pending[d.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, d.Name)
		}
		pending[d.Name] = true
	}
	handles := make([]Handle, len(defs))
	for i, d := range defs {
		handles[i] = Handle(len(r.defs))
		r.index[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return handles, nil
}

// Handle returns the handle of the named statistic.
func (r *Registry) Handle(name string) (Handle, error) {
	i, ok := r.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownStat, name)
	}
	return Handle(i), nil
}

// Lookup returns the named definition.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Len() int {
	return len(r.defs)
}
