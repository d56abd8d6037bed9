package cellid

import (
	"fmt"
	"strings"
)

// Values holds the decoded fields of one cell identifier.
type Values struct {
	schema *Schema
	vals   []int64
}

// Decode extracts every field of raw. Bits not covered by a field are ignored.
func (s *Schema) Decode(raw uint64) Values {
	vals := make([]int64, len(s.fields))
	for i, f := range s.fields {
		vals[i] = extract(raw, f)
	}
	return Values{schema: s, vals: vals}
}

// Field decodes a single named field of raw.
func (s *Schema) Field(raw uint64, name string) (int64, error) {
	i, err := s.Index(name)
	if err != nil {
		return 0, err
	}
	return extract(raw, s.fields[i]), nil
}

func extract(raw uint64, f Field) int64 {
	u := (raw >> f.Offset) & f.mask()
	if f.Signed && f.Width < MaxBits && u&(uint64(1)<<(f.Width-1)) != 0 {
		u |= ^f.mask()
	}
	return int64(u)
}

// Get returns the named field value.
func (v Values) Get(name string) (int64, error) {
	i, err := v.schema.Index(name)
	if err != nil {
		return 0, err
	}
	return v.vals[i], nil
}

// At returns the value of the field at position i, as given by Schema.Index.
func (v Values) At(i int) int64 {
	return v.vals[i]
}

// Map returns all fields keyed by name.
func (v Values) Map() map[string]int64 {
	m := make(map[string]int64, len(v.vals))
	for i, f := range v.schema.fields {
		m[f.Name] = v.vals[i]
	}
	return m
}

// String formats the values as "name:value" pairs in schema order.
func (v Values) String() string {
	var b strings.Builder
	for i, f := range v.schema.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%d", f.Name, v.vals[i])
	}
	return b.String()
}

// Encode packs values into a cell identifier. Fields missing from values
// are zero. Values that do not fit their declared width are masked to it.
func (s *Schema) Encode(values map[string]int64) (uint64, error) {
	for name := range values {
		if _, ok := s.index[name]; !ok {
			return 0, &SchemaError{Encoding: s.encoding, Field: name, Reason: "unknown field"}
		}
	}
	var raw uint64
	for _, f := range s.fields {
		raw |= (uint64(values[f.Name]) & f.mask()) << f.Offset
	}
	return raw, nil
}
