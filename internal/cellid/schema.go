// Package cellid decodes packed 64-bit cell identifiers according to an
// LCIO-style bit-field encoding string such as
// "system:5,side:-2,layer:6,module:11,sensor:8".
package cellid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxBits is the width of a packed cell identifier.
const MaxBits = 64

// ErrSchema is wrapped by every SchemaError.
var ErrSchema = errors.New("invalid cell id schema")

// SchemaError reports a malformed schema or a lookup of an unknown field.
type SchemaError struct {
	Encoding string
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cell id schema %q: field %q: %s", e.Encoding, e.Field, e.Reason)
	}
	return fmt.Sprintf("cell id schema %q: %s", e.Encoding, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// Field is one named bit range of a cell identifier.
type Field struct {
	Name   string
	Offset uint
	Width  uint
	Signed bool
}

func (f Field) mask() uint64 {
	if f.Width == MaxBits {
		return ^uint64(0)
	}
	return (uint64(1) << f.Width) - 1
}

// Schema is an ordered, validated list of fields.
type Schema struct {
	encoding string
	fields   []Field
	index    map[string]int
}

// ParseSchema parses a comma separated list of "name:width" or
// "name:offset:width" entries. A negative width declares a signed field.
// Fields without an explicit offset start right after the previous field.
func ParseSchema(encoding string) (*Schema, error) {
	if strings.TrimSpace(encoding) == "" {
		return nil, &SchemaError{Encoding: encoding, Reason: "empty encoding"}
	}

	var fields []Field
	var next uint
	for _, entry := range strings.Split(encoding, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		var f Field
		var widthStr string
		switch len(parts) {
		case 2:
			f.Name, widthStr = parts[0], parts[1]
			f.Offset = next
		case 3:
			f.Name, widthStr = parts[0], parts[2]
			off, err := strconv.ParseUint(parts[1], 10, 8)
			if err != nil {
				return nil, &SchemaError{Encoding: encoding, Field: parts[0], Reason: fmt.Sprintf("bad offset %q", parts[1])}
			}
			f.Offset = uint(off)
		default:
			return nil, &SchemaError{Encoding: encoding, Reason: fmt.Sprintf("malformed entry %q", entry)}
		}

		width, err := strconv.Atoi(widthStr)
		if err != nil {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: fmt.Sprintf("bad width %q", widthStr)}
		}
		if width < 0 {
			f.Signed = true
			width = -width
		}
		if width == 0 || width > MaxBits {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: fmt.Sprintf("width %d out of range", width)}
		}
		f.Width = uint(width)
		next = f.Offset + f.Width
		fields = append(fields, f)
	}

	s, err := newSchema(encoding, fields)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSchema builds a schema from explicit fields with the same validation
// as ParseSchema.
func NewSchema(fields ...Field) (*Schema, error) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		w := int(f.Width)
		if f.Signed {
			w = -w
		}
		parts[i] = fmt.Sprintf("%s:%d:%d", f.Name, f.Offset, w)
	}
	return newSchema(strings.Join(parts, ","), fields)
}

func newSchema(encoding string, fields []Field) (*Schema, error) {
	s := &Schema{
		encoding: encoding,
		fields:   make([]Field, len(fields)),
		index:    make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)

	var used uint64
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, &SchemaError{Encoding: encoding, Reason: fmt.Sprintf("field %d has no name", i)}
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: "duplicate field"}
		}
		if f.Width == 0 || f.Width > MaxBits {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: fmt.Sprintf("width %d out of range", f.Width)}
		}
		if f.Offset+f.Width > MaxBits {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: fmt.Sprintf("ends at bit %d, beyond %d", f.Offset+f.Width, MaxBits)}
		}
		bits := f.mask() << f.Offset
		if used&bits != 0 {
			return nil, &SchemaError{Encoding: encoding, Field: f.Name, Reason: "overlaps a previous field"}
		}
		used |= bits
		s.index[f.Name] = i
	}
	return s, nil
}

// Encoding returns the schema string the schema was built from.
func (s *Schema) Encoding() string {
	return s.encoding
}

// Fields returns a copy of the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Index returns the position of the named field, for use with Values.At.
func (s *Schema) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, &SchemaError{Encoding: s.encoding, Field: name, Reason: "unknown field"}
	}
	return i, nil
}

// Combine joins the two 32-bit halves of a legacy cell identifier.
func Combine(cellID0 int32, cellID1 int32) uint64 {
	return uint64(uint32(cellID0)) | uint64(uint32(cellID1))<<32
}
