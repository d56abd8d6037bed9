package cellid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	s, err := ParseSchema("a:4,b:8,c:20")
	require.NoError(t, err)

	raw, err := s.Encode(map[string]int64{"a": 5, "b": 200, "c": 100000})
	require.NoError(t, err)

	v := s.Decode(raw)
	for name, want := range map[string]int64{"a": 5, "b": 200, "c": 100000} {
		got, err := v.Get(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, "a:5,b:200,c:100000", v.String())
}

func TestDecode_KnownLayout(t *testing.T) {
	// a occupies bits 0-3, b bits 4-11, c bits 12-31
	raw := uint64(5) | uint64(200)<<4 | uint64(100000)<<12

	s, err := ParseSchema("a:4,b:8,c:20")
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"a": 5, "b": 200, "c": 100000}, s.Decode(raw).Map())
}

func TestDecode_SignedField(t *testing.T) {
	s, err := ParseSchema("system:5,side:-2,layer:6")
	require.NoError(t, err)

	raw, err := s.Encode(map[string]int64{"system": 3, "side": -1, "layer": 17})
	require.NoError(t, err)

	side, err := s.Field(raw, "side")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), side)

	layer, err := s.Field(raw, "layer")
	require.NoError(t, err)
	assert.Equal(t, int64(17), layer)
}

func TestDecode_ExplicitOffsets(t *testing.T) {
	s, err := ParseSchema("system:0:5,x:32:-16,y:48:-16")
	require.NoError(t, err)

	raw, err := s.Encode(map[string]int64{"system": 20, "x": -300, "y": 1200})
	require.NoError(t, err)

	v := s.Decode(raw)
	x, _ := v.Get("x")
	y, _ := v.Get("y")
	sys, _ := v.Get("system")
	assert.Equal(t, int64(-300), x)
	assert.Equal(t, int64(1200), y)
	assert.Equal(t, int64(20), sys)
}

func TestDecode_IgnoresUnusedBits(t *testing.T) {
	s, err := ParseSchema("a:4")
	require.NoError(t, err)

	v := s.Decode(0xFFFF_FFF3)
	a, err := v.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a)
}

func TestDecode_FullWidthField(t *testing.T) {
	s, err := ParseSchema("all:64")
	require.NoError(t, err)

	a, err := s.Field(^uint64(0), "all")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), a)
}

func TestEncode_MasksOverflow(t *testing.T) {
	s, err := ParseSchema("a:4,b:4")
	require.NoError(t, err)

	raw, err := s.Encode(map[string]int64{"a": 0x1F, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1F), raw)
}

func TestEncode_UnknownField(t *testing.T) {
	s, err := ParseSchema("a:4")
	require.NoError(t, err)

	_, err = s.Encode(map[string]int64{"nope": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestGet_UnknownField(t *testing.T) {
	s, err := ParseSchema("a:4,b:8")
	require.NoError(t, err)

	_, err = s.Decode(0).Get("layer")
	require.Error(t, err)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "layer", se.Field)
}

func TestParseSchema_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
	}{
		{"empty", ""},
		{"too wide", "a:40,b:30"},
		{"single field too wide", "a:65"},
		{"zero width", "a:0"},
		{"duplicate", "a:4,a:4"},
		{"overlap", "a:0:8,b:4:8"},
		{"malformed entry", "a"},
		{"trailing comma", "a:4,"},
		{"bad width", "a:x"},
		{"bad offset", "a:y:4"},
		{"past last bit", "a:60:8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(tt.encoding)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestParseSchema_Exactly64Bits(t *testing.T) {
	s, err := ParseSchema("system:5,side:-2,layer:6,module:11,sensor:8,x:32:-16,y:-16")
	require.NoError(t, err)
	assert.Len(t, s.Fields(), 7)

	f := s.Fields()[6]
	assert.Equal(t, uint(48), f.Offset)
	assert.Equal(t, uint(16), f.Width)
	assert.True(t, f.Signed)
}

func TestNewSchema(t *testing.T) {
	s, err := NewSchema(
		Field{Name: "a", Offset: 0, Width: 4},
		Field{Name: "b", Offset: 4, Width: 8, Signed: true},
	)
	require.NoError(t, err)
	assert.Equal(t, "a:0:4,b:4:-8", s.Encoding())

	_, err = NewSchema(Field{Name: "a", Offset: 0, Width: 4}, Field{Name: "b", Offset: 2, Width: 4})
	assert.ErrorIs(t, err, ErrSchema)
}

func TestIndexAndAt(t *testing.T) {
	s, err := ParseSchema("side:-2,layer:6")
	require.NoError(t, err)

	layerIdx, err := s.Index("layer")
	require.NoError(t, err)

	raw, _ := s.Encode(map[string]int64{"side": 1, "layer": 12})
	assert.Equal(t, int64(12), s.Decode(raw).At(layerIdx))

	_, err = s.Index("module")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, uint64(0x0000_0001_FFFF_FFFF), Combine(-1, 1))
	assert.Equal(t, uint64(0xFFFF_FFFF_0000_0002), Combine(2, -1))
	assert.Equal(t, uint64(42), Combine(42, 0))
}
