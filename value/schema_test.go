package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/mznerr"
	"github.com/zclconf/go-cty/cty"
)

func TestSchema_SetKeepsPosition(t *testing.T) {
	s := NewSchema(Field{Name: "x", Type: Int}, Field{Name: "y", Type: Bool})
	s.Set("x", Float)
	s.Set("z", String)

	fields := s.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "x", fields[0].Name)
	assert.True(t, fields[0].Type.Equal(Float))
	assert.Equal(t, "z", fields[2].Name)

	c := s.Clone()
	c.Set("w", Int)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 4, c.Len())
}

func TestFromInterfaceOutput(t *testing.T) {
	tok, err := ParseJSON([]byte(`{
		"x": {"type": "int", "dim": 2},
		"s": {"type": "int", "set": true},
		"c": {"type": "int", "enum_type": "Color"},
		"r": {"type": "record", "field_types": [{"name": "a", "type": "float"}]}
	}`))
	require.NoError(t, err)

	s, err := FromInterfaceOutput(tok.(map[string]any))
	require.NoError(t, err)

	names := []string{}
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"c", "r", "s", "x"}, names)

	x, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "array[int,int] of int", x.String())

	st, _ := s.Lookup("s")
	assert.Equal(t, "set of int", st.String())

	c, _ := s.Lookup("c")
	assert.True(t, c.Equal(EnumOf("Color")))

	r, _ := s.Lookup("r")
	assert.True(t, r.Equal(RecordOf(Field{Name: "a", Type: Float})))
}

func TestFromInterfaceOutput_Unsupported(t *testing.T) {
	_, err := FromInterfaceOutput(map[string]any{"v": map[string]any{"type": "ann"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `output "v"`)
}

func TestPlanDecode(t *testing.T) {
	plan := NewSchema(
		Field{Name: "x", Type: Int},
		Field{Name: "s", Type: SetOf(Int)},
	).Compile(nil)
	assert.Equal(t, []string{"x", "s"}, plan.Names())

	t.Run("exact key set", func(t *testing.T) {
		tok, err := ParseJSON([]byte(`{"s":{"set":[[1,3]]},"x":3}`))
		require.NoError(t, err)

		vals, err := plan.Decode(tok.(map[string]any))
		require.NoError(t, err)
		require.Len(t, vals, 2)
		assert.True(t, vals[0].Equals(cty.NumberIntVal(3)).True())
		assert.True(t, vals[1].Equals(RangeVal(1, 3)).True())
	})

	t.Run("extra key", func(t *testing.T) {
		tok, _ := ParseJSON([]byte(`{"s":{"set":[]},"x":3,"y":1}`))
		_, err := plan.Decode(tok.(map[string]any))
		require.Error(t, err)
		assert.True(t, errors.Is(err, mznerr.ErrTypeMismatch))
	})

	t.Run("missing key", func(t *testing.T) {
		tok, _ := ParseJSON([]byte(`{"x":3}`))
		_, err := plan.Decode(tok.(map[string]any))
		require.Error(t, err)
		var tm *mznerr.TypeMismatch
		require.True(t, errors.As(err, &tm))
		assert.Equal(t, "s", tm.Path)
	})
}

func TestEnumMap(t *testing.T) {
	m := colors(t)

	err := m.Register("Shade", "Dark", "Red")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Red"`)

	require.Error(t, m.Register("Color", "Cyan"))

	mem, ok := m.Member("Color", 2)
	require.True(t, ok)
	assert.Equal(t, "Green", mem.Name)

	_, ok = m.Member("Color", 4)
	assert.False(t, ok)

	c := m.Clone()
	require.NoError(t, c.Register("Size", "S", "M"))
	assert.Equal(t, []string{"Color"}, m.Enums())
	assert.Equal(t, []string{"Color", "Size"}, c.Enums())

	var nilMap *EnumMap
	_, ok = nilMap.Lookup("Red")
	assert.False(t, ok)
}
