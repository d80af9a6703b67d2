package value

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/mznerr"
	"github.com/zclconf/go-cty/cty"
)

func colors(t *testing.T) *EnumMap {
	t.Helper()
	m := NewEnumMap()
	require.NoError(t, m.Register("Color", "Red", "Green", "Blue"))
	return m
}

func TestEncodeJSON(t *testing.T) {
	enums := colors(t)
	red, _ := enums.Lookup("Red")

	testCases := []struct {
		name     string
		value    cty.Value
		expected string
	}{
		{name: "int", value: cty.NumberIntVal(42), expected: `42`},
		{name: "float", value: cty.NumberFloatVal(2.5), expected: `2.5`},
		{name: "bool", value: cty.True, expected: `true`},
		{name: "string", value: cty.StringVal("hi"), expected: `"hi"`},
		{name: "contiguous set as range", value: RangeVal(1, 5), expected: `{"set":[[1,5]]}`},
		{name: "set with runs", value: IntSetVal(1, 2, 3, 7), expected: `{"set":[[1,3],7]}`},
		{name: "empty set", value: cty.SetValEmpty(cty.Number), expected: `{"set":[]}`},
		{name: "enum", value: EnumVal(red), expected: `{"e":"Red"}`},
		{name: "anonymous enum", value: EnumVal(EnumMember{Enum: "X", Ordinal: 3}), expected: `{"e":"X","i":3}`},
		{
			name:     "2d array",
			value:    cty.ListVal([]cty.Value{cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), cty.ListVal([]cty.Value{cty.NumberIntVal(3), cty.NumberIntVal(4)})}),
			expected: `[[1,2],[3,4]]`,
		},
		{
			name:     "record",
			value:    cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1), "b": cty.StringVal("x")}),
			expected: `{"a":1,"b":"x"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeJSON(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(got))
		})
	}
}

func TestEncodeDZN(t *testing.T) {
	enums := colors(t)
	blue, _ := enums.Lookup("Blue")

	testCases := []struct {
		name     string
		value    cty.Value
		expected string
	}{
		{name: "int", value: cty.NumberIntVal(-3), expected: "-3"},
		{name: "range", value: RangeVal(1, 5), expected: "1..5"},
		{name: "singleton set", value: IntSetVal(4), expected: "{4}"},
		{name: "union of runs", value: IntSetVal(1, 2, 3, 7), expected: "1..3 union {7}"},
		{name: "empty set", value: cty.SetValEmpty(cty.Number), expected: "{}"},
		{name: "string set", value: cty.SetVal([]cty.Value{cty.StringVal("b"), cty.StringVal("a")}), expected: `{"a", "b"}`},
		{name: "enum", value: EnumVal(blue), expected: "Blue"},
		{name: "1d array", value: cty.ListVal([]cty.Value{cty.True, cty.False}), expected: "[true, false]"},
		{
			name:     "2d array",
			value:    cty.ListVal([]cty.Value{cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), cty.ListVal([]cty.Value{cty.NumberIntVal(3), cty.NumberIntVal(4)})}),
			expected: "array2d(1..2, 1..2, [1, 2, 3, 4])",
		},
		{name: "absent", value: cty.NullVal(cty.Number), expected: "<>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeDZN(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEncodeDZN_RaggedArrayFails(t *testing.T) {
	ragged := cty.TupleVal([]cty.Value{
		cty.TupleVal([]cty.Value{cty.NumberIntVal(1)}),
		cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
	})
	_, err := EncodeDZN(ragged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rectangular")
}

func TestAssignmentAndEnumDecl(t *testing.T) {
	enums := colors(t)

	line, err := AssignmentDZN("n", cty.NumberIntVal(8))
	require.NoError(t, err)
	assert.Equal(t, "n = 8;\n", line)
	assert.Equal(t, "Color = {Red, Green, Blue};\n", EnumDeclDZN("Color", enums.Members("Color")))
}

func TestRoundTrip(t *testing.T) {
	enums := colors(t)
	green, _ := enums.Lookup("Green")

	testCases := []struct {
		name  string
		typ   Type
		value cty.Value
	}{
		{name: "int", typ: Int, value: cty.NumberIntVal(123456789)},
		{name: "negative int", typ: Int, value: cty.NumberIntVal(-7)},
		{name: "float", typ: Float, value: cty.NumberFloatVal(0.125)},
		{name: "bool", typ: Bool, value: cty.False},
		{name: "string", typ: String, value: cty.StringVal("with \"quotes\"")},
		{name: "range set", typ: SetOf(Int), value: RangeVal(-2, 40)},
		{name: "sparse set", typ: SetOf(Int), value: IntSetVal(1, 5, 6, 9)},
		{name: "enum", typ: EnumOf("Color"), value: EnumVal(green)},
		{name: "enum set", typ: SetOf(EnumOf("Color")), value: cty.SetVal([]cty.Value{EnumVal(green)})},
		{
			name:  "2d array",
			typ:   ArrayOf(2, Int),
			value: cty.ListVal([]cty.Value{cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), cty.ListVal([]cty.Value{cty.NumberIntVal(3), cty.NumberIntVal(4)})}),
		},
		{
			name:  "record",
			typ:   RecordOf(Field{Name: "a", Type: Int}, Field{Name: "b", Type: SetOf(Int)}),
			value: cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1), "b": RangeVal(1, 3)}),
		},
		{
			name:  "tuple",
			typ:   TupleOf(Int, Bool),
			value: cty.TupleVal([]cty.Value{cty.NumberIntVal(9), cty.True}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeJSON(tc.value)
			require.NoError(t, err)

			got, err := DecodeJSON(data, tc.typ, enums)
			require.NoError(t, err)
			assert.True(t, tc.value.Equals(got).True(), "want %#v, got %#v", tc.value, got)
		})
	}
}

func TestDecodeJSON_Enums(t *testing.T) {
	enums := colors(t)
	blue, _ := enums.Lookup("Blue")

	t.Run("by ordinal", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`{"e":"Color","i":3}`), EnumOf("Color"), enums)
		require.NoError(t, err)
		m, ok := AsEnum(got)
		require.True(t, ok)
		assert.Equal(t, blue, m)
	})

	t.Run("unknown name without mapping", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`{"e":"Purple"}`), EnumOf("Color"), nil)
		require.NoError(t, err)
		m, _ := AsEnum(got)
		assert.Equal(t, EnumMember{Enum: "Color", Name: "Purple"}, m)
	})

	t.Run("constructor", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`{"c":"Wrap","e":{"e":"Red"}}`), EnumOf("Boxed"), enums)
		require.NoError(t, err)
		m, _ := AsEnum(got)
		assert.Equal(t, `Wrap({"e":"Red"})`, m.Name)
	})
}

func TestDecodeJSON_TypeMismatch(t *testing.T) {
	testCases := []struct {
		name string
		data string
		typ  Type
		path string
	}{
		{name: "string for int", data: `"x"`, typ: Int},
		{name: "fraction for int", data: `1.5`, typ: Int},
		{name: "list for set", data: `[1,2]`, typ: SetOf(Int)},
		{name: "array element", data: `[1,true]`, typ: ArrayOf(1, Int), path: "[1]"},
		{name: "record missing field", data: `{"a":1}`, typ: RecordOf(Field{Name: "a", Type: Int}, Field{Name: "b", Type: Int})},
		{name: "tuple length", data: `[1]`, typ: TupleOf(Int, Int)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tc.data), tc.typ, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, mznerr.ErrTypeMismatch))

			var tm *mznerr.TypeMismatch
			require.True(t, errors.As(err, &tm))
			if tc.path != "" {
				assert.Equal(t, tc.path, tm.Path)
			}
		})
	}
}

func TestDecodeJSON_SetRanges(t *testing.T) {
	testCases := []struct {
		name   string
		data   string
		lo, hi string
		size   int
	}{
		{name: "int64 upper edge", data: `{"set":[[9223372036854775806,9223372036854775807]]}`, lo: "9223372036854775806", hi: "9223372036854775807", size: 2},
		{name: "int64 lower edge", data: `{"set":[[-9223372036854775808,-9223372036854775807]]}`, lo: "-9223372036854775808", hi: "-9223372036854775807", size: 2},
		{name: "beyond int64", data: `{"set":[[18446744073709551615,18446744073709551617]]}`, lo: "18446744073709551615", hi: "18446744073709551617", size: 3},
		{name: "empty range", data: `{"set":[[5,4]]}`, size: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := DecodeJSON([]byte(tc.data), SetOf(Int), nil)
			require.NoError(t, err)
			require.Equal(t, tc.size, v.LengthInt())
			if tc.size == 0 {
				return
			}
			lo, hi, ok := Interval(v)
			require.True(t, ok)
			assert.Equal(t, tc.lo, lo.String())
			assert.Equal(t, tc.hi, hi.String())
		})
	}
}

func TestDecodeJSON_SetTooLarge(t *testing.T) {
	for _, data := range []string{
		`{"set":[[1,3000000]]}`,
		`{"set":[[-9223372036854775808,9223372036854775807]]}`,
		`{"set":[[1,1e400]]}`,
		`{"set":[[1,1000000],[2000000,2100000]]}`,
	} {
		t.Run(data, func(t *testing.T) {
			_, err := DecodeJSON([]byte(data), SetOf(Int), nil)
			var tm *mznerr.TypeMismatch
			require.ErrorAs(t, err, &tm)
			assert.Contains(t, tm.Got, "range")
		})
	}
}

func TestRangeVal_Edges(t *testing.T) {
	v := RangeVal(math.MaxInt64-1, math.MaxInt64)
	assert.Equal(t, 2, v.LengthInt())
	assert.True(t, v.HasElement(cty.NumberIntVal(math.MaxInt64)).True())

	assert.Equal(t, 1, RangeVal(math.MinInt64, math.MinInt64).LengthInt())
	assert.Zero(t, RangeVal(3, 2).LengthInt())

	n, ok := RangeLen(big.NewInt(math.MinInt64), big.NewInt(math.MaxInt64))
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestDecodeJSON_NullIsAbsent(t *testing.T) {
	got, err := DecodeJSON([]byte(`null`), Int, nil)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
	assert.Equal(t, cty.Number, got.Type())
}

func TestDecodeJSON_Infinity(t *testing.T) {
	got, err := DecodeJSON([]byte(`"-infinity"`), Float, nil)
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.NegativeInfinity))
}
