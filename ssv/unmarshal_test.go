package ssv

import (
	"strconv"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gridInfo struct {
	GridVoltage   float32 `ssv:"grid_voltage"`
	GridFrequency float64 `ssv:"grid_frequency"`
	Status        string  `ssv:"status"`
}

type chainNode struct {
	V    int         `ssv:"v"`
	Next []chainNode `ssv:"next"`
}

type emptyChain struct {
	Next []emptyChain `ssv:"next"`
}

func TestUnmarshalStruct(t *testing.T) {
	t.Parallel()

	var v gridInfo
	require.NoError(t, Unmarshal("233.6 49.9 01001 000", &v))
	assert.Equal(t, gridInfo{233.6, 49.9, "01001"}, v)

	err := Unmarshal("233.6 49.9", &v)
	assert.Equal(t, &ExpectedValueError{Field: "status"}, err)

	_, errFloat := strconv.ParseFloat("x", 32)
	err = Unmarshal("x 49.9 01001", &v)
	assert.Equal(t, &ExpectedFloatError{Field: "grid_voltage", Err: errFloat}, err)
}

func TestUnmarshalFieldNames(t *testing.T) {
	t.Parallel()

	type T struct {
		Untagged int16
		skipped  int
		Ignored  int    `ssv:"-"`
		Mode     rune   `ssv:"mode,char"`
		Serial   uint64 `ssv:",char_not_option"`
	}
	var v T
	require.NoError(t, Unmarshal("-3 B 92931905100148", &v))
	assert.Equal(t, T{Untagged: -3, Mode: 'B', Serial: 92931905100148}, v)

	err := Unmarshal("-3 BAT", &v)
	assert.Equal(t, &ExpectedCharError{Field: "mode"}, err)

	err = Unmarshal("-3 B", &v)
	assert.Equal(t, &ExpectedValueError{Field: "Serial"}, err)

	err = Unmarshal("70000", &v)
	var ie *ExpectedIntegerError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "Untagged", ie.Field)
	assert.True(t, errors.Is(err, strconv.ErrRange))
}

func TestUnmarshalSequences(t *testing.T) {
	t.Parallel()

	t.Run("tuple", func(t *testing.T) {
		var v [3]int32
		require.NoError(t, Unmarshal("1 2 3 4", &v))
		assert.Equal(t, [3]int32{1, 2, 3}, v)
		assert.Equal(t, &ExpectedValueError{Field: UnknownField}, Unmarshal("1 2", &v))
	})
	t.Run("tuple-in-struct", func(t *testing.T) {
		type T struct {
			A    int    `ssv:"a"`
			Pair [2]int `ssv:"pair"`
			C    int    `ssv:"c"`
		}
		var v T
		require.NoError(t, Unmarshal("1 2 3 4", &v))
		assert.Equal(t, T{1, [2]int{2, 3}, 4}, v)
		assert.Equal(t, &ExpectedValueError{Field: UnknownField}, Unmarshal("1 2", &v))
		assert.Equal(t, &ExpectedValueError{Field: "c"}, Unmarshal("1 2 3", &v))
	})
	t.Run("slice", func(t *testing.T) {
		var v []uint16
		require.NoError(t, Unmarshal(" 1 2  3 ", &v))
		assert.Equal(t, []uint16{1, 2, 3}, v)
		require.NoError(t, Unmarshal("", &v))
		assert.Equal(t, []uint16{}, v)
	})
	t.Run("recursive", func(t *testing.T) {
		var v chainNode
		require.NoError(t, Unmarshal("1 2 3", &v))
		assert.Equal(t, chainNode{1, []chainNode{{2, []chainNode{{3, []chainNode{}}}}}}, v)
	})
	t.Run("nested", func(t *testing.T) {
		type Inner struct {
			X float64 `ssv:"x"`
			Y float64 `ssv:"y"`
		}
		type Outer struct {
			Name   string  `ssv:"name"`
			Points []Inner `ssv:"points"`
		}
		var v Outer
		require.NoError(t, Unmarshal("p 1 2 3 4", &v))
		assert.Equal(t, Outer{"p", []Inner{{1, 2}, {3, 4}}}, v)
		assert.Equal(t, &ExpectedValueError{Field: "y"}, Unmarshal("p 1 2 3", &v))
	})
}

func TestUnmarshalScalar(t *testing.T) {
	t.Parallel()

	var s string
	require.NoError(t, Unmarshal("NAK", &s))
	assert.Equal(t, "NAK", s)
	var f float64
	assert.Equal(t, &ExpectedValueError{Field: UnknownField}, Unmarshal("", &f))
}

func TestUnmarshalUnsupported(t *testing.T) {
	t.Parallel()

	type Case struct {
		name   string
		v      interface{}
		expect string
	}
	cases := []Case{
		{"bool", new(bool), "bool"},
		{"pointer", new(*int), "option"},
		{"interface", new(interface{}), "any"},
		{"map", new(map[string]int), "map"},
		{"bytes", new([]byte), "bytes"},
		{"unit", new(struct{}), "unit"},
		{"empty-tuple", new([0]int), "unit"},
		{"slice-of-empty-tuple", new([][0]int), "unit"},
		{"slice-of-empty-struct", new([]struct {
			A [0]int `ssv:"a"`
		}), "unit"},
		{"recursive-without-scalar", new([]emptyChain), "unit"},
		{"chan", new(chan int), "chan"},
		{"complex", new(complex128), "complex128"},
		{"nested-bool", new(struct {
			A int  `ssv:"a"`
			B bool `ssv:"b"`
		}), "bool"},
		{"char-on-string", new(struct {
			A string `ssv:"a,char"`
		}), "char option on string"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			d := NewDecoder("1 2")
			err := d.Decode(c.v)
			assert.Equal(t, &UnsupportedTypeError{Type: c.expect}, err)
			tok, err := d.Token()
			require.NoError(t, err)
			assert.Equal(t, "1", tok, "unsupported type must not consume input")
		})
	}
}

func TestUnmarshalInvalidArgument(t *testing.T) {
	t.Parallel()

	var v gridInfo
	err := Unmarshal("1 2 3", v)
	assert.Equal(t, "ssv: Unmarshal(non-pointer ssv.gridInfo)", err.Error())
	err = Unmarshal("1 2 3", (*gridInfo)(nil))
	assert.Equal(t, "ssv: Unmarshal(nil *ssv.gridInfo)", err.Error())

	type Dup struct {
		A int `ssv:"x"`
		B int `ssv:"x"`
	}
	assert.Equal(t, &DuplicateFieldError{Field: "x"}, Unmarshal("1 2", new(Dup)))
}
